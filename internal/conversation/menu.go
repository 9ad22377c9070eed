package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/hospital-assistant/internal/appointments"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/i18n"
)

// Flow names. An empty current flow means the session is at the main menu.
const (
	FlowMenu         = ""
	FlowBooking      = booking.FlowName
	FlowAppointments = appointments.FlowName
	FlowGeneral      = "general_query"
)

// Message keys for engine-level replies.
const (
	MsgMenu          = "main_menu_prompt"
	MsgBusy          = "please_wait"
	MsgInvalidOption = "invalid_option"
	MsgStarting      = "flow_starting"
	MsgReturnedMenu  = "main_menu_return"
	MsgTypeQuestion  = "type_question"
	MsgAskAnother    = "ask_another_question"
	MsgNoAnswer      = "no_answer"
	MsgGenericError  = "error_generic"
)

var catalog = map[string]string{
	MsgMenu:          "What do you want: booking appointment, my appointments, or general query?",
	MsgBusy:          "⏳ Please wait, I'm still working on your last message.",
	MsgInvalidOption: "That is a wrong option. Please choose again.",
	MsgStarting:      "Starting %s…",
	MsgReturnedMenu:  "Returned to main menu.",
	MsgTypeQuestion:  "Please type your question:",
	MsgAskAnother:    "You can ask another question or go back to the main menu.",
	MsgNoAnswer:      "Sorry, I don't have an answer for that.",
	MsgGenericError:  "❌ Something went wrong. Please try again.",
}

func text(key string, args ...any) string {
	tmpl, ok := catalog[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

var flowTitles = map[string]string{
	FlowBooking:      "Booking Appointment",
	FlowAppointments: "My Appointment",
	FlowGeneral:      "General Query",
}

// menuKeywords are matched as substrings of lower-cased input. Booking is
// checked first because "book appointment" also contains "appointment".
var menuKeywords = []struct {
	flow  string
	words map[string][]string
}{
	{FlowBooking, map[string][]string{
		"english": {"booking", "book appointment"},
		"hindi":   {"बुकिंग", "अपॉइंटमेंट बुक"},
		"marathi": {"बुकिंग", "अपॉइंटमेंट बुक"},
	}},
	{FlowAppointments, map[string][]string{
		"english": {"my appointment", "appointments"},
		"hindi":   {"मेरी अपॉइंटमेंट", "अपॉइंटमेंट्स"},
		"marathi": {"अपॉइंटमेंट", "अपॉइंटमेंट्स"},
	}},
	{FlowGeneral, map[string][]string{
		"english": {"general query", "question"},
		"hindi":   {"प्रश्न", "सवाल"},
		"marathi": {"प्रश्न"},
	}},
}

// MatchMenu returns the flow selected by a typed or spoken menu keyword in
// lang, or "" when none matches.
func MatchMenu(input, lang string) string {
	lower := strings.ToLower(strings.TrimSpace(input))
	if lower == "" {
		return ""
	}
	long := i18n.LongName(lang)
	for _, entry := range menuKeywords {
		for _, kw := range entry.words[long] {
			if strings.Contains(lower, kw) {
				return entry.flow
			}
		}
	}
	return ""
}

// IsFlow reports whether name is a selectable flow.
func IsFlow(name string) bool {
	_, ok := flowTitles[name]
	return ok
}

func menuReply() booking.Reply {
	return booking.Reply{
		Kind:  booking.ReplyPrompt,
		Key:   MsgMenu,
		Text:  text(MsgMenu),
		Input: booking.InputChoice,
		Options: []booking.Option{
			{Value: FlowBooking, Label: "Book Appointment", Icon: "📅", Action: "start"},
			{Value: FlowAppointments, Label: "My Appointments", Icon: "📋", Action: "start"},
			{Value: FlowGeneral, Label: "General Query", Icon: "❓", Action: "start"},
		},
		Flow: "menu",
	}
}

func notice(kind booking.ReplyKind, flow, key string, args ...any) booking.Reply {
	return booking.Reply{
		Kind:  kind,
		Key:   key,
		Text:  text(key, args...),
		Input: booking.InputNone,
		Flow:  flow,
	}
}
