package voice

import (
	"strings"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/intent"
)

// backWords return the caller to the main menu from any prompt.
var backWords = []string{"main menu", "go back", "मुख्य मेनू", "मुख्य मेन्यू", "वापस", "मागे"}

// Resolve maps a speech transcript to an event using the prompt it answers.
// Anything it cannot pin to an option is passed on as a plain message.
func Resolve(prompt booking.Reply, text, lang string, now time.Time) conversation.Event {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	msg := conversation.Event{Type: conversation.EventMessage, Text: text}
	if lower == "" {
		return msg
	}

	for _, w := range backWords {
		if strings.Contains(lower, w) {
			return conversation.Event{Type: conversation.EventSelect, Value: "menu"}
		}
	}

	if prompt.Key == conversation.MsgMenu {
		if flow := conversation.MatchMenu(lower, lang); flow != "" {
			return conversation.Event{Type: conversation.EventStart, Flow: flow}
		}
		return msg
	}

	switch prompt.Input {
	case booking.InputConfirm:
		switch {
		case booking.IsYes(lower):
			return conversation.Event{Type: conversation.EventConfirm, Yes: true}
		case booking.IsNo(lower):
			return conversation.Event{Type: conversation.EventConfirm, Yes: false}
		}
		return msg
	case booking.InputDate:
		if date, ok := intent.ParseDate(lower, now); ok {
			return conversation.Event{Type: conversation.EventSelect, Value: date}
		}
	}

	if len(prompt.Options) == 0 {
		return msg
	}
	if opt, ok := matchOption(prompt.Options, lower); ok {
		return optionEvent(opt)
	}
	return msg
}

func optionEvent(opt booking.Option) conversation.Event {
	switch opt.Action {
	case "start":
		return conversation.Event{Type: conversation.EventStart, Flow: opt.Value}
	case "menu":
		return conversation.Event{Type: conversation.EventSelect, Value: "menu"}
	}
	return conversation.Event{Type: conversation.EventSelect, Value: opt.Value}
}

// matchOption finds the option a transcript names: a spoken time matching the
// option value, then a label contained in the transcript or the other way
// round. Disabled options never match.
func matchOption(opts []booking.Option, lower string) (booking.Option, bool) {
	if hhmm, ok := intent.ParseTime(lower); ok {
		for _, o := range opts {
			if !o.Disabled && o.Value == hhmm {
				return o, true
			}
		}
	}
	for _, o := range opts {
		if o.Disabled {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(o.Label))
		if label == "" {
			continue
		}
		if strings.Contains(lower, label) || (len(lower) >= 3 && strings.Contains(label, lower)) {
			return o, true
		}
	}
	for _, o := range opts {
		if !o.Disabled && strings.EqualFold(o.Value, lower) {
			return o, true
		}
	}
	return booking.Option{}, false
}
