package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
)

type scriptedEngine struct {
	events []conversation.Event
}

func (s *scriptedEngine) Handle(ctx context.Context, _ conversation.Session, ev conversation.Event, out booking.Surface) error {
	s.events = append(s.events, ev)
	return out.Emit(ctx, booking.Reply{
		Kind:  booking.ReplyPrompt,
		Key:   conversation.MsgMenu,
		Text:  "How can I help?",
		Input: booking.InputChoice,
		Options: []booking.Option{
			{Value: conversation.FlowBooking, Label: "Book Appointment", Action: "start"},
			{Value: "12:30", Label: "12:30 PM", Detail: "Dr. Khan"},
			{Value: "menu", Label: "Back", Action: "menu"},
			{Value: "482", Label: "Download Slip", Href: "/appointments/482/slip"},
		},
	})
}

func TestEventFor(t *testing.T) {
	c := &cli{options: []booking.Option{
		{Value: conversation.FlowBooking, Action: "start"},
		{Value: "12:30"},
		{Value: "menu", Action: "menu"},
	}}

	tests := []struct {
		line string
		want conversation.Event
		ok   bool
	}{
		{line: "1", want: conversation.Event{Type: conversation.EventStart, Flow: conversation.FlowBooking}, ok: true},
		{line: "2", want: conversation.Event{Type: conversation.EventSelect, Value: "12:30"}, ok: true},
		{line: "3", want: conversation.Event{Type: conversation.EventReset}, ok: true},
		{line: "4", want: conversation.Event{Type: conversation.EventMessage, Text: "4"}, ok: true},
		{line: "/yes", want: conversation.Event{Type: conversation.EventConfirm, Yes: true}, ok: true},
		{line: "/no", want: conversation.Event{Type: conversation.EventConfirm}, ok: true},
		{line: "/menu", want: conversation.Event{Type: conversation.EventReset}, ok: true},
		{line: "Ravi Kumar", want: conversation.Event{Type: conversation.EventMessage, Text: "Ravi Kumar"}, ok: true},
		{line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := c.eventFor(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRunRendersOptionsAndSendsSelections(t *testing.T) {
	engine := &scriptedEngine{}
	var out bytes.Buffer
	c := &cli{engine: engine, sess: conversation.Session{HospitalID: "h1", ID: "s1"}, out: &out}

	require.NoError(t, c.run(context.Background(), strings.NewReader("1\nhello\n/quit\n")))

	require.Len(t, engine.events, 3)
	assert.Equal(t, conversation.EventResume, engine.events[0].Type)
	assert.Equal(t, conversation.Event{Type: conversation.EventStart, Flow: conversation.FlowBooking}, engine.events[1])
	assert.Equal(t, conversation.Event{Type: conversation.EventMessage, Text: "hello"}, engine.events[2])

	printed := out.String()
	assert.Contains(t, printed, "How can I help?")
	assert.Contains(t, printed, "  1. Book Appointment")
	assert.Contains(t, printed, "  2. 12:30 PM (Dr. Khan)")
	assert.Contains(t, printed, "Download Slip /appointments/482/slip")
	assert.Len(t, c.options, 3)
}
