package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func TestNewEnvelope(t *testing.T) {
	fixedNow := time.Unix(0, 123456000).UTC()
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	env, err := EnvelopeFor("hospital:h1", FlowOutcomeV1{
		Type:       TypeBookingCommitted,
		HospitalID: "h1",
		Outcome:    "committed",
	}, WithEventID(id))
	if err != nil {
		t.Fatalf("EnvelopeFor failed: %v", err)
	}
	if env.EventID != id {
		t.Fatalf("expected event id override, got %s", env.EventID)
	}
	if env.TimestampMicros != fixedNow.UnixMicro() {
		t.Fatalf("unexpected timestamp: %d", env.TimestampMicros)
	}
	if env.EventType != TypeBookingCommitted {
		t.Fatalf("unexpected type: %s", env.EventType)
	}
	if len(env.Payload) == 0 {
		t.Fatal("expected payload bytes")
	}
}

func TestNewEnvelopeValidation(t *testing.T) {
	if _, err := NewEnvelope(" ", "x", nil); !errors.Is(err, errMissingAggregate) {
		t.Fatalf("expected missing aggregate, got %v", err)
	}
	if _, err := NewEnvelope("hospital:h1", "", nil); !errors.Is(err, errMissingType) {
		t.Fatalf("expected missing type, got %v", err)
	}
}

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (r *recordingChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	r.exchange, r.key, r.msg = exchange, key, msg
	return r.err
}

func (r *recordingChannel) Close() error {
	r.closed = true
	return nil
}

func TestAMQPPublisherHandle(t *testing.T) {
	ch := &recordingChannel{}
	p := newAMQPPublisher(ch, "hospital.flow_outcomes", nil)
	entry := OutboxEntry{
		ID:         uuid.New(),
		HospitalID: "h1",
		Type:       TypeAppointmentUpdated,
		Payload:    json.RawMessage(`{"appointment_id":"482"}`),
		CreatedAt:  time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
	}
	if err := p.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if ch.exchange != "hospital.flow_outcomes" || ch.key != TypeAppointmentUpdated {
		t.Fatalf("unexpected routing: %s %s", ch.exchange, ch.key)
	}
	if ch.msg.MessageId != entry.ID.String() {
		t.Fatalf("unexpected message id %s", ch.msg.MessageId)
	}
	var env Envelope
	if err := json.Unmarshal(ch.msg.Body, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventID != entry.ID || env.Aggregate != "hospital:h1" {
		t.Fatalf("unexpected envelope: %#v", env)
	}
	if !ch.msg.Timestamp.Equal(entry.CreatedAt) {
		t.Fatalf("unexpected timestamp %v", ch.msg.Timestamp)
	}

	ch.err = errors.New("channel closed")
	if err := p.Handle(context.Background(), entry); err == nil {
		t.Fatal("expected publish error")
	}
	if err := p.Close(); err != nil || !ch.closed {
		t.Fatalf("close: %v", err)
	}
}
