// Package conversation routes session events to the booking, appointment and
// general query flows and owns the main menu.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/appointments"
	"github.com/wolfman30/hospital-assistant/internal/availability"
	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/events"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/i18n"
	"github.com/wolfman30/hospital-assistant/internal/intent"
	"github.com/wolfman30/hospital-assistant/internal/observability/metrics"
	"github.com/wolfman30/hospital-assistant/internal/session"
	"github.com/wolfman30/hospital-assistant/internal/tenancy"
	"github.com/wolfman30/hospital-assistant/internal/transcript"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// Channels.
const (
	ChannelChat  = "chat"
	ChannelVoice = "voice"
)

// ErrBusy is returned when an event arrives while the session is still
// handling the previous one. The busy notice has already been emitted.
var ErrBusy = errors.New("conversation: session busy")

// EventType discriminates inbound events.
type EventType string

const (
	EventStart   EventType = "start"
	EventMessage EventType = "message"
	EventSelect  EventType = "select"
	EventConfirm EventType = "confirm"
	EventResume  EventType = "resume"
	EventReset   EventType = "reset"
)

// Event is one user action.
type Event struct {
	Type  EventType `json:"type"`
	Flow  string    `json:"flow,omitempty"`
	Text  string    `json:"text,omitempty"`
	Value string    `json:"value,omitempty"`
	Yes   bool      `json:"yes,omitempty"`
}

// Session identifies a conversation.
type Session struct {
	HospitalID string
	Channel    string
	ID         string
	Language   string
}

func (s Session) key(flow string) session.Key {
	return session.Key{Hospital: s.HospitalID, Channel: s.Channel, Session: s.ID, Flow: flow}
}

func (s Session) validate() error {
	if strings.TrimSpace(s.HospitalID) == "" || strings.TrimSpace(s.Channel) == "" || strings.TrimSpace(s.ID) == "" {
		return errors.New("conversation: hospital, channel and session id are required")
	}
	return nil
}

// Hospital is the collaborator surface used by all flows.
type Hospital interface {
	availability.Collaborator
	booking.Backend
	appointments.Backend
	Ask(ctx context.Context, question, lang string) (*hospital.QueryAnswer, error)
}

// OutcomeRecorder stores finished flow outcomes.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, evt events.FlowOutcomeV1) error
}

// Transcript stores the message log.
type Transcript interface {
	Append(ctx context.Context, conversationID string, msg transcript.Message) error
	List(ctx context.Context, conversationID string, limit int64) ([]transcript.Message, error)
}

// Config carries the flow settings.
type Config struct {
	IDPrefix        string
	EditWindow      time.Duration
	DateHorizonDays int
	DefaultLanguage string
	Location        *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

func WithOutcomes(r OutcomeRecorder) Option { return func(e *Engine) { e.outcomes = r } }

func WithTranscript(t Transcript) Option { return func(e *Engine) { e.transcript = t } }

func WithMetrics(m *metrics.FlowMetrics) Option { return func(e *Engine) { e.metrics = m } }

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.clock = now
		}
	}
}

// WithTipIndex fixes the health tip choice, for tests.
func WithTipIndex(fn func(int) int) Option { return func(e *Engine) { e.tipIndex = fn } }

// Engine handles events for every session. It is safe for concurrent use;
// events of one session are serialized.
type Engine struct {
	api        Hospital
	store      session.Store
	outcomes   OutcomeRecorder
	transcript Transcript
	metrics    *metrics.FlowMetrics
	logger     *logging.Logger
	parser     *intent.Parser
	cfg        Config
	clock      func() time.Time
	tipIndex   func(int) int

	mu       sync.Mutex
	runtimes map[string]*runtime
}

func New(api Hospital, store session.Store, cfg Config, logger *logging.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = i18n.English
	}
	e := &Engine{
		api:      api,
		store:    store,
		logger:   logger,
		parser:   intent.NewParser(),
		cfg:      cfg,
		clock:    time.Now,
		runtimes: make(map[string]*runtime),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) now() time.Time { return e.clock().In(e.cfg.Location) }

func (e *Engine) language(sess Session) string {
	return i18n.Negotiate(sess.Language, "", e.cfg.DefaultLanguage)
}

// Handle processes one event and emits replies to out.
func (e *Engine) Handle(ctx context.Context, sess Session, ev Event, out booking.Surface) error {
	if err := sess.validate(); err != nil {
		return err
	}
	sess.Language = e.language(sess)
	ctx = tenancy.WithHospitalID(ctx, sess.HospitalID)
	ctx = tenancy.WithLanguage(ctx, sess.Language)

	rt, ok := e.acquire(sess)
	if !ok {
		e.metrics.ObserveBusy(sess.Channel)
		r := notice(booking.ReplyNotice, "", MsgBusy)
		if err := out.Emit(ctx, r); err != nil {
			return err
		}
		return ErrBusy
	}
	defer rt.release()

	t := &turn{e: e, sess: sess, rt: rt, out: &recordingSurface{next: out, e: e, sess: sess}}
	e.recordInbound(ctx, sess, ev)

	flow, err := session.CurrentFlow(ctx, e.store, sess.key(FlowMenu))
	if err != nil {
		e.logger.Warn("conversation: load current flow failed", "error", err, "session_id", sess.ID)
	}
	e.metrics.ObserveEvent(sess.Channel, flow, string(ev.Type))
	return t.dispatch(ctx, flow, ev)
}

// AutoStop clears every flow of the session and records the stop.
func (e *Engine) AutoStop(ctx context.Context, sess Session) error {
	if err := sess.validate(); err != nil {
		return err
	}
	rt, ok := e.acquire(sess)
	if !ok {
		return ErrBusy
	}
	defer rt.release()

	flow, _ := session.CurrentFlow(ctx, e.store, sess.key(FlowMenu))
	if err := e.store.DeleteSession(ctx, sess.key(FlowMenu)); err != nil {
		return err
	}
	rt.resolver.Reset()
	e.record(ctx, sess, events.FlowOutcomeV1{Type: events.TypeVoiceAutoStopped, Flow: flow, Outcome: "auto_stopped"})
	return nil
}

// History returns the session transcript.
func (e *Engine) History(ctx context.Context, sess Session, limit int64) ([]transcript.Message, error) {
	if e.transcript == nil {
		return []transcript.Message{}, nil
	}
	return e.transcript.List(ctx, transcript.ConversationID(sess.HospitalID, sess.ID), limit)
}

func (e *Engine) recordInbound(ctx context.Context, sess Session, ev Event) {
	body := ev.Text
	if body == "" {
		body = ev.Value
	}
	if body == "" && ev.Type == EventConfirm {
		body = "no"
		if ev.Yes {
			body = "yes"
		}
	}
	if body == "" && ev.Type == EventStart {
		body = ev.Flow
	}
	if body == "" {
		return
	}
	e.appendTranscript(ctx, sess, transcript.Message{Role: transcript.RoleUser, Kind: string(ev.Type), Body: body})
}

func (e *Engine) appendTranscript(ctx context.Context, sess Session, msg transcript.Message) {
	if e.transcript == nil {
		return
	}
	msg.Channel = sess.Channel
	if err := e.transcript.Append(ctx, transcript.ConversationID(sess.HospitalID, sess.ID), msg); err != nil {
		e.logger.Warn("conversation: transcript append failed", "error", err, "session_id", sess.ID)
	}
}

func (e *Engine) record(ctx context.Context, sess Session, evt events.FlowOutcomeV1) {
	e.metrics.ObserveOutcome(sess.Channel, evt.Flow, evt.Outcome)
	if e.outcomes == nil {
		return
	}
	evt.HospitalID = sess.HospitalID
	evt.Channel = sess.Channel
	evt.SessionID = sess.ID
	evt.Language = sess.Language
	evt.OccurredAt = e.now().UTC()
	if err := e.outcomes.RecordOutcome(ctx, evt); err != nil {
		e.logger.Error("conversation: record outcome failed", "error", err, "type", evt.Type)
	}
}

type recordingSurface struct {
	next booking.Surface
	e    *Engine
	sess Session
}

func (s *recordingSurface) Emit(ctx context.Context, r booking.Reply) error {
	if err := s.next.Emit(ctx, r); err != nil {
		return err
	}
	if r.Text != "" {
		s.e.appendTranscript(ctx, s.sess, transcript.Message{
			Role: transcript.RoleAssistant,
			Kind: string(r.Kind),
			Body: r.Text,
			Flow: r.Flow,
			Step: r.Step,
		})
	}
	return nil
}
