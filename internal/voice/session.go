// Package voice adds turn taking on top of the conversation engine: every
// prompt opens a response window, silence is retried and then ends the call.
package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/observability/metrics"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// Defaults for the response window.
const (
	DefaultResponseWindow = 30 * time.Second
	DefaultMaxRetries     = 2
)

// Message keys of voice-only replies.
const (
	MsgRetry    = "voice_retry"
	MsgAutoStop = "voice_auto_stop"
)

var catalog = map[string]string{
	MsgRetry:    "I can't understand. Please say again.",
	MsgAutoStop: "Auto-stopping voice assistant.",
}

// Engine is the part of the conversation engine a voice session drives.
type Engine interface {
	Handle(ctx context.Context, sess conversation.Session, ev conversation.Event, out booking.Surface) error
	AutoStop(ctx context.Context, sess conversation.Session) error
}

// Config tunes the response window.
type Config struct {
	ResponseWindow time.Duration
	MaxRetries     int
}

func (c Config) withDefaults() Config {
	if c.ResponseWindow <= 0 {
		c.ResponseWindow = DefaultResponseWindow
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// AfterFunc schedules f after d and returns a stop function. It matches
// time.AfterFunc so tests can drive timeouts by hand.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Session.
type Option func(*Session)

// WithTimer replaces the window timer. A nil timer disables server-side
// windows; callers then report timeouts themselves.
func WithTimer(fn AfterFunc) Option { return func(s *Session) { s.after = fn } }

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithMetrics(m *metrics.FlowMetrics) Option { return func(s *Session) { s.metrics = m } }

// WithState seeds the retry count and last prompt, for stateless turns.
func WithState(retries int, prompt booking.Reply) Option {
	return func(s *Session) {
		s.retries = retries
		s.prompt = prompt
	}
}

// ErrStopped is returned by Timeout when the session has been auto-stopped.
var ErrStopped = errors.New("voice: session auto-stopped")

// Session is one caller's turn-taking state. Methods are safe for concurrent
// use; the window timer fires on its own goroutine.
type Session struct {
	engine  Engine
	sess    conversation.Session
	out     booking.Surface
	cfg     Config
	logger  *logging.Logger
	metrics *metrics.FlowMetrics
	after   AfterFunc
	now     func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	retries int
	prompt  booking.Reply
	stop    func() bool
	gen     int
	closed  bool
}

func NewSession(engine Engine, sess conversation.Session, out booking.Surface, cfg Config, logger *logging.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	sess.Channel = conversation.ChannelVoice
	s := &Session{
		engine: engine,
		sess:   sess,
		out:    out,
		cfg:    cfg.withDefaults(),
		logger: logger,
		after:  realAfterFunc,
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retries returns the number of consecutive expired windows.
func (s *Session) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// Prompt returns the last prompt spoken to the caller.
func (s *Session) Prompt() booking.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// ListenTimeout is the window the client should listen for.
func (s *Session) ListenTimeout() time.Duration { return s.cfg.ResponseWindow }

// Start greets the caller with the prompt of wherever the session stands.
// ctx bounds timer-driven work; the timer stops when it is done.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	return s.handleLocked(ctx, conversation.Event{Type: conversation.EventResume})
}

// Transcript handles recognized speech. Any speech resets the retry count.
func (s *Session) Transcript(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = 0
	ev := Resolve(s.prompt, text, s.sess.Language, s.now())
	return s.handleLocked(ctx, ev)
}

// Event passes a structured event, such as a tapped card, straight through.
func (s *Session) Event(ctx context.Context, ev conversation.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = 0
	return s.handleLocked(ctx, ev)
}

// Timeout handles an expired window. Up to MaxRetries it re-prompts; after
// that it clears every flow of the session and returns ErrStopped.
func (s *Session) Timeout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeoutLocked(ctx)
}

// Close stops the window timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.disarmLocked()
}

func (s *Session) timeoutLocked(ctx context.Context) error {
	s.disarmLocked()
	s.retries++
	if s.retries <= s.cfg.MaxRetries {
		s.metrics.ObserveVoiceTimeout(false)
		s.logger.Debug("voice: response window expired", "session_id", s.sess.ID, "retry", s.retries)
		if err := s.emit(ctx, s.notice(MsgRetry)); err != nil {
			return err
		}
		if s.prompt.Key != "" {
			if err := s.emit(ctx, s.prompt); err != nil {
				return err
			}
		}
		s.armLocked()
		return nil
	}

	s.metrics.ObserveVoiceTimeout(true)
	s.logger.Info("voice: auto-stopped", "hospital_id", s.sess.HospitalID, "session_id", s.sess.ID)
	if err := s.emit(ctx, s.notice(MsgAutoStop)); err != nil {
		return err
	}
	if err := s.engine.AutoStop(ctx, s.sess); err != nil {
		return err
	}
	s.retries = 0
	s.prompt = booking.Reply{}
	return ErrStopped
}

func (s *Session) handleLocked(ctx context.Context, ev conversation.Event) error {
	s.disarmLocked()
	prev := s.prompt
	s.prompt = booking.Reply{}
	err := s.engine.Handle(ctx, s.sess, ev, booking.SurfaceFunc(s.capture))
	if errors.Is(err, conversation.ErrBusy) {
		s.prompt = prev
	} else if err != nil {
		return err
	}
	// A turn that ends without a prompt leaves the caller idle.
	if s.prompt.Key != "" {
		s.armLocked()
	}
	return err
}

// capture forwards a reply and remembers the last one that awaits input.
func (s *Session) capture(ctx context.Context, r booking.Reply) error {
	if r.Input != booking.InputNone && r.Input != "" {
		s.prompt = r
	}
	return s.emit(ctx, r)
}

func (s *Session) emit(ctx context.Context, r booking.Reply) error {
	return s.out.Emit(ctx, r)
}

func (s *Session) notice(key string) booking.Reply {
	return booking.Reply{Kind: booking.ReplyNotice, Key: key, Text: catalog[key], Input: booking.InputNone}
}

func (s *Session) armLocked() {
	if s.after == nil || s.closed {
		return
	}
	s.gen++
	gen := s.gen
	ctx := s.ctx
	s.stop = s.after(s.cfg.ResponseWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || s.closed || ctx.Err() != nil {
			return
		}
		if err := s.timeoutLocked(ctx); err != nil && !errors.Is(err, ErrStopped) {
			s.logger.Warn("voice: timeout handling failed", "error", err, "session_id", s.sess.ID)
		}
	})
}

func (s *Session) disarmLocked() {
	s.gen++
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}
