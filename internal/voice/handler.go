package voice

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/i18n"
	"github.com/wolfman30/hospital-assistant/internal/observability/metrics"
	"github.com/wolfman30/hospital-assistant/internal/tenancy"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// Inbound event types.
const (
	TypeStart      = "start"
	TypeTranscript = "transcript"
	TypeSelect     = "select"
	TypeTimeout    = "timeout"
	TypePing       = "ping"
)

// InboundMessage is what the voice client sends over the socket.
type InboundMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Value string `json:"value,omitempty"`
	Flow  string `json:"flow,omitempty"`
}

// OutboundMessage is what the voice client receives.
type OutboundMessage struct {
	Type            string         `json:"type"` // "session", "reply", "stopped", "pong", "error"
	SessionID       string         `json:"session_id,omitempty"`
	Reply           *booking.Reply `json:"reply,omitempty"`
	Text            string         `json:"text,omitempty"`
	ListenTimeoutMS int64          `json:"listen_timeout_ms,omitempty"`
}

// TurnRequest is one stateless turn. The client keeps the retry count and the
// last prompt and reports silence as a timeout turn.
type TurnRequest struct {
	HospitalID string         `json:"hospital_id"`
	SessionID  string         `json:"session_id" validate:"required,max=128"`
	Language   string         `json:"language,omitempty" validate:"omitempty,max=16"`
	Type       string         `json:"type" validate:"required,oneof=start transcript select timeout"`
	Text       string         `json:"text,omitempty" validate:"max=2000"`
	Value      string         `json:"value,omitempty" validate:"max=256"`
	Flow       string         `json:"flow,omitempty" validate:"max=64"`
	Retries    int            `json:"retries" validate:"min=0,max=10"`
	Prompt     *booking.Reply `json:"prompt,omitempty"`
}

// TurnResponse carries the replies of one turn plus the state the client
// sends back next time.
type TurnResponse struct {
	SessionID       string          `json:"session_id"`
	Replies         []booking.Reply `json:"replies"`
	Prompt          *booking.Reply  `json:"prompt,omitempty"`
	Retries         int             `json:"retries"`
	AutoStopped     bool            `json:"auto_stopped"`
	ListenTimeoutMS int64           `json:"listen_timeout_ms"`
}

// Handler serves the voice endpoints.
type Handler struct {
	engine          Engine
	cfg             Config
	defaultHospital string
	defaultLanguage string
	metrics         *metrics.FlowMetrics
	logger          *logging.Logger
	validate        *validator.Validate
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Voice           Config
	DefaultHospital string
	DefaultLanguage string
	Metrics         *metrics.FlowMetrics
}

func NewHandler(engine Engine, cfg HandlerConfig, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:          engine,
		cfg:             cfg.Voice.withDefaults(),
		defaultHospital: cfg.DefaultHospital,
		defaultLanguage: cfg.DefaultLanguage,
		metrics:         cfg.Metrics,
		logger:          logger,
		validate:        validator.New(),
	}
}

func (h *Handler) hospitalID(r *http.Request, explicit string) string {
	if id, ok := tenancy.HospitalIDFromContext(r.Context()); ok {
		return id
	}
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get(tenancy.HospitalHeader)); id != "" {
		return id
	}
	return h.defaultHospital
}

func (h *Handler) listenMS() int64 { return h.cfg.ResponseWindow.Milliseconds() }

// socketSurface writes replies to one socket. Writes come from the read loop
// and from window timers.
type socketSurface struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	listen int64
}

func (s *socketSurface) send(msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return websocket.JSON.Send(s.conn, msg)
}

func (s *socketSurface) Emit(_ context.Context, r booking.Reply) error {
	msg := OutboundMessage{Type: "reply", Reply: &r}
	if r.Input != booking.InputNone && r.Input != "" {
		msg.ListenTimeoutMS = s.listen
	}
	return s.send(msg)
}

// HandleWebSocket runs a voice session with server-side response windows.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	q := r.URL.Query()
	out := &socketSurface{conn: conn, listen: h.listenMS()}

	hospitalID := h.hospitalID(r, q.Get("hospital"))
	if hospitalID == "" {
		_ = out.send(OutboundMessage{Type: "error", Text: "missing hospital parameter"})
		return
	}
	sessionID := strings.TrimSpace(q.Get("session"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	lang := i18n.Negotiate(q.Get("lang"), r.Header.Get("Accept-Language"), h.defaultLanguage)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := NewSession(h.engine, conversation.Session{HospitalID: hospitalID, ID: sessionID, Language: lang}, out, h.cfg, h.logger,
		WithMetrics(h.metrics))
	defer sess.Close()

	_ = out.send(OutboundMessage{Type: "session", SessionID: sessionID, ListenTimeoutMS: h.listenMS()})
	h.logger.Info("voice: connection opened", "hospital_id", hospitalID, "session_id", sessionID, "language", lang)

	if err := sess.Start(ctx); err != nil {
		h.logger.Warn("voice: start failed", "error", err, "session_id", sessionID)
	}

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("voice: connection closed", "hospital_id", hospitalID, "error", err)
			return
		}

		var err error
		switch msg.Type {
		case TypePing:
			err = out.send(OutboundMessage{Type: "pong"})
		case TypeTranscript:
			err = sess.Transcript(ctx, msg.Text)
		case TypeSelect:
			err = sess.Event(ctx, conversation.Event{Type: conversation.EventSelect, Value: msg.Value})
		case TypeStart:
			if msg.Flow == "" {
				err = sess.Start(ctx)
			} else {
				err = sess.Event(ctx, conversation.Event{Type: conversation.EventStart, Flow: msg.Flow})
			}
		case TypeTimeout:
			// Client-side silence detection; the server window also runs.
			err = sess.Timeout(ctx)
		default:
			continue
		}
		switch {
		case errors.Is(err, ErrStopped):
			_ = out.send(OutboundMessage{Type: "stopped"})
		case errors.Is(err, conversation.ErrBusy):
		case err != nil:
			h.logger.Error("voice: event failed", "error", err, "session_id", sessionID, "type", msg.Type)
			_ = out.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		}
	}
}

// HandleTurn is the stateless fallback: one request per utterance or timeout.
func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	hospitalID := h.hospitalID(r, req.HospitalID)
	if hospitalID == "" {
		http.Error(w, "hospital_id is required", http.StatusBadRequest)
		return
	}
	lang := i18n.Negotiate(req.Language, r.Header.Get("Accept-Language"), h.defaultLanguage)

	var prompt booking.Reply
	if req.Prompt != nil {
		prompt = *req.Prompt
	}
	out := &booking.Collector{}
	sess := NewSession(h.engine, conversation.Session{HospitalID: hospitalID, ID: req.SessionID, Language: lang}, out, h.cfg, h.logger,
		WithTimer(nil),
		WithMetrics(h.metrics),
		WithState(req.Retries, prompt),
	)

	var err error
	switch req.Type {
	case TypeStart:
		if req.Flow != "" {
			err = sess.Event(r.Context(), conversation.Event{Type: conversation.EventStart, Flow: req.Flow})
		} else {
			err = sess.Start(r.Context())
		}
	case TypeTranscript:
		err = sess.Transcript(r.Context(), req.Text)
	case TypeSelect:
		err = sess.Event(r.Context(), conversation.Event{Type: conversation.EventSelect, Value: req.Value})
	case TypeTimeout:
		err = sess.Timeout(r.Context())
	}

	resp := TurnResponse{
		SessionID:       req.SessionID,
		Replies:         out.Replies(),
		Retries:         sess.Retries(),
		AutoStopped:     errors.Is(err, ErrStopped),
		ListenTimeoutMS: h.listenMS(),
	}
	if p := sess.Prompt(); p.Key != "" {
		resp.Prompt = &p
	}

	status := http.StatusOK
	switch {
	case err == nil, resp.AutoStopped:
	case errors.Is(err, conversation.ErrBusy):
		status = http.StatusConflict
	default:
		h.logger.Error("voice: turn failed", "error", err, "session_id", req.SessionID, "type", req.Type)
		http.Error(w, "failed to process turn", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
