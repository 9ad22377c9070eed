package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/i18n"
	"github.com/wolfman30/hospital-assistant/internal/tenancy"
	"github.com/wolfman30/hospital-assistant/internal/transcript"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// Engine is the conversation engine as seen by the chat surface.
type Engine interface {
	Handle(ctx context.Context, sess conversation.Session, ev conversation.Event, out booking.Surface) error
	History(ctx context.Context, sess conversation.Session, limit int64) ([]transcript.Message, error)
}

// Handler manages web chat connections and messages.
type Handler struct {
	engine          Engine
	logger          *logging.Logger
	validate        *validator.Validate
	defaultHospital string
	defaultLanguage string
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type       string `json:"type" validate:"required,oneof=message select confirm start reset resume ping"`
	HospitalID string `json:"hospital_id,omitempty"`
	SessionID  string `json:"session_id,omitempty" validate:"max=128"`
	Language   string `json:"language,omitempty" validate:"omitempty,max=16"`
	Text       string `json:"text,omitempty" validate:"max=2000"`
	Value      string `json:"value,omitempty" validate:"max=256"`
	Flow       string `json:"flow,omitempty" validate:"max=64"`
	Yes        bool   `json:"yes,omitempty"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "session", "reply", "history", "pong", "error"
	Text      string           `json:"text,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Reply     *booking.Reply   `json:"reply,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Kind      string `json:"kind,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Config carries tenant and language defaults.
type Config struct {
	DefaultHospital string
	DefaultLanguage string
}

// NewHandler creates a web chat handler.
func NewHandler(engine Engine, cfg Config, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:          engine,
		logger:          logger,
		validate:        validator.New(),
		defaultHospital: cfg.DefaultHospital,
		defaultLanguage: cfg.DefaultLanguage,
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
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

func (h *Handler) session(r *http.Request, hospitalID, sessionID, lang string) conversation.Session {
	return conversation.Session{
		HospitalID: hospitalID,
		Channel:    conversation.ChannelChat,
		ID:         sessionID,
		Language:   i18n.Negotiate(lang, r.Header.Get("Accept-Language"), h.defaultLanguage),
	}
}

// event maps a widget message onto an engine event.
func event(msg InboundMessage) conversation.Event {
	return conversation.Event{
		Type:  conversation.EventType(msg.Type),
		Flow:  msg.Flow,
		Text:  strings.TrimSpace(msg.Text),
		Value: msg.Value,
		Yes:   msg.Yes,
	}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	q := r.URL.Query()
	out := newSocketSurface(conn)

	hospitalID := h.hospitalID(r, q.Get("hospital"))
	if hospitalID == "" {
		_ = out.send(OutboundMessage{Type: "error", Text: "missing hospital parameter"})
		return
	}
	sessionID := strings.TrimSpace(q.Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	sess := h.session(r, hospitalID, sessionID, q.Get("lang"))
	ctx := r.Context()

	_ = out.send(OutboundMessage{Type: "session", SessionID: sessionID})

	if msgs, err := h.engine.History(ctx, sess, 50); err == nil && len(msgs) > 0 {
		_ = out.send(OutboundMessage{Type: "history", Messages: historyMessages(msgs)})
	}

	h.logger.Info("webchat: connection opened", "hospital_id", hospitalID, "session_id", sessionID, "language", sess.Language)

	// Events run on their own goroutine so that a second event sent while the
	// first is in flight reaches the engine and gets the busy notice.
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "hospital_id", hospitalID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = out.send(OutboundMessage{Type: "pong"})
			continue
		}
		if err := h.validate.Struct(msg); err != nil {
			_ = out.send(OutboundMessage{Type: "error", Text: "invalid message"})
			continue
		}
		go h.dispatch(ctx, sess, event(msg), out)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess conversation.Session, ev conversation.Event, out *socketSurface) {
	err := h.engine.Handle(ctx, sess, ev, out)
	if err == nil || errors.Is(err, conversation.ErrBusy) {
		return
	}
	h.logger.Error("webchat: event failed", "error", err, "hospital_id", sess.HospitalID, "session_id", sess.ID, "type", ev.Type)
	_ = out.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
}

// MessageResponse is the synchronous reply of the HTTP fallback.
type MessageResponse struct {
	SessionID string          `json:"session_id"`
	Replies   []booking.Reply `json:"replies"`
	Busy      bool            `json:"busy,omitempty"`
}

// HandleMessage is the HTTP fallback for sending events.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = string(conversation.EventMessage)
	}
	if err := h.validate.Struct(req); err != nil || req.Type == "ping" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Type == string(conversation.EventMessage) && strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	hospitalID := h.hospitalID(r, req.HospitalID)
	if hospitalID == "" {
		http.Error(w, "hospital_id is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	out := &booking.Collector{}
	err := h.engine.Handle(r.Context(), h.session(r, hospitalID, req.SessionID, req.Language), event(req), out)
	resp := MessageResponse{SessionID: req.SessionID, Replies: out.Replies()}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, conversation.ErrBusy):
		resp.Busy = true
		writeJSON(w, http.StatusConflict, resp)
	default:
		h.logger.Error("webchat: event failed", "error", err, "hospital_id", hospitalID, "session_id", req.SessionID)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
	}
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hospitalID := h.hospitalID(r, q.Get("hospital"))
	sessionID := q.Get("session")
	if hospitalID == "" || sessionID == "" {
		http.Error(w, "hospital and session parameters required", http.StatusBadRequest)
		return
	}

	msgs, err := h.engine.History(r.Context(), h.session(r, hospitalID, sessionID, ""), 100)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": historyMessages(msgs)})
}

func historyMessages(msgs []transcript.Message) []HistoryMessage {
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Body,
			Kind:      m.Kind,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
