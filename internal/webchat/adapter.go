package webchat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/hospital-assistant/internal/booking"
)

// socketSurface pushes flow replies to one widget connection. Event
// goroutines write concurrently, so sends are serialized.
type socketSurface struct {
	mu   sync.Mutex
	conn *websocket.Conn
	now  func() time.Time
}

func newSocketSurface(conn *websocket.Conn) *socketSurface {
	return &socketSurface{conn: conn, now: time.Now}
}

func (s *socketSurface) send(msg OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return websocket.JSON.Send(s.conn, msg)
}

// Emit implements booking.Surface.
func (s *socketSurface) Emit(_ context.Context, r booking.Reply) error {
	return s.send(OutboundMessage{
		Type:      "reply",
		Reply:     &r,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}
