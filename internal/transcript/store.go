// Package transcript keeps a capped, expiring message log per conversation.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "transcript:"

// DefaultTTL matches the flow state lifetime.
const DefaultTTL = 24 * time.Hour

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
type Message struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Channel   string            `json:"channel"`
	Body      string            `json:"body"`
	Kind      string            `json:"kind,omitempty"`
	Flow      string            `json:"flow,omitempty"`
	Step      int               `json:"step,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Store appends to and reads Redis lists. A nil *Store is a no-op.
type Store struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

func NewStore(client *redis.Client, maxMessages int64, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	if maxMessages <= 0 {
		maxMessages = 250
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis:       client,
		tracer:      otel.Tracer("hospital.internal.transcript"),
		ttl:         ttl,
		maxMessages: maxMessages,
	}
}

// ConversationID scopes a transcript to a hospital and session.
func ConversationID(hospitalID, sessionID string) string {
	return hospitalID + ":" + sessionID
}

func (s *Store) Append(ctx context.Context, conversationID string, msg Message) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if conversationID == "" {
		return errors.New("transcript: conversationID required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transcript: marshal message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "transcript.append")
	defer span.End()

	key := keyPrefix + conversationID
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// List returns the newest limit messages in order; limit <= 0 returns all.
func (s *Store) List(ctx context.Context, conversationID string, limit int64) ([]Message, error) {
	if s == nil || s.redis == nil {
		return []Message{}, nil
	}
	if conversationID == "" {
		return nil, errors.New("transcript: conversationID required")
	}

	ctx, span := s.tracer.Start(ctx, "transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, keyPrefix+conversationID, start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("transcript: list: %w", err)
	}

	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Clear drops a transcript.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if err := s.redis.Del(ctx, keyPrefix+conversationID).Err(); err != nil {
		return fmt.Errorf("transcript: clear: %w", err)
	}
	return nil
}
