package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps flow records as JSON strings with a TTL. A per-session set
// indexes the flow keys so a whole session can be dropped at once.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("hospital.internal.session"),
		ttl:    ttl,
	}
}

func indexKey(k Key) string {
	return "flowidx:" + k.sessionID()
}

func (s *RedisStore) Get(ctx context.Context, key Key) (*Record, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: load %s: %w", key.Flow, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: decode %s: %w", key.Flow, err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, key Key, rec Record) error {
	if err := key.Validate(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "session.put")
	defer span.End()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: encode %s: %w", key.Flow, err)
	}

	idx := indexKey(key)
	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, key.String(), data, s.ttl)
	pipe.SAdd(ctx, idx, key.String())
	pipe.Expire(ctx, idx, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: persist %s: %w", key.Flow, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, key.String())
	pipe.SRem(ctx, indexKey(key), key.String())
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: delete %s: %w", key.Flow, err)
	}
	return nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, key Key) error {
	ctx, span := s.tracer.Start(ctx, "session.delete_session")
	defer span.End()

	idx := indexKey(key)
	keys, err := s.redis.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return fmt.Errorf("session: list flows: %w", err)
	}
	keys = append(keys, idx)
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: delete session: %w", err)
	}
	return nil
}
