package widget

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hospital-assistant/internal/hospital"
)

const (
	cacheKeyPrefix = "widgetcfg:"
	// DefaultTTL bounds how stale a cached widget config may be.
	DefaultTTL = 10 * time.Minute
)

var cacheTracer = otel.Tracer("hospital.internal.widget")

// Cache keeps widget configs in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns nil for a nil client; a nil Cache misses every lookup.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(hospitalID string) string {
	return cacheKeyPrefix + hospitalID
}

// Get returns nil, nil when nothing is cached.
func (c *Cache) Get(ctx context.Context, hospitalID string) (*hospital.WidgetConfig, error) {
	if c == nil {
		return nil, nil
	}
	ctx, span := cacheTracer.Start(ctx, "widget.cache.get")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.id", hospitalID))

	raw, err := c.client.Get(ctx, c.key(hospitalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("widget: cache get: %w", err)
	}
	var cfg hospital.WidgetConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("widget: decode cached config: %w", err)
	}
	return &cfg, nil
}

func (c *Cache) Put(ctx context.Context, hospitalID string, cfg *hospital.WidgetConfig) error {
	if c == nil || cfg == nil {
		return nil
	}
	ctx, span := cacheTracer.Start(ctx, "widget.cache.put")
	defer span.End()

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("widget: encode config: %w", err)
	}
	if err := c.client.Set(ctx, c.key(hospitalID), raw, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("widget: cache put: %w", err)
	}
	return nil
}

// Invalidate drops a cached config.
func (c *Cache) Invalidate(ctx context.Context, hospitalID string) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(hospitalID)).Err(); err != nil {
		return fmt.Errorf("widget: cache invalidate: %w", err)
	}
	return nil
}
