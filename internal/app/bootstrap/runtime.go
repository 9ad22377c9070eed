package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/hospital-assistant/internal/config"
	"github.com/wolfman30/hospital-assistant/internal/session"
	"github.com/wolfman30/hospital-assistant/internal/transcript"
	"github.com/wolfman30/hospital-assistant/internal/widget"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore returns the Redis flow-state store, or an in-process
// store when Redis is disabled. State in the memory store does not survive
// a restart.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil {
		logger.Warn("redis disabled; flow state kept in memory")
		return session.NewMemoryStore()
	}
	ttl := session.DefaultTTL
	if cfg != nil && cfg.FlowStateTTL > 0 {
		ttl = cfg.FlowStateTTL
	}
	return session.NewRedisStore(redisClient, ttl)
}

// BuildTranscriptStore returns the Redis transcript store or nil when Redis
// is disabled.
func BuildTranscriptStore(redisClient *redis.Client, cfg *appconfig.Config) *transcript.Store {
	if redisClient == nil {
		return nil
	}
	var limit int64
	ttl := transcript.DefaultTTL
	if cfg != nil {
		limit = cfg.TranscriptLimit
		if cfg.FlowStateTTL > 0 {
			ttl = cfg.FlowStateTTL
		}
	}
	return transcript.NewStore(redisClient, limit, ttl)
}

// BuildWidgetCache returns the Redis widget config cache or nil.
func BuildWidgetCache(redisClient *redis.Client, cfg *appconfig.Config) *widget.Cache {
	ttl := widget.DefaultTTL
	if cfg != nil && cfg.WidgetConfigTTL > 0 {
		ttl = cfg.WidgetConfigTTL
	}
	return widget.NewCache(redisClient, ttl)
}
