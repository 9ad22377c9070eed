package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-assistant/internal/api/router"
	appconfig "github.com/wolfman30/hospital-assistant/internal/config"
	"github.com/wolfman30/hospital-assistant/internal/conversation"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/observability/metrics"
	"github.com/wolfman30/hospital-assistant/internal/voice"
	"github.com/wolfman30/hospital-assistant/internal/webchat"
	"github.com/wolfman30/hospital-assistant/internal/widget"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

const (
	sweepInterval  = time.Minute
	runtimeMaxIdle = 30 * time.Minute
)

// App is the assembled server: the conversation engine, its surfaces and the
// background workers that support them.
type App struct {
	Config   *appconfig.Config
	Engine   *conversation.Engine
	Hospital *hospital.Client
	Metrics  *metrics.FlowMetrics
	Handler  http.Handler

	logger   *logging.Logger
	redis    *redis.Client
	pool     *pgxpool.Pool
	outcomes *OutcomeDelivery
	wg       sync.WaitGroup
}

// Option customises Build.
type Option func(*buildOptions)

type buildOptions struct {
	redis      *redis.Client
	httpClient *http.Client
	registry   *prometheus.Registry
}

// WithRedisClient supplies an existing Redis client instead of dialing REDIS_ADDR.
func WithRedisClient(c *redis.Client) Option { return func(o *buildOptions) { o.redis = c } }

// WithHTTPClient overrides the collaborator HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *buildOptions) { o.httpClient = c } }

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option { return func(o *buildOptions) { o.registry = reg } }

// Build wires every component from cfg. Optional backends (Redis, Postgres,
// AMQP) degrade to in-process fallbacks when unset or unreachable.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	flowMetrics := metrics.NewFlowMetrics(reg)

	app := &App{Config: cfg, Metrics: flowMetrics, logger: logger}

	app.redis = o.redis
	if app.redis == nil {
		app.redis = BuildRedisClient(ctx, cfg, logger, true)
	}
	store := BuildSessionStore(app.redis, cfg, logger)
	transcripts := BuildTranscriptStore(app.redis, cfg)

	clientOpts := []hospital.Option{
		hospital.WithTimeout(cfg.HospitalAPITimeout),
		hospital.WithRateLimit(cfg.HospitalAPIRatePerSec, int(cfg.HospitalAPIRatePerSec)+1),
		hospital.WithObserver(flowMetrics),
	}
	if o.httpClient != nil {
		clientOpts = append([]hospital.Option{hospital.WithHTTPClient(o.httpClient)}, clientOpts...)
	}
	app.Hospital = hospital.NewClient(cfg.HospitalAPIBaseURL, logger, clientOpts...)

	engineOpts := []conversation.Option{conversation.WithMetrics(flowMetrics)}
	if transcripts != nil {
		engineOpts = append(engineOpts, conversation.WithTranscript(transcripts))
	}
	if cfg.PersistFlowOutcomes {
		app.pool = ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
		app.outcomes = BuildOutcomeDelivery(app.pool, cfg, logger)
		if app.outcomes != nil {
			engineOpts = append(engineOpts, conversation.WithOutcomes(app.outcomes.Store))
		}
	}
	app.Engine = conversation.New(app.Hospital, store, conversation.Config{
		IDPrefix:        cfg.AppointmentIDPrefix,
		EditWindow:      cfg.EditWindow,
		DateHorizonDays: cfg.DateHorizonDays,
		DefaultLanguage: cfg.DefaultLanguage,
		Location:        cfg.Location(),
	}, logger, engineOpts...)

	script, err := loadWidgetScript(cfg.WidgetScriptPath)
	if err != nil {
		return nil, err
	}

	routerCfg := &router.Config{
		Logger: logger,
		Chat: webchat.NewHandler(app.Engine, webchat.Config{
			DefaultHospital: cfg.DefaultHospitalID,
			DefaultLanguage: cfg.DefaultLanguage,
		}, logger),
		Voice: voice.NewHandler(app.Engine, voice.HandlerConfig{
			Voice:           voice.Config{ResponseWindow: cfg.VoiceResponseWindow, MaxRetries: cfg.VoiceMaxRetries},
			DefaultHospital: cfg.DefaultHospitalID,
			DefaultLanguage: cfg.DefaultLanguage,
			Metrics:         flowMetrics,
		}, logger),
		Widget:             widget.NewHandler(app.Hospital, BuildWidgetCache(app.redis, cfg), script, logger),
		Slips:              app.Hospital,
		HealthChecks:       app.healthChecks(),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DefaultHospitalID:  cfg.DefaultHospitalID,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AdminAuthSecret:    cfg.AdminJWTSecret,
	}
	if app.outcomes != nil {
		routerCfg.Outcomes = app.outcomes.Store
	}
	app.Handler = router.New(routerCfg)
	return app, nil
}

func (a *App) healthChecks() map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	if a.pool != nil {
		checks["postgres"] = a.pool.Ping
	}
	return checks
}

// Start launches the background workers. They stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Engine.Run(ctx, sweepInterval, runtimeMaxIdle)
	}()
	if a.outcomes != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.outcomes.Start(ctx)
		}()
		a.logger.Info("outcome deliverer started", "interval", a.Config.OutboxPollInterval)
	}
}

// Close waits for the workers and releases connections. Cancel the Start
// context first.
func (a *App) Close() error {
	a.wg.Wait()
	var errs []error
	if err := a.outcomes.Close(); err != nil {
		errs = append(errs, fmt.Errorf("bootstrap: close amqp: %w", err))
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap: close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func loadWidgetScript(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: read widget script: %w", err)
	}
	return data, nil
}
