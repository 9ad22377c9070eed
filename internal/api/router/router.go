package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/hospital-assistant/internal/http/middleware"
	"github.com/wolfman30/hospital-assistant/internal/voice"
	"github.com/wolfman30/hospital-assistant/internal/webchat"
	"github.com/wolfman30/hospital-assistant/internal/widget"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	Chat              *webchat.Handler
	Voice             *voice.Handler
	Widget            *widget.Handler
	Slips             SlipSource
	Outcomes          OutcomeLister
	HealthChecks      map[string]HealthCheck
	MetricsHandler    http.Handler
	DefaultHospitalID string

	CORSAllowedOrigins []string
	RateLimitPerMinute int
	// SessionRatePerSec bounds chat and voice events per client within a
	// hospital. Zero disables the per-hospital limiter.
	SessionRatePerSec float64
	AdminAuthSecret   string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health, metrics, widget embed)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks, cfg.Logger))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Widget != nil {
			public.Get("/widget.js", cfg.Widget.HandleScript)
			public.With(
				httpmiddleware.RateLimit(cfg.RateLimitPerMinute),
				httpmiddleware.Hospital(""),
			).Get("/api/v1/hospitals/{hospitalID}/widget/config", cfg.Widget.HandleConfig)
		}
	})

	// Conversation surfaces. The handlers resolve the hospital themselves so a
	// body or query hospital id is honoured.
	r.Group(func(conv chi.Router) {
		conv.Use(httpmiddleware.RateLimit(cfg.RateLimitPerMinute))
		if cfg.SessionRatePerSec > 0 {
			limiter := httpmiddleware.NewRateLimiter(cfg.SessionRatePerSec, 5)
			conv.Use(limiter.PerHospital)
		}
		if cfg.Chat != nil {
			conv.Route("/chat", func(r chi.Router) {
				r.Get("/ws", cfg.Chat.HandleWebSocket)
				r.Post("/message", cfg.Chat.HandleMessage)
				r.Get("/history", cfg.Chat.HandleHistory)
			})
		}
		if cfg.Voice != nil {
			conv.Route("/voice", func(r chi.Router) {
				r.Get("/ws", cfg.Voice.HandleWebSocket)
				r.Post("/turn", cfg.Voice.HandleTurn)
			})
		}
	})

	// Tenant-scoped collaborator proxies
	if cfg.Slips != nil {
		r.Group(func(tenant chi.Router) {
			tenant.Use(httpmiddleware.RateLimit(cfg.RateLimitPerMinute))
			tenant.Use(httpmiddleware.Hospital(cfg.DefaultHospitalID))
			tenant.Use(middleware.Timeout(30 * time.Second))
			tenant.Get("/appointments/{appointmentID}/slip", slipHandler(cfg.Slips, cfg.Logger))
		})
	}

	// Admin routes (protected by HMAC JWT, scoped per hospital)
	if cfg.AdminAuthSecret != "" && cfg.Outcomes != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/hospitals/{hospitalID}", func(h chi.Router) {
				h.Use(httpmiddleware.RequireHospitalAccess("hospitalID"))
				h.Get("/outcomes", outcomesHandler(cfg.Outcomes, cfg.Logger))
			})
		})
	}

	return r
}
