// Package widget serves the embeddable floating assistant and its
// per-hospital configuration.
package widget

import (
	"context"
	_ "embed"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

//go:embed widget.js
var defaultScript []byte

// ConfigSource fetches widget configs from the hospital collaborator.
type ConfigSource interface {
	WidgetConfig(ctx context.Context, hospitalID string) (*hospital.WidgetConfig, error)
}

// Handler serves /widget.js and the widget config endpoint.
type Handler struct {
	source ConfigSource
	cache  *Cache
	script []byte
	logger *logging.Logger
}

// NewHandler builds a handler. An empty script serves the embedded one.
func NewHandler(source ConfigSource, cache *Cache, script []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if len(script) == 0 {
		script = defaultScript
	}
	return &Handler{source: source, cache: cache, script: script, logger: logger}
}

// HandleScript serves the embeddable widget JavaScript.
func (h *Handler) HandleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.script)
}

// Config returns the widget config for a hospital, from cache when possible.
func (h *Handler) Config(ctx context.Context, hospitalID string) (*hospital.WidgetConfig, error) {
	cfg, err := h.cache.Get(ctx, hospitalID)
	if err != nil {
		h.logger.Warn("widget: cache read failed", "error", err, "hospital_id", hospitalID)
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg, err = h.source.WidgetConfig(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if cfg.HospitalID == "" {
		cfg.HospitalID = hospitalID
	}
	if err := h.cache.Put(ctx, hospitalID, cfg); err != nil {
		h.logger.Warn("widget: cache write failed", "error", err, "hospital_id", hospitalID)
	}
	return cfg, nil
}

// HandleConfig serves GET /api/v1/hospitals/{hospitalID}/widget/config.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	hospitalID := strings.TrimSpace(chi.URLParam(r, "hospitalID"))
	if hospitalID == "" {
		http.Error(w, "hospital id is required", http.StatusBadRequest)
		return
	}

	cfg, err := h.Config(r.Context(), hospitalID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": apperrors.ClientMessage(err, "Hospital not found.")})
			return
		}
		h.logger.Error("widget: config fetch failed", "error", err, "hospital_id", hospitalID)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Widget configuration is unavailable."})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, map[string]any{"config": cfg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
