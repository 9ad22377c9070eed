package router

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/wolfman30/hospital-assistant/internal/apperrors"
	"github.com/wolfman30/hospital-assistant/internal/events"
	"github.com/wolfman30/hospital-assistant/pkg/logging"
)

// SlipSource streams confirmation slips from the collaborator.
type SlipSource interface {
	Slip(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// OutcomeLister reads recorded flow outcomes.
type OutcomeLister interface {
	ListRecent(ctx context.Context, hospitalID string, limit int32) ([]events.OutboxEntry, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

const (
	defaultOutcomeLimit = 50
	maxOutcomeLimit     = 500
)

func healthHandler(checks map[string]HealthCheck, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := map[string]any{"status": "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			deps := make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					logger.Warn("health check failed", "dependency", name, "error", err)
					deps[name] = "unavailable"
					resp["status"] = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				deps[name] = "ok"
			}
			resp["dependencies"] = deps
		}
		writeJSON(w, status, resp)
	}
}

func slipHandler(src SlipSource, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "appointmentID"))
		if id == "" {
			http.Error(w, "appointment id is required", http.StatusBadRequest)
			return
		}
		body, contentType, err := src.Slip(r.Context(), id)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "Appointment slip not found."})
				return
			}
			logger.Error("slip download failed", "error", err, "appointment_id", id)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Could not fetch the appointment slip. Please try again."})
			return
		}
		defer body.Close()

		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="appointment-`+id+`.pdf"`)
		if _, err := io.Copy(w, body); err != nil {
			logger.Warn("slip stream interrupted", "error", err, "appointment_id", id)
		}
	}
}

func outcomesHandler(src OutcomeLister, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		hospitalID := chi.URLParam(r, "hospitalID")
		limit := defaultOutcomeLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = min(n, maxOutcomeLimit)
		}

		entries, err := src.ListRecent(r.Context(), hospitalID, int32(limit))
		if err != nil {
			logger.Error("list outcomes failed", "error", err, "hospital_id", hospitalID)
			http.Error(w, "failed to list outcomes", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []events.OutboxEntry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"hospital_id": hospitalID, "outcomes": entries})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
