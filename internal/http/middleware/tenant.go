package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/hospital-assistant/internal/tenancy"
)

// Hospital resolves the tenant of a request and stores it in context. The
// hospitalID URL parameter wins, then the X-Hospital-Id header, then the
// hospital query parameter, then fallback. Requests naming no hospital are
// rejected when fallback is empty.
func Hospital(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hospitalID := firstNonEmpty(
				chi.URLParam(r, "hospitalID"),
				r.Header.Get(tenancy.HospitalHeader),
				r.URL.Query().Get("hospital"),
				fallback,
			)
			if hospitalID == "" {
				http.Error(w, "hospital id is required", http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithHospitalID(r.Context(), hospitalID)))
		})
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
