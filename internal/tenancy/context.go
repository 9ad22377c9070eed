// Package tenancy carries the hospital scope of a request through context.
package tenancy

import (
	"context"
	"strings"
)

type ctxKey string

const (
	hospitalKey ctxKey = "hospital.hospital_id"
	languageKey ctxKey = "hospital.language"
)

// HospitalHeader names the request header that selects the tenant.
const HospitalHeader = "X-Hospital-Id"

// WithHospitalID stores the hospital id in context.
func WithHospitalID(ctx context.Context, hospitalID string) context.Context {
	return context.WithValue(ctx, hospitalKey, strings.TrimSpace(hospitalID))
}

// HospitalIDFromContext extracts the hospital id if present.
func HospitalIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(hospitalKey)
	if val == nil {
		return "", false
	}
	hospitalID, ok := val.(string)
	return hospitalID, ok && hospitalID != ""
}

// WithLanguage stores the negotiated conversation language.
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey, lang)
}

// LanguageFromContext returns the language or fallback when unset.
func LanguageFromContext(ctx context.Context, fallback string) string {
	if lang, ok := ctx.Value(languageKey).(string); ok && lang != "" {
		return lang
	}
	return fallback
}
