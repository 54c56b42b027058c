// SPDX-License-Identifier: MIT

// Package middleware holds the canonical HTTP ingress middleware stack.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/runwire/runwire/internal/log"
)

// StackConfig configures the canonical ingress middleware stack.
type StackConfig struct {
	// AllowedOrigins is the CORS allow-list. Empty falls back to the
	// development defaults.
	AllowedOrigins []string

	// TracingService names the service for OpenTelemetry HTTP spans.
	// Empty disables the tracing handler.
	TracingService string
}

// NewRouter constructs a chi router with the canonical middleware stack
// applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the canonical middleware stack to r. The order is
// fixed: recovery outermost, correlation before anything that logs, and
// the access log innermost so it captures the final status. Rate limiting
// is applied per route group, not here, because streaming routes are one
// long request and must not burn the limiter.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(SecurityHeaders())
	r.Use(Metrics())
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	r.Use(log.Middleware())
}
