// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation,
// creating spans for all requests and propagating trace context.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and metrics endpoints to reduce noise.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/livez", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter creates span names of the form "HTTP GET /events".
// Query parameters are indicated without exposing their values.
func spanNameFormatter(operation string, r *http.Request) string {
	route := r.URL.Path
	if r.URL.RawQuery != "" {
		return operation + " " + route + "?"
	}
	return operation + " " + route
}

// AddSpanAttributes adds custom attributes to the current request span.
// Safe to call when tracing is disabled (noop span).
func AddSpanAttributes(r *http.Request, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attrs...)
}
