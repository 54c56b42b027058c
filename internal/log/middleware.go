// SPDX-License-Identifier: MIT

package log

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Middleware returns an access-log handler emitting one line per completed
// request, enriched with correlation fields from the request context. For
// streaming routes the line is written when the stream ends, so its
// duration covers the whole connection.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger := WithContext(r.Context(), Base())
			logger.Info().
				Str(FieldEvent, "request.handled").
				Str(FieldMethod, r.Method).
				Str(FieldPath, r.URL.Path).
				Int(FieldStatus, ww.Status()).
				Int(FieldBytes, ww.BytesWritten()).
				Dur(FieldDuration, time.Since(start)).
				Str(FieldRemote, r.RemoteAddr).
				Msg("request completed")
		})
	}
}
