// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
)

// NewOriginPolicy builds the origin check shared by the CORS middleware
// and the WebSocket upgrader. An empty allow-list falls back to common
// development origins; "*" allows everything.
func NewOriginPolicy(allowedOrigins []string) func(origin string) bool {
	allowed := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	if len(allowedOrigins) == 0 {
		allowed["http://localhost:3000"] = true
		allowed["http://localhost:8080"] = true
		allowed["http://localhost:5173"] = true
		allowed["http://127.0.0.1:3000"] = true
		allowed["http://127.0.0.1:8080"] = true
	}

	allowAll := allowed["*"]
	return func(origin string) bool {
		return allowAll || allowed[origin]
	}
}

// CORS returns a middleware that sets Cross-Origin Resource Sharing headers
// against a strict allowed-origins list.
//
// Requests without an Origin header (curl, backend-to-backend) pass with a
// wildcard; browser requests from origins outside the list get no allow
// header and the browser blocks them.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	originAllowed := NewOriginPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				if originAllowed(origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			// Last-Event-ID rides along when EventSource clients reconnect.
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, Last-Event-ID")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.Header().Set("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")

			if r.Method == http.MethodOptions {
				w.Header().Set("Allow", "GET, POST, OPTIONS")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
