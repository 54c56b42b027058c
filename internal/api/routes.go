// SPDX-License-Identifier: MIT

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/runwire/runwire/internal/api/middleware"
)

func (s *Server) routes() {
	r := middleware.NewRouter(middleware.StackConfig{
		AllowedOrigins: s.cfg.CORSOrigins,
		TracingService: s.cfg.TracingService,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	// Streaming routes stay outside the rate limiter: a stream is one
	// long-lived request. The literal broadcast route wins over the
	// session parameter, so "broadcast" is not addressable as a session.
	r.Get("/events/broadcast", s.handleBroadcastStream)
	r.Get("/events/{session_id}", s.handleSessionStream)
	r.Get("/events/{session_id}/ws", s.handleSessionWS)

	r.Group(func(g chi.Router) {
		if s.cfg.RateLimitRPM > 0 {
			g.Use(middleware.PerMinute(s.cfg.RateLimitRPM))
		}
		g.Post("/events", s.handleIngest)
		g.Get("/api/status", s.handleStatus)
	})

	s.router = r
}
