// SPDX-License-Identifier: MIT

// Package api serves the daemon's HTTP surface: SSE and WebSocket event
// streams, the remote-producer ingest endpoint, health probes and the
// status snapshot.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/api/middleware"
	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/health"
	"github.com/runwire/runwire/internal/log"
)

// Config carries the server's ingress policy. Zero values fall back to
// safe defaults; optional pieces (rate limit, tracing) stay off when
// their field is empty.
type Config struct {
	HeartbeatInterval time.Duration
	CORSOrigins       []string
	RateLimitRPM      int
	MaxBodyBytes      int64
	TracingService    string // empty disables the otelhttp middleware
	BrokerKind        string
	Version           string
}

// Server routes envelopes between HTTP clients and the bus.
type Server struct {
	cfg      Config
	bus      bus.Bus
	health   *health.Manager
	logger   zerolog.Logger
	router   chi.Router
	started  time.Time
	streams  *streamTracker
	upgrader websocket.Upgrader
}

// New creates the API server and wires its routes.
func New(cfg Config, b bus.Bus, healthMgr *health.Manager) *Server {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		cfg:     cfg,
		bus:     b,
		health:  healthMgr,
		logger:  log.WithComponent("api"),
		started: time.Now(),
		streams: newStreamTracker(),
	}

	// WebSocket upgrades reuse the CORS origin policy. Requests without
	// an Origin header come from non-browser clients and pass.
	originAllowed := middleware.NewOriginPolicy(cfg.CORSOrigins)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin)
		},
	}

	s.routes()
	return s
}

// Handler returns the root handler for the API listener.
func (s *Server) Handler() http.Handler { return s.router }

// streamTracker counts open streaming connections for the status
// endpoint. The gauges in internal/metrics carry the same numbers; this
// keeps the status handler from scraping its own registry.
type streamTracker struct {
	mu          sync.Mutex
	byTransport map[string]int
	byKind      map[string]int
}

func newStreamTracker() *streamTracker {
	return &streamTracker{
		byTransport: make(map[string]int),
		byKind:      make(map[string]int),
	}
}

// track registers an open stream and returns its idempotent release.
func (t *streamTracker) track(transport, kind string) func() {
	t.mu.Lock()
	t.byTransport[transport]++
	t.byKind[kind]++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.byTransport[transport]--
			t.byKind[kind]--
			t.mu.Unlock()
		})
	}
}

func (t *streamTracker) snapshot() (byTransport, byKind map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byTransport = make(map[string]int, len(t.byTransport))
	for k, v := range t.byTransport {
		byTransport[k] = v
	}
	byKind = make(map[string]int, len(t.byKind))
	for k, v := range t.byKind {
		byKind[k] = v
	}
	return byTransport, byKind
}
