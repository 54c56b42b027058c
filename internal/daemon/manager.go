// SPDX-License-Identifier: MIT

// Package daemon owns the process lifecycle: server startup, graceful
// shutdown with LIFO hooks, config watching and reload signals.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// Manager manages the daemon's server lifecycle.
type Manager interface {
	// Start starts the configured listeners and blocks until shutdown.
	Start(ctx context.Context) error

	// Shutdown gracefully stops the listeners and runs the hooks.
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook adds a cleanup step for shutdown (LIFO).
	RegisterShutdownHook(name string, hook ShutdownHook)
}

// ServerConfig carries the listener parameters for both servers.
type ServerConfig struct {
	ListenAddr      string
	MetricsAddr     string // empty disables the metrics listener
	ShutdownTimeout time.Duration
}

type manager struct {
	cfg  ServerConfig
	deps Deps

	apiServer     *http.Server
	metricsServer *http.Server

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

// namedHook pairs a shutdown hook with a name for logging.
type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager validates the dependencies and builds a manager.
func NewManager(cfg ServerConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	return &manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "manager").Logger(),
	}, nil
}

// Start brings up the listeners and blocks until ctx is canceled or a
// server fails. Both exits run a bounded shutdown.
func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("listen", m.cfg.ListenAddr).
		Str("metrics_listen", m.cfg.MetricsAddr).
		Dur("shutdown_timeout", m.cfg.ShutdownTimeout).
		Msg("starting daemon manager")

	errChan := make(chan error, 2)

	if m.deps.MetricsHandler != nil && m.cfg.MetricsAddr != "" {
		m.startMetricsServer(errChan)
	}
	m.startAPIServer(errChan)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).Msg("server error, initiating shutdown")
		// Detached but bounded so shutdown completes even if the
		// parent is already canceled.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

// startAPIServer runs the API listener. The server carries no write
// timeout: event streams are long-lived responses, and a write timeout
// would cut every stream at that age.
func (m *manager) startAPIServer(errChan chan<- error) {
	m.apiServer = &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.deps.APIHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		m.logger.Info().Str("addr", m.cfg.ListenAddr).Msg("API server listening")
		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str("event", "api.server_failed").Msg("API server failed")
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()
}

func (m *manager) startMetricsServer(errChan chan<- error) {
	m.metricsServer = &http.Server{
		Addr:              m.cfg.MetricsAddr,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		m.logger.Info().Str("addr", m.cfg.MetricsAddr).Msg("metrics server listening")
		if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).Str("event", "metrics.server_failed").Msg("metrics server failed")
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

// Shutdown stops both servers and runs the hooks LIFO. Calling it again
// after the first shutdown is a no-op.
func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	hooks := make([]namedHook, len(m.shutdownHooks))
	copy(hooks, m.shutdownHooks)
	m.mu.Unlock()

	m.logger.Info().Msg("shutting down daemon manager")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(shutdownCtx); err != nil {
			m.logger.Error().Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		} else {
			m.logger.Debug().
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook completed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Msg("daemon manager stopped cleanly")
	return nil
}

// RegisterShutdownHook adds a named cleanup step. Hooks registered
// first run last.
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}
