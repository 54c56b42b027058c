// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/runwire/runwire/internal/config"
	"github.com/runwire/runwire/internal/log"
)

// App owns the long-lived runtime pieces around the Manager: the config
// watcher, the reload signal and the live application of reloaded
// settings.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	reloadSignal os.Signal
}

// NewApp wires the orchestrator. holder may be nil when the
// configuration is env-only and has nothing to watch.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts the background subsystems and blocks until ctx is canceled
// or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.holder != nil {
		// The watcher is best-effort: a daemon without hot reload is
		// still a working daemon.
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).
				Str("event", "config.watcher_start_failed").
				Msg("failed to start config watcher")
		}
		defer a.holder.Stop()

		applyCh := make(chan config.Config, 1)
		a.holder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})

		g.Go(func() error {
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, a.reloadSignal)
			defer signal.Stop(hup)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hup:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.holder.Reload(context.Background()); err != nil {
						a.logger.Warn().Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}

// applyConfig applies the live-appliable part of a reloaded
// configuration. Only the log level changes at runtime; listener and
// broker changes need a restart, which the holder's change log calls
// out.
func (a *App) applyConfig(cfg config.Config) {
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		a.logger.Warn().Err(err).
			Str("level", cfg.LogLevel).
			Msg("invalid log level in reloaded config")
		return
	}
	a.logger.Info().
		Str("event", "config.applied").
		Str("log_level", cfg.LogLevel).
		Msg("reloaded configuration applied")
}
