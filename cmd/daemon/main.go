// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runwire/runwire/internal/api"
	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/config"
	"github.com/runwire/runwire/internal/daemon"
	"github.com/runwire/runwire/internal/health"
	rwlog "github.com/runwire/runwire/internal/log"
	"github.com/runwire/runwire/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the real configuration is loaded.
	rwlog.Configure(rwlog.Config{
		Level:   "info",
		Service: "runwire",
		Version: version,
	})

	logger := rwlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: --config wins, then RUNWIRE_CONFIG, else env-only.
	explicitConfigPath := strings.TrimSpace(*configPath)
	effectiveConfigPath := explicitConfigPath
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	rwlog.Configure(rwlog.Config{
		Level:   cfg.LogLevel,
		Service: "runwire",
		Version: cfg.Version,
	})

	switch {
	case explicitConfigPath != "":
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", explicitConfigPath).
			Msg("loaded configuration from file")
	case effectiveConfigPath != "":
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file(env)").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from RUNWIRE_CONFIG file")
	default:
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Msg("starting runwired")

	logger.Info().Msgf("→ Broker: %s", describeBroker(cfg.Broker))
	logger.Info().Msgf("→ Stream heartbeat: %s", cfg.Stream.HeartbeatInterval)
	if len(cfg.HTTP.CORSOrigins) > 0 {
		logger.Info().Msgf("→ CORS origins: %s", strings.Join(cfg.HTTP.CORSOrigins, ", "))
	} else {
		logger.Info().Msg("→ CORS origins: localhost development defaults")
	}
	if cfg.HTTP.RateLimitRPM > 0 {
		logger.Info().Msgf("→ Ingest rate limit: %d req/min per client", cfg.HTTP.RateLimitRPM)
	} else {
		logger.Warn().Msg("→ Ingest rate limit: disabled")
	}
	if cfg.MetricsListen != "" {
		logger.Info().Msgf("→ Metrics: %s/metrics", cfg.MetricsListen)
	} else {
		logger.Info().Msg("→ Metrics: disabled")
	}
	if cfg.Otel.Enabled {
		logger.Info().Msgf("→ Tracing: %s via %s (sample %.2f)", cfg.Otel.Endpoint, cfg.Otel.Exporter, cfg.Otel.SampleRatio)
	}

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Otel.Enabled,
		ServiceName:    "runwired",
		ServiceVersion: version,
		Exporter:       cfg.Otel.Exporter,
		Endpoint:       cfg.Otel.Endpoint,
		SampleRatio:    cfg.Otel.SampleRatio,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}

	broker, pinger := buildBroker(cfg.Broker)

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.NewBrokerChecker(cfg.Broker.Kind, pinger))

	srv := api.New(api.Config{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		CORSOrigins:       cfg.HTTP.CORSOrigins,
		RateLimitRPM:      cfg.HTTP.RateLimitRPM,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		TracingService:    tracingService(cfg.Otel),
		BrokerKind:        cfg.Broker.Kind,
		Version:           version,
	}, broker, healthMgr)

	mgr, err := daemon.NewManager(daemon.ServerConfig{
		ListenAddr:  cfg.Listen,
		MetricsAddr: cfg.MetricsListen,
	}, daemon.Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "manager.creation_failed").
			Msg("failed to create daemon manager")
	}

	// Hooks run LIFO: broker close first, then exporter flush.
	mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	mgr.RegisterShutdownHook("broker", func(context.Context) error {
		return broker.Close()
	})

	var holder *config.Holder
	if effectiveConfigPath != "" {
		holder = config.NewHolder(cfg, config.NewLoader(effectiveConfigPath, version), effectiveConfigPath)
	}

	app := daemon.NewApp(logger, mgr, holder)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}

// buildBroker constructs the bus backend selected by the configuration.
// The returned pinger is nil for the in-process broker, which the health
// checker treats as always reachable.
func buildBroker(cfg config.BrokerConfig) (bus.Bus, health.Pinger) {
	switch cfg.Kind {
	case config.BrokerRedis:
		b := bus.NewRedis(bus.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Buffer:   cfg.SubscriberBuffer,
		}, rwlog.WithComponent("bus"))
		return b, b
	default:
		b := bus.NewMemory(
			bus.WithBuffer(cfg.SubscriberBuffer),
			bus.WithLogger(rwlog.WithComponent("bus")),
		)
		return b, nil
	}
}

func describeBroker(cfg config.BrokerConfig) string {
	if cfg.Kind == config.BrokerRedis {
		return fmt.Sprintf("redis (%s, db %d)", cfg.RedisAddr, cfg.RedisDB)
	}
	return fmt.Sprintf("memory (buffer %d)", cfg.SubscriberBuffer)
}

// tracingService names the otelhttp middleware target; empty disables it.
func tracingService(cfg config.OtelConfig) string {
	if !cfg.Enabled {
		return ""
	}
	return "runwired"
}

func resolveDefaultConfigPath() string {
	path := strings.TrimSpace(os.Getenv("RUNWIRE_CONFIG"))
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
