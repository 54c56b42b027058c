// SPDX-License-Identifier: MIT

package health

import (
	"fmt"
	"net"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/config"
	"github.com/runwire/runwire/internal/log"
)

// PerformStartupChecks validates the environment before the daemon starts
// serving. Failures here should abort startup rather than surface later as
// confusing runtime errors.
func PerformStartupChecks(cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkListenAddr(logger, "API", cfg.Listen); err != nil {
		return err
	}
	if cfg.MetricsListen == "" {
		logger.Warn().Msg("metrics listener disabled")
	} else if err := checkListenAddr(logger, "metrics", cfg.MetricsListen); err != nil {
		return err
	}
	if err := checkBroker(logger, cfg.Broker); err != nil {
		return err
	}
	if err := checkOtel(logger, cfg.Otel); err != nil {
		return err
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, label, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s listen address is empty", label)
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s listen address %q: %w", label, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s listen port %q in %q", label, port, addr)
	}
	logger.Info().Str("addr", addr).Msgf("✓ %s listen address is valid", label)
	return nil
}

func checkBroker(logger zerolog.Logger, cfg config.BrokerConfig) error {
	switch cfg.Kind {
	case config.BrokerMemory:
		logger.Warn().
			Str("broker", cfg.Kind).
			Msg("in-memory broker; events do not cross process boundaries")

	case config.BrokerRedis:
		if _, _, err := net.SplitHostPort(cfg.RedisAddr); err != nil {
			return fmt.Errorf("invalid redis address %q: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("✓ Redis broker address is valid")

	default:
		return fmt.Errorf("unknown broker kind %q", cfg.Kind)
	}
	return nil
}

func checkOtel(logger zerolog.Logger, cfg config.OtelConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("otel enabled but endpoint is empty")
	}
	if _, _, err := net.SplitHostPort(cfg.Endpoint); err != nil {
		return fmt.Errorf("invalid otel endpoint %q: %w", cfg.Endpoint, err)
	}
	logger.Info().Str("endpoint", cfg.Endpoint).Msg("✓ OTLP endpoint is valid")
	return nil
}
