// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration with the
// precedence ENV > YAML file > defaults, and supports hot reloading of
// the file-backed part.
package config

import (
	"fmt"
	"time"
)

// Broker kinds accepted by BrokerConfig.Kind.
const (
	BrokerMemory = "memory"
	BrokerRedis  = "redis"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Listen        string // API listen address
	MetricsListen string // metrics listen address; empty disables the listener
	LogLevel      string
	Version       string // stamped by the binary, not configurable

	Broker   BrokerConfig
	Stream   StreamConfig
	Client   ClientConfig
	Dispatch DispatchConfig
	HTTP     HTTPConfig
	Otel     OtelConfig
}

// BrokerConfig selects and parameterizes the bus backend.
type BrokerConfig struct {
	Kind             string // memory | redis
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SubscriberBuffer int // per-subscription buffer before drop-oldest kicks in
}

// StreamConfig parameterizes the streaming transport.
type StreamConfig struct {
	HeartbeatInterval time.Duration
}

// ClientConfig parameterizes the embedded stream consumer.
type ClientConfig struct {
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	RecentBuffer int
}

// DispatchConfig parameterizes the producer façade. DeltaRate 0 disables
// delta throttling entirely.
type DispatchConfig struct {
	DeltaRate  float64 // deltas per second per dispatcher
	DeltaBurst int
}

// HTTPConfig carries ingress policy for the API server.
type HTTPConfig struct {
	CORSOrigins  []string
	RateLimitRPM int   // ingest requests per minute per client IP; 0 disables
	MaxBodyBytes int64 // ingest body cap
}

// OtelConfig controls trace export.
type OtelConfig struct {
	Enabled     bool
	Exporter    string // grpc | http
	Endpoint    string
	SampleRatio float64
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:        ":8080",
		MetricsListen: ":9090",
		LogLevel:      "info",
		Broker: BrokerConfig{
			Kind:             BrokerMemory,
			RedisAddr:        "localhost:6379",
			SubscriberBuffer: 64,
		},
		Stream: StreamConfig{
			HeartbeatInterval: 15 * time.Second,
		},
		Client: ClientConfig{
			ReconnectMin: time.Second,
			ReconnectMax: 30 * time.Second,
			RecentBuffer: 256,
		},
		Dispatch: DispatchConfig{
			DeltaRate:  0,
			DeltaBurst: 32,
		},
		HTTP: HTTPConfig{
			RateLimitRPM: 300,
			MaxBodyBytes: 1 << 20,
		},
		Otel: OtelConfig{
			Exporter:    "grpc",
			Endpoint:    "localhost:4317",
			SampleRatio: 1.0,
		},
	}
}

// Validate checks the resolved configuration for contradictions. It is
// run on startup and again on every reload; a reload that fails keeps
// the previous configuration.
func Validate(cfg Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	switch cfg.Broker.Kind {
	case BrokerMemory:
	case BrokerRedis:
		if cfg.Broker.RedisAddr == "" {
			return fmt.Errorf("broker %q requires a redis address", BrokerRedis)
		}
	default:
		return fmt.Errorf("unknown broker kind %q (want %s or %s)", cfg.Broker.Kind, BrokerMemory, BrokerRedis)
	}
	if cfg.Broker.SubscriberBuffer <= 0 {
		return fmt.Errorf("subscriber buffer must be positive, got %d", cfg.Broker.SubscriberBuffer)
	}
	if cfg.Stream.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Client.ReconnectMin <= 0 {
		return fmt.Errorf("reconnect minimum must be positive, got %s", cfg.Client.ReconnectMin)
	}
	if cfg.Client.ReconnectMax < cfg.Client.ReconnectMin {
		return fmt.Errorf("reconnect maximum %s below minimum %s", cfg.Client.ReconnectMax, cfg.Client.ReconnectMin)
	}
	if cfg.Client.RecentBuffer <= 0 {
		return fmt.Errorf("client recent buffer must be positive, got %d", cfg.Client.RecentBuffer)
	}
	if cfg.Dispatch.DeltaRate < 0 {
		return fmt.Errorf("delta rate must not be negative, got %g", cfg.Dispatch.DeltaRate)
	}
	if cfg.Dispatch.DeltaRate > 0 && cfg.Dispatch.DeltaBurst <= 0 {
		return fmt.Errorf("delta burst must be positive when delta rate is set, got %d", cfg.Dispatch.DeltaBurst)
	}
	if cfg.HTTP.RateLimitRPM < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", cfg.HTTP.RateLimitRPM)
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", cfg.HTTP.MaxBodyBytes)
	}
	if cfg.Otel.Enabled {
		if cfg.Otel.Exporter != "grpc" && cfg.Otel.Exporter != "http" {
			return fmt.Errorf("unknown otel exporter %q (want grpc or http)", cfg.Otel.Exporter)
		}
		if cfg.Otel.Endpoint == "" {
			return fmt.Errorf("otel endpoint must not be empty when tracing is enabled")
		}
	}
	if cfg.Otel.SampleRatio < 0 || cfg.Otel.SampleRatio > 1 {
		return fmt.Errorf("otel sample ratio must be in [0,1], got %g", cfg.Otel.SampleRatio)
	}
	return nil
}
