// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"strings"
	"time"
)

// Environment variable names consumed by the loader.
const (
	EnvListen        = "RUNWIRE_LISTEN"
	EnvMetricsListen = "RUNWIRE_METRICS_LISTEN"
	EnvLogLevel      = "RUNWIRE_LOG_LEVEL"

	EnvBroker           = "RUNWIRE_BROKER"
	EnvRedisAddr        = "RUNWIRE_REDIS_ADDR"
	EnvRedisPassword    = "RUNWIRE_REDIS_PASSWORD"
	EnvRedisDB          = "RUNWIRE_REDIS_DB"
	EnvSubscriberBuffer = "RUNWIRE_SUBSCRIBER_BUFFER"

	EnvHeartbeatInterval = "RUNWIRE_HEARTBEAT_INTERVAL"

	EnvReconnectMin       = "RUNWIRE_RECONNECT_MIN"
	EnvReconnectMax       = "RUNWIRE_RECONNECT_MAX"
	EnvClientRecentBuffer = "RUNWIRE_CLIENT_RECENT_BUFFER"

	EnvDeltaRate  = "RUNWIRE_DELTA_RATE"
	EnvDeltaBurst = "RUNWIRE_DELTA_BURST"

	EnvCORSOrigins  = "RUNWIRE_CORS_ORIGINS"
	EnvRateLimitRPM = "RUNWIRE_RATE_LIMIT_RPM"
	EnvMaxBodyBytes = "RUNWIRE_MAX_BODY_BYTES"

	EnvOtelEnabled     = "RUNWIRE_OTEL_ENABLED"
	EnvOtelExporter    = "RUNWIRE_OTEL_EXPORTER"
	EnvOtelEndpoint    = "RUNWIRE_OTEL_ENDPOINT"
	EnvOtelSampleRatio = "RUNWIRE_OTEL_SAMPLE_RATIO"
)

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. configPath may be empty for ENV-only use.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the configuration: defaults first, then the strict YAML
// file when present, then environment overrides, then validation.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFileConfig applies the file layer on top of the defaults. A
// malformed duration in the file is an error, matching strict parsing.
func mergeFileConfig(cfg *Config, file *FileConfig) error {
	if file.Listen != "" {
		cfg.Listen = file.Listen
	}
	if file.MetricsListen != "" {
		cfg.MetricsListen = file.MetricsListen
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}

	if file.Broker.Kind != "" {
		cfg.Broker.Kind = file.Broker.Kind
	}
	if file.Broker.RedisAddr != "" {
		cfg.Broker.RedisAddr = file.Broker.RedisAddr
	}
	if file.Broker.RedisPassword != "" {
		cfg.Broker.RedisPassword = file.Broker.RedisPassword
	}
	if file.Broker.RedisDB != nil {
		cfg.Broker.RedisDB = *file.Broker.RedisDB
	}
	if file.Broker.SubscriberBuffer != nil {
		cfg.Broker.SubscriberBuffer = *file.Broker.SubscriberBuffer
	}

	if file.Stream.HeartbeatInterval != "" {
		d, err := parseFileDuration("stream.heartbeatInterval", file.Stream.HeartbeatInterval)
		if err != nil {
			return err
		}
		cfg.Stream.HeartbeatInterval = d
	}

	if file.Client.ReconnectMin != "" {
		d, err := parseFileDuration("client.reconnectMin", file.Client.ReconnectMin)
		if err != nil {
			return err
		}
		cfg.Client.ReconnectMin = d
	}
	if file.Client.ReconnectMax != "" {
		d, err := parseFileDuration("client.reconnectMax", file.Client.ReconnectMax)
		if err != nil {
			return err
		}
		cfg.Client.ReconnectMax = d
	}
	if file.Client.RecentBuffer != nil {
		cfg.Client.RecentBuffer = *file.Client.RecentBuffer
	}

	if file.Dispatch.DeltaRate != nil {
		cfg.Dispatch.DeltaRate = *file.Dispatch.DeltaRate
	}
	if file.Dispatch.DeltaBurst != nil {
		cfg.Dispatch.DeltaBurst = *file.Dispatch.DeltaBurst
	}

	if len(file.HTTP.CORSOrigins) > 0 {
		cfg.HTTP.CORSOrigins = file.HTTP.CORSOrigins
	}
	if file.HTTP.RateLimitRPM != nil {
		cfg.HTTP.RateLimitRPM = *file.HTTP.RateLimitRPM
	}
	if file.HTTP.MaxBodyBytes != nil {
		cfg.HTTP.MaxBodyBytes = *file.HTTP.MaxBodyBytes
	}

	if file.Otel.Enabled != nil {
		cfg.Otel.Enabled = *file.Otel.Enabled
	}
	if file.Otel.Exporter != "" {
		cfg.Otel.Exporter = file.Otel.Exporter
	}
	if file.Otel.Endpoint != "" {
		cfg.Otel.Endpoint = file.Otel.Endpoint
	}
	if file.Otel.SampleRatio != nil {
		cfg.Otel.SampleRatio = *file.Otel.SampleRatio
	}
	return nil
}

func parseFileDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	return d, nil
}

// mergeEnvConfig applies the environment layer, the highest precedence.
func mergeEnvConfig(cfg *Config) {
	cfg.Listen = ParseString(EnvListen, cfg.Listen)
	cfg.MetricsListen = ParseString(EnvMetricsListen, cfg.MetricsListen)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)

	cfg.Broker.Kind = ParseString(EnvBroker, cfg.Broker.Kind)
	cfg.Broker.RedisAddr = ParseString(EnvRedisAddr, cfg.Broker.RedisAddr)
	cfg.Broker.RedisPassword = ParseString(EnvRedisPassword, cfg.Broker.RedisPassword)
	cfg.Broker.RedisDB = ParseInt(EnvRedisDB, cfg.Broker.RedisDB)
	cfg.Broker.SubscriberBuffer = ParseInt(EnvSubscriberBuffer, cfg.Broker.SubscriberBuffer)

	cfg.Stream.HeartbeatInterval = ParseDuration(EnvHeartbeatInterval, cfg.Stream.HeartbeatInterval)

	cfg.Client.ReconnectMin = ParseDuration(EnvReconnectMin, cfg.Client.ReconnectMin)
	cfg.Client.ReconnectMax = ParseDuration(EnvReconnectMax, cfg.Client.ReconnectMax)
	cfg.Client.RecentBuffer = ParseInt(EnvClientRecentBuffer, cfg.Client.RecentBuffer)

	cfg.Dispatch.DeltaRate = ParseFloat(EnvDeltaRate, cfg.Dispatch.DeltaRate)
	cfg.Dispatch.DeltaBurst = ParseInt(EnvDeltaBurst, cfg.Dispatch.DeltaBurst)

	if origins := ParseString(EnvCORSOrigins, ""); origins != "" {
		cfg.HTTP.CORSOrigins = splitCSV(origins)
	}
	cfg.HTTP.RateLimitRPM = ParseInt(EnvRateLimitRPM, cfg.HTTP.RateLimitRPM)
	cfg.HTTP.MaxBodyBytes = ParseInt64(EnvMaxBodyBytes, cfg.HTTP.MaxBodyBytes)

	cfg.Otel.Enabled = ParseBool(EnvOtelEnabled, cfg.Otel.Enabled)
	cfg.Otel.Exporter = ParseString(EnvOtelExporter, cfg.Otel.Exporter)
	cfg.Otel.Endpoint = ParseString(EnvOtelEndpoint, cfg.Otel.Endpoint)
	cfg.Otel.SampleRatio = ParseFloat(EnvOtelSampleRatio, cfg.Otel.SampleRatio)
}

func splitCSV(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
