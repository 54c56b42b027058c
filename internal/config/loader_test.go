// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader("", "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := Default()
	want.Version = "v-test"
	if cfg.Listen != want.Listen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, want.Listen)
	}
	if cfg.Broker.Kind != BrokerMemory {
		t.Errorf("Broker.Kind = %q, want %q", cfg.Broker.Kind, BrokerMemory)
	}
	if cfg.Stream.HeartbeatInterval != 15*time.Second {
		t.Errorf("HeartbeatInterval = %s, want 15s", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Version != "v-test" {
		t.Errorf("Version = %q, want v-test", cfg.Version)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":9999"
logLevel: debug
broker:
  kind: redis
  redisAddr: redis.internal:6379
  redisDB: 2
  subscriberBuffer: 128
stream:
  heartbeatInterval: 5s
client:
  reconnectMin: 2s
  reconnectMax: 1m
  recentBuffer: 32
dispatch:
  deltaRate: 50.0
  deltaBurst: 10
http:
  corsOrigins: ["https://ui.example.com"]
  rateLimitRPM: 60
otel:
  enabled: true
  exporter: http
  endpoint: collector:4318
  sampleRatio: 0.1
`)

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q, want :9999", cfg.Listen)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Broker.Kind != BrokerRedis || cfg.Broker.RedisAddr != "redis.internal:6379" || cfg.Broker.RedisDB != 2 {
		t.Errorf("unexpected broker config: %+v", cfg.Broker)
	}
	if cfg.Broker.SubscriberBuffer != 128 {
		t.Errorf("SubscriberBuffer = %d, want 128", cfg.Broker.SubscriberBuffer)
	}
	if cfg.Stream.HeartbeatInterval != 5*time.Second {
		t.Errorf("HeartbeatInterval = %s, want 5s", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Client.ReconnectMin != 2*time.Second || cfg.Client.ReconnectMax != time.Minute {
		t.Errorf("unexpected client backoff: %+v", cfg.Client)
	}
	if cfg.Client.RecentBuffer != 32 {
		t.Errorf("RecentBuffer = %d, want 32", cfg.Client.RecentBuffer)
	}
	if cfg.Dispatch.DeltaRate != 50.0 || cfg.Dispatch.DeltaBurst != 10 {
		t.Errorf("unexpected dispatch config: %+v", cfg.Dispatch)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://ui.example.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.HTTP.RateLimitRPM != 60 {
		t.Errorf("RateLimitRPM = %d, want 60", cfg.HTTP.RateLimitRPM)
	}
	if !cfg.Otel.Enabled || cfg.Otel.Exporter != "http" || cfg.Otel.Endpoint != "collector:4318" || cfg.Otel.SampleRatio != 0.1 {
		t.Errorf("unexpected otel config: %+v", cfg.Otel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":7777"
broker:
  kind: memory
stream:
  heartbeatInterval: 5s
`)

	t.Setenv(EnvListen, ":8888")
	t.Setenv(EnvHeartbeatInterval, "30s")
	t.Setenv(EnvBroker, "redis")
	t.Setenv(EnvRedisAddr, "env-redis:6379")
	t.Setenv(EnvCORSOrigins, "https://a.example.com, https://b.example.com")

	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Listen != ":8888" {
		t.Errorf("Listen = %q, want env value :8888", cfg.Listen)
	}
	if cfg.Stream.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %s, want env value 30s", cfg.Stream.HeartbeatInterval)
	}
	if cfg.Broker.Kind != BrokerRedis || cfg.Broker.RedisAddr != "env-redis:6379" {
		t.Errorf("unexpected broker config: %+v", cfg.Broker)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfigFile(t, `
listen: ":8080"
unknownField: nope
`)

	loader := NewLoader(path, "test")
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected strict parse error for unknown field, got nil")
	}
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfigFile(t, "listen: \":8080\"\n---\nlisten: \":9090\"\n")

	loader := NewLoader(path, "test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for multi-document config, got nil")
	}
	if !strings.Contains(err.Error(), "multiple documents") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeConfigFile(t, `
stream:
  heartbeatInterval: soon
`)

	loader := NewLoader(path, "test")
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for invalid duration, got nil")
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("listen = ':8080'"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader(path, "test")
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for non-YAML config, got nil")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown broker kind",
			content: "broker:\n  kind: kafka\n",
		},
		{
			name:    "reconnect max below min",
			content: "client:\n  reconnectMin: 10s\n  reconnectMax: 1s\n",
		},
		{
			name:    "negative delta rate",
			content: "dispatch:\n  deltaRate: -1\n",
		},
		{
			name:    "sample ratio above one",
			content: "otel:\n  sampleRatio: 1.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			loader := NewLoader(path, "test")
			if _, err := loader.Load(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidateRejectsRedisWithoutAddr(t *testing.T) {
	// Unreachable through the loader since the default addr survives the
	// merge; guards Validate callers that build configs by hand.
	cfg := Default()
	cfg.Broker.Kind = BrokerRedis
	cfg.Broker.RedisAddr = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error, got nil")
	}
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := WriteStarter(path); err != nil {
		t.Fatalf("WriteStarter() failed: %v", err)
	}

	// The starter template must survive its own strict loader.
	loader := NewLoader(path, "test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("starter config failed to load: %v", err)
	}
	if cfg.Broker.Kind != BrokerMemory {
		t.Errorf("starter broker kind = %q, want memory", cfg.Broker.Kind)
	}

	// A second write must refuse to clobber the existing file.
	if err := WriteStarter(path); err == nil {
		t.Fatal("expected WriteStarter to refuse overwriting an existing file")
	}
}
