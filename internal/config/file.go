// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML configuration file. Scalar overrides use
// pointers so an absent key is distinguishable from an explicit zero;
// durations travel as strings ("15s") and are parsed during merge.
type FileConfig struct {
	Listen        string `yaml:"listen,omitempty"`
	MetricsListen string `yaml:"metricsListen,omitempty"`
	LogLevel      string `yaml:"logLevel,omitempty"`

	Broker   BrokerFileConfig   `yaml:"broker,omitempty"`
	Stream   StreamFileConfig   `yaml:"stream,omitempty"`
	Client   ClientFileConfig   `yaml:"client,omitempty"`
	Dispatch DispatchFileConfig `yaml:"dispatch,omitempty"`
	HTTP     HTTPFileConfig     `yaml:"http,omitempty"`
	Otel     OtelFileConfig     `yaml:"otel,omitempty"`
}

// BrokerFileConfig is the broker section of the YAML file.
type BrokerFileConfig struct {
	Kind             string `yaml:"kind,omitempty"`
	RedisAddr        string `yaml:"redisAddr,omitempty"`
	RedisPassword    string `yaml:"redisPassword,omitempty"`
	RedisDB          *int   `yaml:"redisDB,omitempty"`
	SubscriberBuffer *int   `yaml:"subscriberBuffer,omitempty"`
}

// StreamFileConfig is the stream section of the YAML file.
type StreamFileConfig struct {
	HeartbeatInterval string `yaml:"heartbeatInterval,omitempty"` // e.g. "15s"
}

// ClientFileConfig is the client section of the YAML file.
type ClientFileConfig struct {
	ReconnectMin string `yaml:"reconnectMin,omitempty"` // e.g. "1s"
	ReconnectMax string `yaml:"reconnectMax,omitempty"` // e.g. "30s"
	RecentBuffer *int   `yaml:"recentBuffer,omitempty"`
}

// DispatchFileConfig is the dispatch section of the YAML file.
type DispatchFileConfig struct {
	DeltaRate  *float64 `yaml:"deltaRate,omitempty"`
	DeltaBurst *int     `yaml:"deltaBurst,omitempty"`
}

// HTTPFileConfig is the http section of the YAML file.
type HTTPFileConfig struct {
	CORSOrigins  []string `yaml:"corsOrigins,omitempty"`
	RateLimitRPM *int     `yaml:"rateLimitRPM,omitempty"`
	MaxBodyBytes *int64   `yaml:"maxBodyBytes,omitempty"`
}

// OtelFileConfig is the otel section of the YAML file.
type OtelFileConfig struct {
	Enabled     *bool    `yaml:"enabled,omitempty"`
	Exporter    string   `yaml:"exporter,omitempty"`
	Endpoint    string   `yaml:"endpoint,omitempty"`
	SampleRatio *float64 `yaml:"sampleRatio,omitempty"`
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return loadFile(path)
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields cause an error to surface misconfiguration early.
func loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}
