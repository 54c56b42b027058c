// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runwire/runwire/internal/config"
)

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:])
	case "init":
		return runConfigInit(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  runwired config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  runwired config dump --effective [--file|-f config.yaml] [--format=yaml|json]")
	fmt.Fprintln(os.Stderr, "  runwired config init [--file|-f config.yaml]")
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("runwired config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required (RUNWIRE_CONFIG is not set)")
		return 2
	}

	loader := config.NewLoader(configPath, version)
	if _, err := loader.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fmt.Printf("✓ %s is valid\n", configPath)
	return 0
}

func runConfigDump(args []string) int {
	fs := flag.NewFlagSet("runwired config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	var format string
	var effective bool

	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	fs.BoolVar(&effective, "effective", false, "dump effective configuration (defaults + file + env)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if !effective {
		fmt.Fprintln(os.Stderr, "Error: --effective is required")
		return 2
	}

	// Dumping without a file is fine: the result is defaults + env.
	configPath := strings.TrimSpace(file)
	if configPath == "" {
		configPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(configPath, version)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", configPath, err)
		return 1
	}

	fileCfg := fileConfigFromConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func runConfigInit(args []string) int {
	fs := flag.NewFlagSet("runwired config init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var file string
	fs.StringVar(&file, "file", "config.yaml", "path for the starter configuration file")
	fs.StringVar(&file, "f", "config.yaml", "path for the starter configuration file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := strings.TrimSpace(file)
	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --file must not be empty")
		return 2
	}

	if err := config.WriteStarter(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write starter config: %v\n", err)
		return 1
	}

	fmt.Printf("✓ wrote starter configuration to %s\n", configPath)
	return 0
}

// fileConfigFromConfig converts a resolved configuration back into the
// file representation for dumping.
func fileConfigFromConfig(cfg config.Config) config.FileConfig {
	redisDB := cfg.Broker.RedisDB
	subscriberBuffer := cfg.Broker.SubscriberBuffer
	recentBuffer := cfg.Client.RecentBuffer
	deltaRate := cfg.Dispatch.DeltaRate
	deltaBurst := cfg.Dispatch.DeltaBurst
	rateLimitRPM := cfg.HTTP.RateLimitRPM
	maxBodyBytes := cfg.HTTP.MaxBodyBytes
	otelEnabled := cfg.Otel.Enabled
	sampleRatio := cfg.Otel.SampleRatio

	return config.FileConfig{
		Listen:        cfg.Listen,
		MetricsListen: cfg.MetricsListen,
		LogLevel:      cfg.LogLevel,
		Broker: config.BrokerFileConfig{
			Kind:             cfg.Broker.Kind,
			RedisAddr:        cfg.Broker.RedisAddr,
			RedisPassword:    cfg.Broker.RedisPassword,
			RedisDB:          &redisDB,
			SubscriberBuffer: &subscriberBuffer,
		},
		Stream: config.StreamFileConfig{
			HeartbeatInterval: cfg.Stream.HeartbeatInterval.String(),
		},
		Client: config.ClientFileConfig{
			ReconnectMin: cfg.Client.ReconnectMin.String(),
			ReconnectMax: cfg.Client.ReconnectMax.String(),
			RecentBuffer: &recentBuffer,
		},
		Dispatch: config.DispatchFileConfig{
			DeltaRate:  &deltaRate,
			DeltaBurst: &deltaBurst,
		},
		HTTP: config.HTTPFileConfig{
			CORSOrigins:  cfg.HTTP.CORSOrigins,
			RateLimitRPM: &rateLimitRPM,
			MaxBodyBytes: &maxBodyBytes,
		},
		Otel: config.OtelFileConfig{
			Enabled:     &otelEnabled,
			Exporter:    cfg.Otel.Exporter,
			Endpoint:    cfg.Otel.Endpoint,
			SampleRatio: &sampleRatio,
		},
	}
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Broker.RedisPassword != "" {
		cfg.Broker.RedisPassword = "***"
	}
}
