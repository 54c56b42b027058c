// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// starterYAML is the commented template written by "config init". Every
// key carries its default so operators can uncomment and edit in place.
const starterYAML = `# runwire daemon configuration.
# Precedence: environment (RUNWIRE_*) > this file > built-in defaults.

# listen: ":8080"
# metricsListen: ":9090"   # empty string disables the metrics listener
# logLevel: info

broker:
  kind: memory             # memory | redis
  # redisAddr: localhost:6379
  # redisPassword: ""
  # redisDB: 0
  # subscriberBuffer: 64   # envelopes buffered per subscription before drop-oldest

stream:
  heartbeatInterval: 15s

client:
  reconnectMin: 1s
  reconnectMax: 30s
  # recentBuffer: 256      # envelopes kept in the consumer's ring buffer

dispatch:
  deltaRate: 0             # deltas/second per dispatcher; 0 disables throttling
  # deltaBurst: 32

http:
  # corsOrigins: ["https://ui.example.com"]
  rateLimitRPM: 300        # ingest requests per minute per client IP
  # maxBodyBytes: 1048576

otel:
  enabled: false
  # exporter: grpc         # grpc | http
  # endpoint: localhost:4317
  # sampleRatio: 1.0
`

// WriteStarter writes the starter configuration template to path
// atomically. It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing config at %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write([]byte(starterYAML)); err != nil {
		return fmt.Errorf("write starter config: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}
