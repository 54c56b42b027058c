// SPDX-License-Identifier: MIT

// runwire-tail follows one event stream and prints every envelope as it
// arrives. It reconnects with backoff when the daemon goes away, so it
// can be left running across daemon restarts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/client"
	"github.com/runwire/runwire/internal/event"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

type tailConfig struct {
	BaseURL   string
	SessionID string
	Broadcast bool
	Types     string
	JSON      bool
}

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the runwired API")
	session := flag.String("session", "", "session id to follow")
	broadcast := flag.Bool("broadcast", false, "follow the broadcast channel instead of a session")
	types := flag.String("types", "", "comma-separated event types to print (default: all)")
	jsonOut := flag.Bool("json", false, "print raw envelope JSON, one object per line")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := tailConfig{
		BaseURL:   strings.TrimSpace(*baseURL),
		SessionID: strings.TrimSpace(*session),
		Broadcast: *broadcast,
		Types:     *types,
		JSON:      *jsonOut,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "runwire-tail: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg tailConfig) error {
	streamURL, err := resolveStreamURL(cfg)
	if err != nil {
		return err
	}

	filter, err := parseTypeFilter(cfg.Types)
	if err != nil {
		return err
	}

	print := printFunc(cfg.JSON)

	c, err := client.New(client.Config{URL: streamURL})
	if err != nil {
		return err
	}

	// Status chatter goes to stderr so stdout stays a clean event feed.
	c.OnConnect(func() {
		fmt.Fprintf(os.Stderr, "connected to %s\n", streamURL)
	})
	c.OnDisconnect(func(err error) {
		fmt.Fprintf(os.Stderr, "stream lost (%v), reconnecting\n", err)
	})
	c.OnAny(func(env *event.Envelope) {
		if filter != nil {
			if _, ok := filter[env.Type]; !ok {
				return
			}
		}
		print(env)
	})

	return c.Run(ctx)
}

func resolveStreamURL(cfg tailConfig) (string, error) {
	if cfg.BaseURL == "" {
		return "", errors.New("--url must not be empty")
	}
	switch {
	case cfg.Broadcast && cfg.SessionID != "":
		return "", errors.New("--session and --broadcast are mutually exclusive")
	case cfg.Broadcast:
		return client.BroadcastURL(cfg.BaseURL), nil
	case cfg.SessionID != "":
		return client.SessionURL(cfg.BaseURL, cfg.SessionID), nil
	default:
		return "", errors.New("one of --session or --broadcast is required")
	}
}

// parseTypeFilter parses the --types list. A nil map means no filtering.
func parseTypeFilter(raw string) (map[event.Type]struct{}, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	filter := make(map[event.Type]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := event.Type(part)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown event type %q (see --help for the list)", part)
		}
		filter[t] = struct{}{}
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return filter, nil
}

// printFunc returns the envelope printer: raw JSON lines for scripting,
// otherwise a console-writer rendering for humans.
func printFunc(rawJSON bool) func(*event.Envelope) {
	if rawJSON {
		enc := json.NewEncoder(os.Stdout)
		return func(env *event.Envelope) {
			_ = enc.Encode(env)
		}
	}

	console := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = "15:04:05.000"
	})
	logger := zerolog.New(console)

	return func(env *event.Envelope) {
		payload, err := json.Marshal(env.Payload)
		if err != nil {
			payload = []byte(`{}`)
		}
		logger.Info().
			Time(zerolog.TimestampFieldName, env.Timestamp).
			Str("session", env.SessionID).
			RawJSON("payload", payload).
			Msg(string(env.Type))
	}
}
