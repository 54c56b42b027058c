// SPDX-License-Identifier: MIT

// Package client consumes an event stream over SSE and dispatches
// decoded envelopes to registered handlers. The consumer reconnects on
// its own with capped, jittered backoff. There is no replay: envelopes
// published while disconnected are missed, which is the intended live
// view semantic.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/log"
)

// Config parameterizes the consumer.
type Config struct {
	// URL is the full stream endpoint, e.g.
	// http://host:8080/events/run-42 or the broadcast route.
	URL string

	// ReconnectMin and ReconnectMax bound the backoff between connect
	// attempts. Zero values fall back to 1s and 30s.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// RecentBuffer caps the ring of retained envelopes served by
	// Recent; 0 disables retention.
	RecentBuffer int

	// HTTPClient overrides the default client. The default carries no
	// timeout; a stream is one long request.
	HTTPClient *http.Client
}

// Handler consumes one decoded envelope. Handlers run on the consumer
// goroutine, so a slow handler delays the stream read.
type Handler func(*event.Envelope)

// Client is a reconnecting SSE consumer.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
	recent *ring

	mu           sync.RWMutex
	handlers     map[event.Type][]Handler
	anyHandlers  []Handler
	onConnect    []func()
	onDisconnect []func(error)
}

// New validates cfg and builds a consumer. Register handlers before
// calling Run; registration during Run is safe but frames already
// dispatched are gone.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("stream URL must not be empty")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid stream URL: %w", err)
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = cfg.ReconnectMin
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		cfg:      cfg,
		http:     httpClient,
		logger:   log.WithComponent("client"),
		recent:   newRing(cfg.RecentBuffer),
		handlers: make(map[event.Type][]Handler),
	}, nil
}

// On registers a handler for one event type. Types without a handler
// are ignored.
func (c *Client) On(t event.Type, h Handler) {
	c.mu.Lock()
	c.handlers[t] = append(c.handlers[t], h)
	c.mu.Unlock()
}

// OnAny registers a handler that sees every decoded envelope, after
// the type-specific handlers.
func (c *Client) OnAny(h Handler) {
	c.mu.Lock()
	c.anyHandlers = append(c.anyHandlers, h)
	c.mu.Unlock()
}

// OnConnect registers a hook run when a stream turns live, meaning the
// first envelope of a connection arrived.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = append(c.onConnect, fn)
	c.mu.Unlock()
}

// OnDisconnect registers a hook run when an established stream drops.
// Failed connect attempts do not fire it.
func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	c.onDisconnect = append(c.onDisconnect, fn)
	c.mu.Unlock()
}

// Recent returns the retained envelopes, oldest first. Empty when
// retention is disabled.
func (c *Client) Recent() []*event.Envelope {
	if c.recent == nil {
		return nil
	}
	return c.recent.snapshot()
}

// Run consumes the stream until ctx is canceled and returns ctx.Err().
// Every exit from a live stream triggers a reconnect; the backoff
// doubles per failed cycle, capped at ReconnectMax, and resets once a
// stream turns live again.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectMin
	for {
		connected, err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if connected {
			backoff = c.cfg.ReconnectMin
			c.notifyDisconnect(err)
			c.logger.Warn().Err(err).
				Dur("retry_in", backoff).
				Msg("client.disconnected")
		} else {
			c.logger.Warn().Err(err).
				Dur("retry_in", backoff).
				Msg("client.connect_failed")
		}

		select {
		case <-time.After(jitter(backoff)):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

// consume runs one connection cycle. connected reports whether the
// stream ever turned live, which gates the disconnect hooks and the
// backoff reset.
func (c *Client) consume(ctx context.Context) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream endpoint returned %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return false, fmt.Errorf("unexpected content type %q", ct)
	}

	fr := newFrameReader(resp.Body)
	for {
		f, err := fr.next()
		if err != nil {
			return connected, fmt.Errorf("stream read: %w", err)
		}
		if f.eventType == "error" {
			return connected, fmt.Errorf("server error frame: %s", f.data)
		}

		env, err := event.DecodeEnvelope(f.data)
		if err != nil {
			// Unknown types are forward-compatibility noise from a
			// newer server; anything else is a malformed frame. Both
			// skip the envelope and keep the stream.
			var unknown *event.UnknownTypeError
			if errors.As(err, &unknown) {
				c.logger.Debug().Str(log.FieldEventType, f.eventType).Msg("client.unknown_type_skipped")
			} else {
				c.logger.Warn().Err(err).Str(log.FieldEventType, f.eventType).Msg("client.decode_failed")
			}
			continue
		}

		if !connected {
			connected = true
			c.notifyConnect()
			c.logger.Info().
				Str(log.FieldSessionID, env.SessionID).
				Msg("client.connected")
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env *event.Envelope) {
	if c.recent != nil {
		c.recent.add(env)
	}

	c.mu.RLock()
	typed := c.handlers[env.Type]
	catchAll := c.anyHandlers
	c.mu.RUnlock()

	for _, h := range typed {
		h(env)
	}
	for _, h := range catchAll {
		h(env)
	}
}

func (c *Client) notifyConnect() {
	c.mu.RLock()
	hooks := c.onConnect
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn()
	}
}

func (c *Client) notifyDisconnect(err error) {
	c.mu.RLock()
	hooks := c.onDisconnect
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(err)
	}
}

// jitter spreads reconnect attempts across clients: half the delay is
// fixed, half random.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)/2+1))
}

// SessionURL builds the session stream endpoint on a base server URL.
func SessionURL(base, sessionID string) string {
	return strings.TrimRight(base, "/") + "/events/" + url.PathEscape(sessionID)
}

// BroadcastURL builds the broadcast stream endpoint on a base server URL.
func BroadcastURL(base string) string {
	return strings.TrimRight(base, "/") + "/events/broadcast"
}
