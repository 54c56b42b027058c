// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/metrics"
)

// RedisConfig holds Redis broker connection settings.
type RedisConfig struct {
	Addr     string // server address (host:port)
	Password string // optional
	DB       int

	// Buffer is the per-subscription buffer capacity; falls back to
	// DefaultSubscriberBuffer.
	Buffer int
}

// Redis is the networked broker: envelopes cross the wire as their JSON
// encoding over Redis PUBLISH/SUBSCRIBE. go-redis reconnects on its own,
// so a broker outage surfaces as ErrBrokerUnavailable per call rather
// than a dead client.
type Redis struct {
	client *redis.Client
	logger zerolog.Logger
	buffer int
}

// NewRedis creates a Redis-backed broker. Connectivity is probed once for
// the startup log but a failed probe does not fail construction: the
// broker may come up later, and every call reports ErrBrokerUnavailable
// until it does.
func NewRedis(cfg RedisConfig, logger zerolog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b := &Redis{client: client, logger: logger, buffer: buffer}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis broker not reachable yet")
	} else {
		logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis broker")
	}
	return b
}

// Ping probes broker connectivity; used by the readiness checker.
func (b *Redis) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish sends env as JSON on ch. Redis drops messages with no
// subscriber, matching the live-only contract.
func (b *Redis) Publish(ctx context.Context, ch string, env *event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.Type, err)
	}
	if err := b.client.Publish(ctx, ch, data).Err(); err != nil {
		return brokerErr("publish", ch, err)
	}
	metrics.IncBusPublished(channel.Kind(ch))
	return nil
}

// Subscribe opens a Redis subscription on ch. It confirms registration
// with the broker before returning, so an envelope published after
// Subscribe returns is guaranteed to reach this subscription while the
// connection lives.
func (b *Redis) Subscribe(ctx context.Context, ch string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, ch)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, brokerErr("subscribe", ch, err)
	}

	sub := &redisSub{
		ps:      ps,
		channel: ch,
		out:     make(chan *event.Envelope, b.buffer),
		logger:  b.logger,
	}
	metrics.IncSubscribers(channel.Kind(ch))
	go sub.pump()
	return sub, nil
}

// Close releases the underlying client and with it every subscription.
func (b *Redis) Close() error {
	return b.client.Close()
}

// brokerErr maps a go-redis failure onto the bus error taxonomy while
// keeping the cause matchable. Context cancellation is the caller's
// doing, not a broker fault, and passes through untouched.
func brokerErr(op, ch string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("redis %s %q: %w", op, ch, err)
	}
	return fmt.Errorf("redis %s %q: %w", op, ch, errors.Join(ErrBrokerUnavailable, err))
}

type redisSub struct {
	ps      *redis.PubSub
	channel string
	out     chan *event.Envelope
	logger  zerolog.Logger

	closeOnce sync.Once
}

// pump bridges the go-redis message stream into the subscription buffer,
// decoding envelopes and applying the same drop-oldest policy as the
// in-process broker. It exits when the PubSub closes.
func (s *redisSub) pump() {
	defer close(s.out)
	defer metrics.DecSubscribers(channel.Kind(s.channel))

	kind := channel.Kind(s.channel)
	for msg := range s.ps.Channel() {
		env, err := event.DecodeEnvelope([]byte(msg.Payload))
		if err != nil {
			metrics.IncBusDrop(kind, metrics.ReasonDecodeFailed)
			s.logger.Warn().Err(err).Str("channel_kind", kind).Msg("dropping undecodable envelope from broker")
			continue
		}
		s.offer(env, kind)
	}
}

// offer applies drop-oldest. The pump is the only sender on out, so
// after evicting one buffered envelope the retry always lands.
func (s *redisSub) offer(env *event.Envelope, kind string) {
	for {
		select {
		case s.out <- env:
			return
		default:
		}
		select {
		case <-s.out:
			metrics.IncBusDrop(kind, metrics.ReasonSlowConsumer)
		default:
		}
	}
}

func (s *redisSub) C() <-chan *event.Envelope {
	return s.out
}

// Close terminates the Redis subscription; the pump drains and closes
// the outbound channel. Safe to call multiple times.
func (s *redisSub) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.ps.Close()
	})
	return err
}

var _ Bus = (*Redis)(nil)
