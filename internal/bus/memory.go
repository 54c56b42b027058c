// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/metrics"
)

const (
	// DefaultSubscriberBuffer is the per-subscription buffer capacity
	// used when the config does not override it.
	DefaultSubscriberBuffer = 64

	dropLogEvery = 100
)

// Memory is the in-process broker. The registry lock is held across
// delivery so every subscriber of a channel observes the same publish
// order; deliveries never block, so the critical section stays short.
type Memory struct {
	mu     sync.Mutex
	subs   map[string][]*memorySub
	closed bool

	buffer int
	logger zerolog.Logger

	drops atomic.Uint64
}

// MemoryOption configures a Memory bus.
type MemoryOption func(*Memory)

// WithBuffer overrides the per-subscriber buffer capacity.
func WithBuffer(n int) MemoryOption {
	return func(b *Memory) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithLogger attaches a logger for sampled drop warnings.
func WithLogger(logger zerolog.Logger) MemoryOption {
	return func(b *Memory) { b.logger = logger }
}

// NewMemory creates an in-process broker.
func NewMemory(opts ...MemoryOption) *Memory {
	b := &Memory{
		subs:   make(map[string][]*memorySub),
		buffer: DefaultSubscriberBuffer,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers env to the current subscribers of ch. With no
// subscribers it is a silent no-op. It never blocks on a slow consumer:
// a full subscriber buffer evicts its oldest envelope instead.
func (b *Memory) Publish(_ context.Context, ch string, env *event.Envelope) error {
	kind := channel.Kind(ch)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subs[ch] {
		sub.offer(env)
	}
	metrics.IncBusPublished(kind)
	return nil
}

// Subscribe registers a new subscription on ch.
func (b *Memory) Subscribe(_ context.Context, ch string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySub{
		bus:     b,
		channel: ch,
		ch:      make(chan *event.Envelope, b.buffer),
	}
	b.subs[ch] = append(b.subs[ch], sub)
	metrics.IncSubscribers(channel.Kind(ch))
	return sub, nil
}

// Close releases every subscription and rejects further use.
func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	for ch, subs := range b.subs {
		for _, sub := range subs {
			sub.closeLocked()
		}
		delete(b.subs, ch)
	}
	return nil
}

// noteDrop counts a slow-consumer eviction and emits a sampled warning.
func (b *Memory) noteDrop(ch string) {
	metrics.IncBusDrop(channel.Kind(ch), metrics.ReasonSlowConsumer)
	count := b.drops.Add(1)
	if count%dropLogEvery == 0 {
		b.logger.Warn().
			Str("channel_kind", channel.Kind(ch)).
			Uint64("dropped", count).
			Msg("slow consumer, evicting oldest buffered envelopes")
	}
}

type memorySub struct {
	bus     *Memory
	channel string
	ch      chan *event.Envelope
	closed  bool
}

// offer appends env to the subscription buffer, evicting the oldest
// entry when full. Called with the bus lock held, so at most one offer
// runs per subscription at a time.
func (s *memorySub) offer(env *event.Envelope) {
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- env:
			return
		default:
		}
		select {
		case <-s.ch:
			s.bus.noteDrop(s.channel)
		default:
		}
	}
}

func (s *memorySub) C() <-chan *event.Envelope {
	return s.ch
}

// Close detaches the subscription from the registry and closes its
// channel. Safe to call multiple times.
func (s *memorySub) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.closed {
		return nil
	}

	lst := s.bus.subs[s.channel]
	out := lst[:0]
	for _, sub := range lst {
		if sub != s {
			out = append(out, sub)
		}
	}
	if len(out) == 0 {
		delete(s.bus.subs, s.channel)
	} else {
		s.bus.subs[s.channel] = out
	}
	s.closeLocked()
	return nil
}

// closeLocked marks the subscription closed and closes its channel.
// Caller holds the bus lock.
func (s *memorySub) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	metrics.DecSubscribers(channel.Kind(s.channel))
}

var _ Bus = (*Memory)(nil)
