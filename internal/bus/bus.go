// SPDX-License-Identifier: MIT

// Package bus decouples event producers from streaming consumers through
// publish/subscribe on channel keys.
//
// Delivery is live-only: the bus keeps no history, publishing to a channel
// with zero subscribers is a silent no-op, and a subscriber only sees
// envelopes published after its Subscribe returned. Within one channel
// every subscriber observes publishes in the same order; across channels
// no ordering is guaranteed.
//
// Publish never blocks on a slow consumer. When a subscriber's buffer is
// full the oldest buffered envelope is evicted to admit the new one
// (drop-oldest), counted under runwire_bus_dropped_total.
package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/runwire/runwire/internal/event"
)

// Errors reported by broker implementations. ErrBusClosed wraps
// ErrBrokerUnavailable so callers matching the broader condition catch
// both. ErrSubscriptionClosed marks a feed that was released underneath
// its consumer (broker shutdown or connection loss); releasing a
// subscription again stays a no-op.
var (
	ErrBrokerUnavailable  = errors.New("broker unavailable")
	ErrBusClosed          = fmt.Errorf("bus closed: %w", ErrBrokerUnavailable)
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// Bus is the broker abstraction shared by the in-process and Redis
// implementations. All methods are safe for concurrent use.
type Bus interface {
	// Publish delivers env to every active subscriber of channel. It
	// returns ErrBrokerUnavailable (possibly wrapped) when the broker
	// cannot be reached; callers in the observability path treat that as
	// non-fatal.
	Publish(ctx context.Context, channel string, env *event.Envelope) error

	// Subscribe registers for envelopes published to channel from this
	// moment onward.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	// Close releases the broker and all of its subscriptions.
	Close() error
}

// Subscription is one live feed from a channel. It is owned by exactly
// one consumer and never shared.
type Subscription interface {
	// C yields envelopes in per-channel publish order. The channel is
	// closed when the subscription is released.
	C() <-chan *event.Envelope

	// Close releases the subscription. It is safe to call multiple
	// times; later calls are no-ops.
	Close() error
}
