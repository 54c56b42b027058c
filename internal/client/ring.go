// SPDX-License-Identifier: MIT

package client

import (
	"sync"

	"github.com/runwire/runwire/internal/event"
)

// ring is a fixed-capacity buffer of the latest envelopes; once full
// the oldest entry is overwritten.
type ring struct {
	mu   sync.Mutex
	buf  []*event.Envelope
	next int
	full bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		return nil
	}
	return &ring{buf: make([]*event.Envelope, capacity)}
}

func (r *ring) add(env *event.Envelope) {
	r.mu.Lock()
	r.buf[r.next] = env
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// snapshot returns the retained envelopes oldest first.
func (r *ring) snapshot() []*event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]*event.Envelope, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]*event.Envelope, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
