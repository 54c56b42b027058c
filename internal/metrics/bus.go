// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus instruments for the event bus,
// the streaming transport and the dispatcher. Label sets are bounded:
// channel kind and event type only, never raw session ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_bus_published_total",
		Help: "Total envelopes accepted by the bus, by channel kind",
	}, []string{"kind"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_bus_dropped_total",
		Help: "Total envelopes dropped by the bus, by channel kind and reason",
	}, []string{"kind", "reason"})

	BusSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "runwire_bus_subscribers",
		Help: "Currently registered subscriptions, by channel kind",
	}, []string{"kind"})
)

// Drop reasons recorded by the brokers.
const (
	ReasonSlowConsumer = "slow_consumer"
	ReasonDecodeFailed = "decode_failed"
)

// IncBusPublished records one accepted publish for the channel kind.
func IncBusPublished(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	BusPublishedTotal.WithLabelValues(kind).Inc()
}

// IncBusDrop records a dropped envelope with a concrete reason.
func IncBusDrop(kind, reason string) {
	if kind == "" {
		kind = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(kind, reason).Inc()
}

// IncSubscribers tracks a new subscription on the channel kind.
func IncSubscribers(kind string) {
	BusSubscribers.WithLabelValues(kind).Inc()
}

// DecSubscribers tracks a released subscription on the channel kind.
func DecSubscribers(kind string) {
	BusSubscribers.WithLabelValues(kind).Dec()
}
