// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_dispatch_events_total",
		Help: "Envelopes emitted through the dispatcher, by event type",
	}, []string{"type"})

	DispatchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_dispatch_failures_total",
		Help: "Publishes swallowed by the dispatcher, by event type and reason",
	}, []string{"type", "reason"})

	DispatchThrottledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_dispatch_throttled_total",
		Help: "Delta envelopes dropped by the producer-side rate limit, by event type",
	}, []string{"type"})

	IngestEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_ingest_events_total",
		Help: "Envelopes received on the ingest endpoint, by outcome",
	}, []string{"outcome"})
)

// Ingest outcomes.
const (
	IngestAccepted    = "accepted"
	IngestRejected    = "rejected"
	IngestUnavailable = "broker_unavailable"
)

// IncDispatched records one envelope handed to the bus.
func IncDispatched(eventType string) {
	DispatchEventsTotal.WithLabelValues(eventType).Inc()
}

// IncDispatchFailure records a swallowed publish error.
func IncDispatchFailure(eventType, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	DispatchFailuresTotal.WithLabelValues(eventType, reason).Inc()
}

// IncDispatchThrottled records a delta dropped by the rate limit.
func IncDispatchThrottled(eventType string) {
	DispatchThrottledTotal.WithLabelValues(eventType).Inc()
}

// IncIngest records one ingest request outcome.
func IncIngest(outcome string) {
	IngestEventsTotal.WithLabelValues(outcome).Inc()
}
