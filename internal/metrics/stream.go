// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transport labels for the streaming instruments.
const (
	TransportSSE = "sse"
	TransportWS  = "ws"
)

var (
	StreamConnectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "runwire_stream_connections_active",
		Help: "Streaming connections currently open, by transport",
	}, []string{"transport"})

	StreamConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_stream_connections_total",
		Help: "Total streaming connections accepted, by transport",
	}, []string{"transport"})

	StreamEventsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_stream_events_sent_total",
		Help: "Envelopes pushed to clients, by transport and event type",
	}, []string{"transport", "type"})

	StreamHeartbeatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_stream_heartbeats_total",
		Help: "Keepalive frames sent, by transport",
	}, []string{"transport"})

	StreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runwire_stream_errors_total",
		Help: "Streaming faults, by transport and reason",
	}, []string{"transport", "reason"})
)

// Stream fault reasons.
const (
	ReasonSubscribeFailed    = "subscribe_failed"
	ReasonSubscriptionClosed = "subscription_closed"
	ReasonEncodeFailed       = "encode_failed"
	ReasonWriteFailed        = "write_failed"
)

// StreamOpened records an accepted streaming connection.
func StreamOpened(transport string) {
	StreamConnectionsTotal.WithLabelValues(transport).Inc()
	StreamConnectionsActive.WithLabelValues(transport).Inc()
}

// StreamClosed records a released streaming connection.
func StreamClosed(transport string) {
	StreamConnectionsActive.WithLabelValues(transport).Dec()
}

// IncEventSent records one envelope pushed to a client.
func IncEventSent(transport, eventType string) {
	StreamEventsSentTotal.WithLabelValues(transport, eventType).Inc()
}

// IncHeartbeat records one keepalive frame.
func IncHeartbeat(transport string) {
	StreamHeartbeatsTotal.WithLabelValues(transport).Inc()
}

// IncStreamError records a streaming fault with a concrete reason.
func IncStreamError(transport, reason string) {
	StreamErrorsTotal.WithLabelValues(transport, reason).Inc()
}
