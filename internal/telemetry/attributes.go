// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Bus attributes
	BusChannelKey     = "bus.channel"
	BusChannelKindKey = "bus.channel_kind"
	BusBrokerKey      = "bus.broker"

	// Stream attributes
	StreamTransportKey = "stream.transport"

	// Event attributes
	EventTypeKey    = "event.type"
	EventIDKey      = "event.id"
	EventSessionKey = "event.session_id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// StreamAttributes creates span attributes for a live event stream.
// Empty fields are omitted.
func StreamAttributes(channel, kind, transport string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if channel != "" {
		attrs = append(attrs, attribute.String(BusChannelKey, channel))
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(BusChannelKindKey, kind))
	}
	if transport != "" {
		attrs = append(attrs, attribute.String(StreamTransportKey, transport))
	}
	return attrs
}

// EventAttributes creates span attributes describing a single envelope.
func EventAttributes(eventType, sessionID, eventID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventTypeKey, eventType),
		attribute.String(EventSessionKey, sessionID),
		attribute.String(EventIDKey, eventID),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
