// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldEventID   = "event_id"

	// Event plumbing fields
	FieldEvent       = "event"
	FieldComponent   = "component"
	FieldEventType   = "event_type"
	FieldChannel     = "channel"
	FieldChannelKind = "channel_kind"
	FieldTransport   = "transport"
	FieldBroker      = "broker"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldRemote   = "remote_addr"
	FieldBytes    = "bytes"
	FieldDuration = "duration_ms"
)
