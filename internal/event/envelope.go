// SPDX-License-Identifier: MIT

package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SystemSessionID is the session id carried by envelopes published on the
// broadcast channel. Broadcast notices belong to no logical run, but the
// envelope contract requires a non-empty session id.
const SystemSessionID = "system"

// Envelope is the unit that crosses the bus. Once published it is shared
// between subscribers and must be treated as immutable.
type Envelope struct {
	EventID   string    `json:"event_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Payload   Payload   `json:"payload"`
}

// New builds an envelope for p, stamping a fresh event id and the current
// UTC time. The payload's kind becomes the envelope type; its required
// fields are checked here so a malformed envelope never reaches the bus.
func New(sessionID string, p Payload) (*Envelope, error) {
	if p == nil {
		return nil, &SchemaViolationError{Field: "payload", Reason: "must not be nil"}
	}
	if sessionID == "" {
		return nil, missingField(p.Kind(), "session_id")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:   uuid.New().String(),
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Type:      p.Kind(),
		Payload:   p,
	}, nil
}

// Validate checks the envelope invariants: non-empty session id, a type
// from the closed set, and a payload whose kind and required fields match
// that type.
func (e *Envelope) Validate() error {
	if e.Payload == nil {
		return &SchemaViolationError{Type: e.Type, Field: "payload", Reason: "must not be nil"}
	}
	if !e.Type.IsValid() {
		return &UnknownTypeError{Type: e.Type}
	}
	if e.Payload.Kind() != e.Type {
		return &SchemaViolationError{Type: e.Type, Field: "payload", Reason: fmt.Sprintf("kind %q does not match envelope type", e.Payload.Kind())}
	}
	if e.SessionID == "" {
		return missingField(e.Type, "session_id")
	}
	return e.Payload.Validate()
}

// Stamp assigns a fresh event id and timestamp to fields left unset.
// Remote producers feeding the ingest endpoint may omit both; everything
// constructed through New is already stamped.
func (e *Envelope) Stamp() {
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// wireEnvelope is the decode shell: payload stays raw until the type is
// known.
type wireEnvelope struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload into the concrete struct selected by
// the type discriminator and validates the result. Unknown types yield an
// UnknownTypeError so consumers can distinguish forward-compatibility
// noise from a schema violation on a known kind.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	payload, ok := newPayload(w.Type)
	if !ok {
		return &UnknownTypeError{Type: w.Type}
	}
	if len(w.Payload) > 0 && string(w.Payload) != "null" {
		if err := json.Unmarshal(w.Payload, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Type, err)
		}
	}

	e.EventID = w.EventID
	e.SessionID = w.SessionID
	e.Timestamp = w.Timestamp
	e.Type = w.Type
	e.Payload = payload

	if e.SessionID == "" {
		return missingField(e.Type, "session_id")
	}
	return payload.Validate()
}

// DecodeEnvelope parses one wire-format envelope. It is the single decode
// path for the ingest endpoint, the Redis broker and the stream consumer.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
