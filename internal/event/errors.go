// SPDX-License-Identifier: MIT

package event

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation is the sentinel for malformed envelope construction.
// It is always a producer bug: the envelope never reaches the bus.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaViolationError describes which field of which payload kind was
// missing or malformed. It unwraps to ErrSchemaViolation so callers can
// match with errors.Is without losing the detail.
type SchemaViolationError struct {
	Type   Type
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("schema violation: %s: field %q: %s", e.Type, e.Field, e.Reason)
	}
	return fmt.Sprintf("schema violation: %s: field %q is required", e.Type, e.Field)
}

func (e *SchemaViolationError) Unwrap() error {
	return ErrSchemaViolation
}

// missingField builds the common "required field absent" violation.
func missingField(t Type, field string) error {
	return &SchemaViolationError{Type: t, Field: field}
}

// UnknownTypeError is returned when decoding an envelope whose type is not
// part of the closed set. It is deliberately distinct from a schema
// violation: consumers treat unknown kinds as forward-compatibility noise,
// while a schema violation on a known kind is a hard producer bug.
type UnknownTypeError struct {
	Type Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", string(e.Type))
}
