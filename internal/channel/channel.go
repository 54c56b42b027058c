// SPDX-License-Identifier: MIT

// Package channel derives bus routing keys from session identifiers.
//
// The mapping is pure and injective: every session id yields exactly one
// key and no two distinct ids collide. The reserved broadcast key lives in
// its own namespace and is never mixed into session streams.
package channel

const (
	// sessionPrefix namespaces per-session channels.
	sessionPrefix = "session:"

	// Broadcast is the reserved key for system-wide notices.
	Broadcast = "broadcast"
)

// Channel kind labels used for bounded metric labels. Raw session ids
// never become label values.
const (
	KindSession   = "session"
	KindBroadcast = "broadcast"
	KindOther     = "other"
)

// MaxSessionIDLength bounds session ids accepted by the transport.
const MaxSessionIDLength = 128

// ForSession returns the routing key for a session id.
func ForSession(sessionID string) string {
	return sessionPrefix + sessionID
}

// SessionID extracts the session id from a per-session channel key. It
// reports false for the broadcast key and anything else outside the
// session namespace.
func SessionID(ch string) (string, bool) {
	if len(ch) <= len(sessionPrefix) || ch[:len(sessionPrefix)] != sessionPrefix {
		return "", false
	}
	return ch[len(sessionPrefix):], true
}

// Kind classifies a channel key for metric labels.
func Kind(ch string) string {
	switch {
	case ch == Broadcast:
		return KindBroadcast
	case len(ch) > len(sessionPrefix) && ch[:len(sessionPrefix)] == sessionPrefix:
		return KindSession
	default:
		return KindOther
	}
}

// IsValidSessionID reports whether id is acceptable as a path parameter:
// non-empty, bounded length, and limited to URL- and log-safe characters.
func IsValidSessionID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
