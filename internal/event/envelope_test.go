// SPDX-License-Identifier: MIT

package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := New("s1", &ToolCallStarted{
		ToolCallID: "tc1",
		ToolName:   "check_disk",
		Agent:      "monitor",
		Args:       map[string]any{"path": "/var", "threshold": float64(90)},
	})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)

	if diff := cmp.Diff(env, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-sent +received):\n%s", diff)
	}
}

func TestEnvelopeWireShape(t *testing.T) {
	env, err := New("s2", &WorkflowStepCompleted{
		RunID:  "r1",
		StepID: "analyze",
		Output: map[string]any{"score": float64(80)},
	})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	for _, field := range []string{"event_id", "session_id", "timestamp", "type", "payload"} {
		require.Contains(t, wire, field)
	}
	require.JSONEq(t, `"workflow_step_completed"`, string(wire["type"]))
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"event_id":"e1","session_id":"s1","type":"hologram_rendered","payload":{}}`))

	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, Type("hologram_rendered"), unknown.Type)
	require.NotErrorIs(t, err, ErrSchemaViolation, "unknown kinds are not producer schema bugs")
}

func TestDecodeRejectsPayloadMismatch(t *testing.T) {
	// Known type, payload missing its required fields.
	_, err := DecodeEnvelope([]byte(`{"event_id":"e1","session_id":"s1","type":"tool_call_started","payload":{"tool_name":"check_disk"}}`))
	require.ErrorIs(t, err, ErrSchemaViolation)

	var sv *SchemaViolationError
	require.ErrorAs(t, err, &sv)
	require.Equal(t, "tool_call_id", sv.Field)
}

func TestDecodeRejectsMissingSessionID(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"event_id":"e1","type":"session_started","payload":{}}`))
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestDecodeUnstampedThenStamp(t *testing.T) {
	// Remote producers may omit identity fields; the ingest path stamps them.
	env, err := DecodeEnvelope([]byte(`{"session_id":"s1","type":"agent_thought","payload":{"agent":"monitor","thought":"disk trend looks fine"}}`))
	require.NoError(t, err)
	require.Empty(t, env.EventID)
	require.True(t, env.Timestamp.IsZero())

	env.Stamp()
	require.NotEmpty(t, env.EventID)
	require.False(t, env.Timestamp.IsZero())

	// Stamp never overwrites existing identity.
	id, ts := env.EventID, env.Timestamp
	env.Stamp()
	require.Equal(t, id, env.EventID)
	require.Equal(t, ts, env.Timestamp)
}

func TestDecodeNullPayload(t *testing.T) {
	// Kinds without required fields accept an absent payload.
	env, err := DecodeEnvelope([]byte(`{"event_id":"e1","session_id":"s1","type":"run_interrupted","payload":null}`))
	require.NoError(t, err)
	require.Equal(t, TypeRunInterrupted, env.Type)
	require.NotNil(t, env.Payload)

	// Kinds with required fields do not.
	_, err = DecodeEnvelope([]byte(`{"event_id":"e1","session_id":"s1","type":"retrieval_result","payload":null}`))
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestValidateCatchesKindMismatch(t *testing.T) {
	env, err := New("s1", &AgentThought{Agent: "monitor", Thought: "hm"})
	require.NoError(t, err)
	require.NoError(t, env.Validate())

	env.Type = TypeToolCallResult
	require.Error(t, env.Validate())
}

func TestTimestampSurvivesWire(t *testing.T) {
	env, err := New("s1", &SessionStarted{})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.True(t, env.Timestamp.Equal(decoded.Timestamp))
	require.Less(t, time.Since(decoded.Timestamp), time.Minute)
}
