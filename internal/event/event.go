// SPDX-License-Identifier: MIT

// Package event defines the envelope that crosses the bus and the closed
// set of event kinds producers may emit.
//
// Every occurrence in the system — agent turns, tool calls, workflow step
// transitions, errors, metrics — is carried as an Envelope whose payload
// shape is fully determined by its Type. Consumers never see a payload
// whose shape disagrees with its discriminator: mismatches fail at
// construction (or decode) time, not in a handler.
package event

// Type discriminates the payload carried by an Envelope.
//
// The set is closed: adding a kind means adding a payload struct, a
// constant here, and an arm in newPayload. Exhaustiveness is enforced by
// TestTypeRegistryComplete.
type Type string

const (
	// Session lifecycle.
	TypeSessionStarted Type = "session_started"
	TypeSessionEnded   Type = "session_ended"

	// Agent messages, streamed start/delta/end.
	TypeAgentMessageStart Type = "agent_message_start"
	TypeAgentMessageDelta Type = "agent_message_delta"
	TypeAgentMessageEnd   Type = "agent_message_end"

	// Tool invocations.
	TypeToolCallStarted Type = "tool_call_started"
	TypeToolCallDelta   Type = "tool_call_delta"
	TypeToolCallResult  Type = "tool_call_result"

	// Workflow orchestration.
	TypeWorkflowStarted       Type = "workflow_started"
	TypeWorkflowStepStarted   Type = "workflow_step_started"
	TypeWorkflowStepCompleted Type = "workflow_step_completed"
	TypeWorkflowTransition    Type = "workflow_transition"
	TypeWorkflowCompleted     Type = "workflow_completed"

	// Agent internals and run-level faults.
	TypeAgentThought   Type = "agent_thought"
	TypeRunError       Type = "run_error"
	TypeRunRetry       Type = "run_retry"
	TypeRunInterrupted Type = "run_interrupted"

	// Retrieval.
	TypeRetrievalStarted Type = "retrieval_started"
	TypeRetrievalResult  Type = "retrieval_result"

	// Automations.
	TypeAutomationTriggered Type = "automation_triggered"
	TypeAutomationCompleted Type = "automation_completed"

	// Periodic metrics snapshots.
	TypeMetricsUpdate Type = "metrics_update"

	// TypeStreamStarted is synthesized by the streaming transport as the
	// first frame of every connection. It never crosses the bus and has no
	// dispatcher method.
	TypeStreamStarted Type = "stream_started"
)

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// IsValid reports whether t is one of the defined kinds.
func (t Type) IsValid() bool {
	_, ok := newPayload(t)
	return ok
}

// IsDelta reports whether t is a high-frequency incremental kind. Delta
// kinds are the only ones eligible for producer-side throttling.
func (t Type) IsDelta() bool {
	return t == TypeAgentMessageDelta || t == TypeToolCallDelta
}

// Types returns the full closed set in a stable order.
func Types() []Type {
	return []Type{
		TypeSessionStarted,
		TypeSessionEnded,
		TypeAgentMessageStart,
		TypeAgentMessageDelta,
		TypeAgentMessageEnd,
		TypeToolCallStarted,
		TypeToolCallDelta,
		TypeToolCallResult,
		TypeWorkflowStarted,
		TypeWorkflowStepStarted,
		TypeWorkflowStepCompleted,
		TypeWorkflowTransition,
		TypeWorkflowCompleted,
		TypeAgentThought,
		TypeRunError,
		TypeRunRetry,
		TypeRunInterrupted,
		TypeRetrievalStarted,
		TypeRetrievalResult,
		TypeAutomationTriggered,
		TypeAutomationCompleted,
		TypeMetricsUpdate,
		TypeStreamStarted,
	}
}
