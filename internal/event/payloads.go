// SPDX-License-Identifier: MIT

package event

// Payload is the type-specific body of an Envelope. The concrete struct is
// fully determined by Kind; Validate enforces the kind's required fields at
// construction and decode time.
type Payload interface {
	Kind() Type
	Validate() error
}

// newPayload returns a fresh zero payload for t. It is the single source of
// truth for the closed type set: every Type constant must have an arm here.
func newPayload(t Type) (Payload, bool) {
	switch t {
	case TypeSessionStarted:
		return &SessionStarted{}, true
	case TypeSessionEnded:
		return &SessionEnded{}, true
	case TypeAgentMessageStart:
		return &AgentMessageStart{}, true
	case TypeAgentMessageDelta:
		return &AgentMessageDelta{}, true
	case TypeAgentMessageEnd:
		return &AgentMessageEnd{}, true
	case TypeToolCallStarted:
		return &ToolCallStarted{}, true
	case TypeToolCallDelta:
		return &ToolCallDelta{}, true
	case TypeToolCallResult:
		return &ToolCallResult{}, true
	case TypeWorkflowStarted:
		return &WorkflowStarted{}, true
	case TypeWorkflowStepStarted:
		return &WorkflowStepStarted{}, true
	case TypeWorkflowStepCompleted:
		return &WorkflowStepCompleted{}, true
	case TypeWorkflowTransition:
		return &WorkflowTransition{}, true
	case TypeWorkflowCompleted:
		return &WorkflowCompleted{}, true
	case TypeAgentThought:
		return &AgentThought{}, true
	case TypeRunError:
		return &RunError{}, true
	case TypeRunRetry:
		return &RunRetry{}, true
	case TypeRunInterrupted:
		return &RunInterrupted{}, true
	case TypeRetrievalStarted:
		return &RetrievalStarted{}, true
	case TypeRetrievalResult:
		return &RetrievalResult{}, true
	case TypeAutomationTriggered:
		return &AutomationTriggered{}, true
	case TypeAutomationCompleted:
		return &AutomationCompleted{}, true
	case TypeMetricsUpdate:
		return &MetricsUpdate{}, true
	case TypeStreamStarted:
		return &StreamStarted{}, true
	default:
		return nil, false
	}
}

// SessionStarted announces a new logical run. Title and labels are
// display hints; nothing is required beyond the envelope's session id.
type SessionStarted struct {
	Title  string            `json:"title,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

func (*SessionStarted) Kind() Type { return TypeSessionStarted }

func (*SessionStarted) Validate() error { return nil }

// Session end statuses.
const (
	SessionStatusCompleted   = "completed"
	SessionStatusFailed      = "failed"
	SessionStatusInterrupted = "interrupted"
)

// SessionEnded closes a logical run.
type SessionEnded struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (*SessionEnded) Kind() Type { return TypeSessionEnded }

func (p *SessionEnded) Validate() error {
	switch p.Status {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusInterrupted:
		return nil
	case "":
		return missingField(TypeSessionEnded, "status")
	default:
		return &SchemaViolationError{Type: TypeSessionEnded, Field: "status", Reason: "must be completed, failed or interrupted"}
	}
}

// AgentMessageStart opens a streamed assistant message. Deltas and the end
// marker correlate via MessageID.
type AgentMessageStart struct {
	MessageID string `json:"message_id"`
	Agent     string `json:"agent"`
	Role      string `json:"role,omitempty"`
}

func (*AgentMessageStart) Kind() Type { return TypeAgentMessageStart }

func (p *AgentMessageStart) Validate() error {
	if p.MessageID == "" {
		return missingField(TypeAgentMessageStart, "message_id")
	}
	if p.Agent == "" {
		return missingField(TypeAgentMessageStart, "agent")
	}
	return nil
}

// AgentMessageDelta carries one incremental text chunk. Clients concatenate
// deltas in arrival order to reconstruct the message.
type AgentMessageDelta struct {
	MessageID string `json:"message_id"`
	Agent     string `json:"agent"`
	Delta     string `json:"delta"`
}

func (*AgentMessageDelta) Kind() Type { return TypeAgentMessageDelta }

func (p *AgentMessageDelta) Validate() error {
	if p.MessageID == "" {
		return missingField(TypeAgentMessageDelta, "message_id")
	}
	if p.Delta == "" {
		return missingField(TypeAgentMessageDelta, "delta")
	}
	return nil
}

// AgentMessageEnd closes a streamed message. Content, when present, is the
// full assembled text so late-joining observers need not rely on deltas.
type AgentMessageEnd struct {
	MessageID string `json:"message_id"`
	Agent     string `json:"agent"`
	Content   string `json:"content,omitempty"`
	Tokens    int    `json:"tokens,omitempty"`
}

func (*AgentMessageEnd) Kind() Type { return TypeAgentMessageEnd }

func (p *AgentMessageEnd) Validate() error {
	if p.MessageID == "" {
		return missingField(TypeAgentMessageEnd, "message_id")
	}
	return nil
}

// ToolCallStarted announces a tool invocation. Args is required but may be
// empty: a nil map means the producer forgot to pass arguments, an empty
// map means the tool takes none.
type ToolCallStarted struct {
	ToolCallID string         `json:"tool_call_id"`
	ToolName   string         `json:"tool_name"`
	Agent      string         `json:"agent"`
	Args       map[string]any `json:"args"`
}

func (*ToolCallStarted) Kind() Type { return TypeToolCallStarted }

func (p *ToolCallStarted) Validate() error {
	if p.ToolCallID == "" {
		return missingField(TypeToolCallStarted, "tool_call_id")
	}
	if p.ToolName == "" {
		return missingField(TypeToolCallStarted, "tool_name")
	}
	if p.Agent == "" {
		return missingField(TypeToolCallStarted, "agent")
	}
	if p.Args == nil {
		return missingField(TypeToolCallStarted, "args")
	}
	return nil
}

// ToolCallDelta streams partial tool output while the call runs.
type ToolCallDelta struct {
	ToolCallID string `json:"tool_call_id"`
	Chunk      string `json:"chunk"`
}

func (*ToolCallDelta) Kind() Type { return TypeToolCallDelta }

func (p *ToolCallDelta) Validate() error {
	if p.ToolCallID == "" {
		return missingField(TypeToolCallDelta, "tool_call_id")
	}
	if p.Chunk == "" {
		return missingField(TypeToolCallDelta, "chunk")
	}
	return nil
}

// ToolCallResult terminates a tool invocation with either Result or Error.
type ToolCallResult struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name,omitempty"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

func (*ToolCallResult) Kind() Type { return TypeToolCallResult }

func (p *ToolCallResult) Validate() error {
	if p.ToolCallID == "" {
		return missingField(TypeToolCallResult, "tool_call_id")
	}
	return nil
}

// WorkflowStarted announces a workflow run within the session.
type WorkflowStarted struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Input    any    `json:"input,omitempty"`
}

func (*WorkflowStarted) Kind() Type { return TypeWorkflowStarted }

func (p *WorkflowStarted) Validate() error {
	if p.RunID == "" {
		return missingField(TypeWorkflowStarted, "run_id")
	}
	if p.Workflow == "" {
		return missingField(TypeWorkflowStarted, "workflow")
	}
	return nil
}

// WorkflowStepStarted marks entry into a step.
type WorkflowStepStarted struct {
	RunID  string `json:"run_id"`
	StepID string `json:"step_id"`
	Agent  string `json:"agent,omitempty"`
	Input  any    `json:"input,omitempty"`
}

func (*WorkflowStepStarted) Kind() Type { return TypeWorkflowStepStarted }

func (p *WorkflowStepStarted) Validate() error {
	if p.RunID == "" {
		return missingField(TypeWorkflowStepStarted, "run_id")
	}
	if p.StepID == "" {
		return missingField(TypeWorkflowStepStarted, "step_id")
	}
	return nil
}

// WorkflowStepCompleted carries a step's output. Output is required: a
// step that produces nothing reports an explicit empty object, not nil.
type WorkflowStepCompleted struct {
	RunID  string `json:"run_id"`
	StepID string `json:"step_id"`
	Output any    `json:"output"`
}

func (*WorkflowStepCompleted) Kind() Type { return TypeWorkflowStepCompleted }

func (p *WorkflowStepCompleted) Validate() error {
	if p.RunID == "" {
		return missingField(TypeWorkflowStepCompleted, "run_id")
	}
	if p.StepID == "" {
		return missingField(TypeWorkflowStepCompleted, "step_id")
	}
	if p.Output == nil {
		return missingField(TypeWorkflowStepCompleted, "output")
	}
	return nil
}

// WorkflowTransition records an edge taken between two steps.
type WorkflowTransition struct {
	RunID    string `json:"run_id"`
	FromStep string `json:"from_step"`
	ToStep   string `json:"to_step"`
	Reason   string `json:"reason,omitempty"`
}

func (*WorkflowTransition) Kind() Type { return TypeWorkflowTransition }

func (p *WorkflowTransition) Validate() error {
	if p.RunID == "" {
		return missingField(TypeWorkflowTransition, "run_id")
	}
	if p.FromStep == "" {
		return missingField(TypeWorkflowTransition, "from_step")
	}
	if p.ToStep == "" {
		return missingField(TypeWorkflowTransition, "to_step")
	}
	return nil
}

// Workflow terminal statuses.
const (
	WorkflowStatusCompleted = "completed"
	WorkflowStatusFailed    = "failed"
)

// WorkflowCompleted terminates a workflow run.
type WorkflowCompleted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
	Output any    `json:"output,omitempty"`
}

func (*WorkflowCompleted) Kind() Type { return TypeWorkflowCompleted }

func (p *WorkflowCompleted) Validate() error {
	if p.RunID == "" {
		return missingField(TypeWorkflowCompleted, "run_id")
	}
	switch p.Status {
	case WorkflowStatusCompleted, WorkflowStatusFailed:
		return nil
	case "":
		return missingField(TypeWorkflowCompleted, "status")
	default:
		return &SchemaViolationError{Type: TypeWorkflowCompleted, Field: "status", Reason: "must be completed or failed"}
	}
}

// AgentThought exposes intermediate reasoning for "thinking" indicators.
type AgentThought struct {
	Agent   string `json:"agent"`
	Thought string `json:"thought"`
}

func (*AgentThought) Kind() Type { return TypeAgentThought }

func (p *AgentThought) Validate() error {
	if p.Agent == "" {
		return missingField(TypeAgentThought, "agent")
	}
	if p.Thought == "" {
		return missingField(TypeAgentThought, "thought")
	}
	return nil
}

// RunError reports a failure in the producer's own domain. It is the only
// error consumers ever see on the stream: bus failures never surface here.
type RunError struct {
	Error string `json:"error"`
	Agent string `json:"agent,omitempty"`
	RunID string `json:"run_id,omitempty"`
	Fatal bool   `json:"fatal,omitempty"`
}

func (*RunError) Kind() Type { return TypeRunError }

func (p *RunError) Validate() error {
	if p.Error == "" {
		return missingField(TypeRunError, "error")
	}
	return nil
}

// RunRetry announces another attempt after a recoverable failure.
type RunRetry struct {
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (*RunRetry) Kind() Type { return TypeRunRetry }

func (p *RunRetry) Validate() error {
	if p.Attempt < 1 {
		return &SchemaViolationError{Type: TypeRunRetry, Field: "attempt", Reason: "must be >= 1"}
	}
	return nil
}

// RunInterrupted records an external interruption (operator stop, timeout).
type RunInterrupted struct {
	Reason string `json:"reason,omitempty"`
	By     string `json:"by,omitempty"`
}

func (*RunInterrupted) Kind() Type { return TypeRunInterrupted }

func (*RunInterrupted) Validate() error { return nil }

// RetrievalStarted announces a knowledge lookup.
type RetrievalStarted struct {
	Query  string `json:"query"`
	Source string `json:"source,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

func (*RetrievalStarted) Kind() Type { return TypeRetrievalStarted }

func (p *RetrievalStarted) Validate() error {
	if p.Query == "" {
		return missingField(TypeRetrievalStarted, "query")
	}
	return nil
}

// RetrievalResult carries the retrieved documents. Documents is required;
// an empty (non-nil) slice is a valid "nothing found" result.
type RetrievalResult struct {
	Documents []RetrievedDocument `json:"documents"`
	Query     string              `json:"query,omitempty"`
	Source    string              `json:"source,omitempty"`
}

// RetrievedDocument is one scored retrieval hit.
type RetrievedDocument struct {
	ID      string  `json:"id,omitempty"`
	Content string  `json:"content,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

func (*RetrievalResult) Kind() Type { return TypeRetrievalResult }

func (p *RetrievalResult) Validate() error {
	if p.Documents == nil {
		return missingField(TypeRetrievalResult, "documents")
	}
	return nil
}

// AutomationTriggered marks a scheduled or rule-driven action firing.
type AutomationTriggered struct {
	AutomationID string `json:"automation_id"`
	Trigger      string `json:"trigger,omitempty"`
}

func (*AutomationTriggered) Kind() Type { return TypeAutomationTriggered }

func (p *AutomationTriggered) Validate() error {
	if p.AutomationID == "" {
		return missingField(TypeAutomationTriggered, "automation_id")
	}
	return nil
}

// AutomationCompleted terminates an automation run.
type AutomationCompleted struct {
	AutomationID string `json:"automation_id"`
	Status       string `json:"status,omitempty"`
	Output       any    `json:"output,omitempty"`
}

func (*AutomationCompleted) Kind() Type { return TypeAutomationCompleted }

func (p *AutomationCompleted) Validate() error {
	if p.AutomationID == "" {
		return missingField(TypeAutomationCompleted, "automation_id")
	}
	return nil
}

// MetricsUpdate is a periodic numeric snapshot (token counts, costs,
// queue depths) scoped to the session.
type MetricsUpdate struct {
	Metrics map[string]float64 `json:"metrics"`
	Scope   string             `json:"scope,omitempty"`
}

func (*MetricsUpdate) Kind() Type { return TypeMetricsUpdate }

func (p *MetricsUpdate) Validate() error {
	if p.Metrics == nil {
		return missingField(TypeMetricsUpdate, "metrics")
	}
	return nil
}

// StreamStarted is the transport's synthetic first frame; Channel names
// the routing key the connection is subscribed to.
type StreamStarted struct {
	Channel string `json:"channel,omitempty"`
}

func (*StreamStarted) Kind() Type { return TypeStreamStarted }

func (*StreamStarted) Validate() error { return nil }
