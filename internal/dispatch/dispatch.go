// SPDX-License-Identifier: MIT

// Package dispatch is the typed construction facade producers emit through.
//
// Every event kind a producer may publish has exactly one method here. Each
// method builds a validated envelope, stamps identity and time, and hands it
// to the bus on the session's channel. Publish failures are logged, counted
// and swallowed: a producer must never fail its primary task because the
// observability plumbing is down. The only errors returned to callers are
// schema violations, which indicate a bug at the call site.
//
// A Dispatcher is constructed explicitly and passed by reference; there is
// no package-level instance.
package dispatch

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/log"
	"github.com/runwire/runwire/internal/metrics"
)

// Dispatcher publishes typed events on behalf of producers. It holds no
// per-session state; methods are safe for concurrent use.
type Dispatcher struct {
	bus     bus.Bus
	logger  zerolog.Logger
	limiter *rate.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithDeltaThrottle rate-limits the high-frequency delta kinds
// (agent_message_delta, tool_call_delta) to eventsPerSec with the given
// burst. Excess deltas are dropped and counted, never blocking the
// producer. A rate of zero disables the throttle.
func WithDeltaThrottle(eventsPerSec float64, burst int) Option {
	return func(d *Dispatcher) {
		if eventsPerSec > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(eventsPerSec), burst)
		}
	}
}

// New creates a Dispatcher publishing to b.
func New(b bus.Bus, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bus:    b,
		logger: log.WithComponent("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// emit builds the envelope and publishes it on the session's channel.
// Construction errors (schema violations) surface to the caller; publish
// errors do not.
func (d *Dispatcher) emit(ctx context.Context, sessionID string, p event.Payload) error {
	env, err := event.New(sessionID, p)
	if err != nil {
		return err
	}
	d.publish(ctx, channel.ForSession(sessionID), env)
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, ch string, env *event.Envelope) {
	if err := d.bus.Publish(ctx, ch, env); err != nil {
		metrics.IncDispatchFailure(string(env.Type), failureReason(err))
		d.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "dispatch.publish_failed").
			Str(log.FieldEventType, string(env.Type)).
			Str(log.FieldSessionID, env.SessionID).
			Msg("event publish failed; producer continues")
		return
	}
	metrics.IncDispatched(string(env.Type))
}

// allowDelta consults the throttle for one delta envelope.
func (d *Dispatcher) allowDelta(t event.Type) bool {
	if d.limiter == nil {
		return true
	}
	if d.limiter.Allow() {
		return true
	}
	// Counted, not logged: a saturated producer would flood the log.
	metrics.IncDispatchThrottled(string(t))
	return false
}

// failureReason maps publish errors onto a bounded metric label set.
func failureReason(err error) string {
	switch {
	case errors.Is(err, bus.ErrBusClosed):
		return "bus_closed"
	case errors.Is(err, bus.ErrBrokerUnavailable):
		return "broker_unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "publish_error"
	}
}

// SessionStarted announces a new logical run.
func (d *Dispatcher) SessionStarted(ctx context.Context, sessionID, title string, labels map[string]string) error {
	return d.emit(ctx, sessionID, &event.SessionStarted{Title: title, Labels: labels})
}

// SessionEnded closes a run with one of the session status constants.
func (d *Dispatcher) SessionEnded(ctx context.Context, sessionID, status, reason string) error {
	return d.emit(ctx, sessionID, &event.SessionEnded{Status: status, Reason: reason})
}

// AgentMessageStart opens a streamed assistant message.
func (d *Dispatcher) AgentMessageStart(ctx context.Context, sessionID, messageID, agent, role string) error {
	return d.emit(ctx, sessionID, &event.AgentMessageStart{MessageID: messageID, Agent: agent, Role: role})
}

// AgentMessageDelta streams one text chunk. Subject to the delta throttle.
func (d *Dispatcher) AgentMessageDelta(ctx context.Context, sessionID, messageID, agent, delta string) error {
	if !d.allowDelta(event.TypeAgentMessageDelta) {
		return nil
	}
	return d.emit(ctx, sessionID, &event.AgentMessageDelta{MessageID: messageID, Agent: agent, Delta: delta})
}

// AgentMessageEnd closes a streamed message, optionally with the full
// assembled content for late-joining observers.
func (d *Dispatcher) AgentMessageEnd(ctx context.Context, sessionID, messageID, agent, content string, tokens int) error {
	return d.emit(ctx, sessionID, &event.AgentMessageEnd{MessageID: messageID, Agent: agent, Content: content, Tokens: tokens})
}

// ToolCallStarted announces a tool invocation. Pass an empty map for tools
// that take no arguments; a nil args map is a schema violation.
func (d *Dispatcher) ToolCallStarted(ctx context.Context, sessionID, toolCallID, toolName, agent string, args map[string]any) error {
	return d.emit(ctx, sessionID, &event.ToolCallStarted{ToolCallID: toolCallID, ToolName: toolName, Agent: agent, Args: args})
}

// ToolCallDelta streams partial tool output. Subject to the delta throttle.
func (d *Dispatcher) ToolCallDelta(ctx context.Context, sessionID, toolCallID, chunk string) error {
	if !d.allowDelta(event.TypeToolCallDelta) {
		return nil
	}
	return d.emit(ctx, sessionID, &event.ToolCallDelta{ToolCallID: toolCallID, Chunk: chunk})
}

// ToolCallResult terminates a tool invocation. The payload struct is taken
// as-is because the result carries too many optional fields for a flat
// argument list.
func (d *Dispatcher) ToolCallResult(ctx context.Context, sessionID string, result event.ToolCallResult) error {
	return d.emit(ctx, sessionID, &result)
}

// WorkflowStarted announces a workflow run within the session.
func (d *Dispatcher) WorkflowStarted(ctx context.Context, sessionID, runID, workflow string, input any) error {
	return d.emit(ctx, sessionID, &event.WorkflowStarted{RunID: runID, Workflow: workflow, Input: input})
}

// WorkflowStepStarted marks entry into a step.
func (d *Dispatcher) WorkflowStepStarted(ctx context.Context, sessionID, runID, stepID, agent string, input any) error {
	return d.emit(ctx, sessionID, &event.WorkflowStepStarted{RunID: runID, StepID: stepID, Agent: agent, Input: input})
}

// WorkflowStepCompleted carries a step's output. Steps that produce nothing
// report an explicit empty value, not nil.
func (d *Dispatcher) WorkflowStepCompleted(ctx context.Context, sessionID, runID, stepID string, output any) error {
	return d.emit(ctx, sessionID, &event.WorkflowStepCompleted{RunID: runID, StepID: stepID, Output: output})
}

// WorkflowTransition records an edge taken between two steps.
func (d *Dispatcher) WorkflowTransition(ctx context.Context, sessionID, runID, fromStep, toStep, reason string) error {
	return d.emit(ctx, sessionID, &event.WorkflowTransition{RunID: runID, FromStep: fromStep, ToStep: toStep, Reason: reason})
}

// WorkflowCompleted terminates a workflow run.
func (d *Dispatcher) WorkflowCompleted(ctx context.Context, sessionID, runID, status string, output any) error {
	return d.emit(ctx, sessionID, &event.WorkflowCompleted{RunID: runID, Status: status, Output: output})
}

// AgentThought exposes intermediate reasoning.
func (d *Dispatcher) AgentThought(ctx context.Context, sessionID, agent, thought string) error {
	return d.emit(ctx, sessionID, &event.AgentThought{Agent: agent, Thought: thought})
}

// RunError reports a failure in the producer's own domain.
func (d *Dispatcher) RunError(ctx context.Context, sessionID, message, agent, runID string, fatal bool) error {
	return d.emit(ctx, sessionID, &event.RunError{Error: message, Agent: agent, RunID: runID, Fatal: fatal})
}

// RunRetry announces another attempt after a recoverable failure.
func (d *Dispatcher) RunRetry(ctx context.Context, sessionID string, attempt, maxAttempts int, reason string) error {
	return d.emit(ctx, sessionID, &event.RunRetry{Attempt: attempt, MaxAttempts: maxAttempts, Reason: reason})
}

// RunInterrupted records an external interruption.
func (d *Dispatcher) RunInterrupted(ctx context.Context, sessionID, reason, by string) error {
	return d.emit(ctx, sessionID, &event.RunInterrupted{Reason: reason, By: by})
}

// RetrievalStarted announces a knowledge lookup.
func (d *Dispatcher) RetrievalStarted(ctx context.Context, sessionID, query, source string, topK int) error {
	return d.emit(ctx, sessionID, &event.RetrievalStarted{Query: query, Source: source, TopK: topK})
}

// RetrievalResult carries retrieved documents. An empty non-nil slice is a
// valid "nothing found" result.
func (d *Dispatcher) RetrievalResult(ctx context.Context, sessionID string, documents []event.RetrievedDocument, query, source string) error {
	return d.emit(ctx, sessionID, &event.RetrievalResult{Documents: documents, Query: query, Source: source})
}

// AutomationTriggered marks a scheduled or rule-driven action firing.
func (d *Dispatcher) AutomationTriggered(ctx context.Context, sessionID, automationID, trigger string) error {
	return d.emit(ctx, sessionID, &event.AutomationTriggered{AutomationID: automationID, Trigger: trigger})
}

// AutomationCompleted terminates an automation run.
func (d *Dispatcher) AutomationCompleted(ctx context.Context, sessionID, automationID, status string, output any) error {
	return d.emit(ctx, sessionID, &event.AutomationCompleted{AutomationID: automationID, Status: status, Output: output})
}

// MetricsUpdate publishes a periodic numeric snapshot scoped to the session.
func (d *Dispatcher) MetricsUpdate(ctx context.Context, sessionID string, values map[string]float64, scope string) error {
	return d.emit(ctx, sessionID, &event.MetricsUpdate{Metrics: values, Scope: scope})
}

// SystemNotice publishes a system-wide notice on the reserved broadcast
// channel. Notices ride the session_started shape under the "system"
// session id so consumers handle one envelope vocabulary.
func (d *Dispatcher) SystemNotice(ctx context.Context, title string, labels map[string]string) error {
	env, err := event.New(event.SystemSessionID, &event.SessionStarted{Title: title, Labels: labels})
	if err != nil {
		return err
	}
	d.publish(ctx, channel.Broadcast, env)
	return nil
}
