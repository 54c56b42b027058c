// SPDX-License-Identifier: MIT

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/metrics"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	return m.GetCounter().GetValue()
}

func recvEnvelope(t *testing.T, sub bus.Subscription) *event.Envelope {
	t.Helper()
	select {
	case env, ok := <-sub.C():
		require.True(t, ok, "subscription channel closed unexpectedly")
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for envelope")
		return nil
	}
}

func expectNoEnvelope(t *testing.T, sub bus.Subscription) {
	t.Helper()
	select {
	case env := <-sub.C():
		t.Fatalf("unexpected envelope: %v", env.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcherPublishesOnSessionChannel(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b)
	err = d.ToolCallStarted(context.Background(), "run-1", "call-1", "web_search", "planner", map[string]any{"query": "weather"})
	require.NoError(t, err)

	env := recvEnvelope(t, sub)
	require.Equal(t, event.TypeToolCallStarted, env.Type)
	require.Equal(t, "run-1", env.SessionID)

	payload, ok := env.Payload.(*event.ToolCallStarted)
	require.True(t, ok)
	require.Equal(t, "call-1", payload.ToolCallID)
	require.Equal(t, "web_search", payload.ToolName)
	require.Equal(t, "planner", payload.Agent)
}

func TestDispatcherStampsIdentity(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b)
	require.NoError(t, d.AgentThought(context.Background(), "run-1", "planner", "first"))
	require.NoError(t, d.AgentThought(context.Background(), "run-1", "planner", "second"))

	first := recvEnvelope(t, sub)
	second := recvEnvelope(t, sub)

	require.NotEmpty(t, first.EventID)
	require.NotEmpty(t, second.EventID)
	require.NotEqual(t, first.EventID, second.EventID)
	require.False(t, first.Timestamp.IsZero())
}

func TestDispatcherReturnsSchemaViolation(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b)

	// nil args means the producer forgot to pass arguments
	err = d.ToolCallStarted(context.Background(), "run-1", "call-1", "web_search", "planner", nil)
	require.Error(t, err)

	var sv *event.SchemaViolationError
	require.True(t, errors.As(err, &sv))

	// Nothing reached the bus.
	expectNoEnvelope(t, sub)
}

func TestDispatcherSwallowsPublishFailure(t *testing.T) {
	b := bus.NewMemory()
	require.NoError(t, b.Close())

	failures := metrics.DispatchFailuresTotal.WithLabelValues(string(event.TypeRunError), "bus_closed")
	before := getCounterValue(t, failures)

	d := New(b)
	err := d.RunError(context.Background(), "run-1", "upstream timeout", "planner", "", false)
	require.NoError(t, err, "publish failures must not surface to the producer")

	require.Equal(t, before+1, getCounterValue(t, failures))
}

func TestDispatcherDeltaThrottle(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	throttled := metrics.DispatchThrottledTotal.WithLabelValues(string(event.TypeAgentMessageDelta))
	before := getCounterValue(t, throttled)

	// Refill is effectively zero within the test window, so exactly the
	// burst passes.
	d := New(b, WithDeltaThrottle(0.001, 2))

	for i := 0; i < 5; i++ {
		chunk := fmt.Sprintf("chunk-%d", i)
		require.NoError(t, d.AgentMessageDelta(context.Background(), "run-1", "msg-1", "planner", chunk))
	}

	got := 0
	for {
		select {
		case <-sub.C():
			got++
		case <-time.After(100 * time.Millisecond):
			require.Equal(t, 2, got, "only the burst should pass the throttle")
			require.Equal(t, before+3, getCounterValue(t, throttled))
			return
		}
	}
}

func TestDispatcherThrottleSparesNonDeltaKinds(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b, WithDeltaThrottle(0.001, 1))

	// Exhaust the throttle with deltas.
	require.NoError(t, d.AgentMessageDelta(context.Background(), "run-1", "msg-1", "planner", "a"))
	require.NoError(t, d.AgentMessageDelta(context.Background(), "run-1", "msg-1", "planner", "b"))

	// Terminal events must still pass.
	require.NoError(t, d.AgentMessageEnd(context.Background(), "run-1", "msg-1", "planner", "ab", 2))

	first := recvEnvelope(t, sub)
	require.Equal(t, event.TypeAgentMessageDelta, first.Type)
	second := recvEnvelope(t, sub)
	require.Equal(t, event.TypeAgentMessageEnd, second.Type)
}

func TestDispatcherNoThrottleByDefault(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b)
	for i := 0; i < 10; i++ {
		chunk := fmt.Sprintf("chunk-%d", i)
		require.NoError(t, d.ToolCallDelta(context.Background(), "run-1", "call-1", chunk))
	}

	for i := 0; i < 10; i++ {
		env := recvEnvelope(t, sub)
		require.Equal(t, event.TypeToolCallDelta, env.Type)
	}
}

func TestDispatcherSystemNotice(t *testing.T) {
	b := bus.NewMemory()
	defer func() { _ = b.Close() }()

	broadcast, err := b.Subscribe(context.Background(), channel.Broadcast)
	require.NoError(t, err)
	defer func() { _ = broadcast.Close() }()

	session, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	d := New(b)
	require.NoError(t, d.SystemNotice(context.Background(), "maintenance at noon", map[string]string{"severity": "info"}))

	env := recvEnvelope(t, broadcast)
	require.Equal(t, event.TypeSessionStarted, env.Type)
	require.Equal(t, event.SystemSessionID, env.SessionID)

	payload, ok := env.Payload.(*event.SessionStarted)
	require.True(t, ok)
	require.Equal(t, "maintenance at noon", payload.Title)

	// Broadcast traffic never leaks into session streams.
	expectNoEnvelope(t, session)
}

func TestDispatcherConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 20

	// Buffer sized to hold every emit: the subscriber drains only after
	// wg.Wait, and the default buffer would evict under drop-oldest.
	b := bus.NewMemory(bus.WithBuffer(producers * perProducer))
	defer func() { _ = b.Close() }()

	sub, err := b.Subscribe(context.Background(), channel.ForSession("run-1"))
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	d := New(b)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			agent := fmt.Sprintf("agent-%d", p)
			for i := 0; i < perProducer; i++ {
				thought := fmt.Sprintf("thought-%d", i)
				_ = d.AgentThought(context.Background(), "run-1", agent, thought)
			}
		}(p)
	}
	wg.Wait()

	// Each producer's own events arrive in emit order.
	lastSeen := make(map[string]int)
	for i := 0; i < producers*perProducer; i++ {
		env := recvEnvelope(t, sub)
		payload, ok := env.Payload.(*event.AgentThought)
		require.True(t, ok)

		var n int
		_, err := fmt.Sscanf(payload.Thought, "thought-%d", &n)
		require.NoError(t, err)

		if prev, seen := lastSeen[payload.Agent]; seen {
			require.Greater(t, n, prev, "per-producer order violated for %s", payload.Agent)
		}
		lastSeen[payload.Agent] = n
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bus closed", bus.ErrBusClosed, "bus_closed"},
		{"broker unavailable", bus.ErrBrokerUnavailable, "broker_unavailable"},
		{"wrapped broker error", fmt.Errorf("publish: %w", bus.ErrBrokerUnavailable), "broker_unavailable"},
		{"canceled", context.Canceled, "canceled"},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"other", errors.New("boom"), "publish_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, failureReason(tt.err))
		})
	}
}
