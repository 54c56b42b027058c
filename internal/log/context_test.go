// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			requestID: "test-id-123",
			want:      "test-id-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			requestID: "req-456",
			want:      "req-456",
		},
		{
			name:      "empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID)
			got := RequestIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithSessionID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		sessionID string
		want      string
	}{
		{
			name:      "nil context",
			ctx:       nil,
			sessionID: "sess-123",
			want:      "sess-123",
		},
		{
			name:      "background context",
			ctx:       context.Background(),
			sessionID: "sess-456",
			want:      "sess-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithSessionID(tt.ctx, tt.sessionID)
			got := SessionIDFromContext(ctx)
			if got != tt.want {
				t.Errorf("SessionIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestIDFromContextEmpty(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "nil context",
			ctx:  nil,
			want: "",
		},
		{
			name: "context without request ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "context with wrong type",
			ctx:  context.WithValue(context.Background(), requestIDKey, 123),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFromContext(tt.ctx)
			if got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContextEmitsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")

	logger := WithContext(ctx, Base())
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id req-1, got %v", entry[FieldRequestID])
	}
	if entry[FieldSessionID] != "sess-1" {
		t.Errorf("expected session_id sess-1, got %v", entry[FieldSessionID])
	}
}

func TestWithContextNoFieldsReturnsSameLogger(t *testing.T) {
	base := WithComponent("test")
	enriched := WithContext(context.Background(), base)
	if enriched.GetLevel() != base.GetLevel() {
		t.Error("logger level should be preserved")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	logger := WithComponentFromContext(context.Background(), "test-component")
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from WithComponentFromContext")
	}
}

func TestWithTraceContext(t *testing.T) {
	logger := WithTraceContext(context.Background())
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger without trace")
	}

	t.Run("WithValidSpan", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		var buf bytes.Buffer
		Configure(Config{Output: &buf})
		t.Cleanup(func() { Configure(Config{}) })

		traced := WithTraceContext(ctx)
		traced.Info().Msg("test with trace")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("failed to parse log output: %v", err)
		}
		if id, ok := entry["trace_id"].(string); !ok || id == "" {
			t.Error("expected trace_id in log output")
		}
		if id, ok := entry["span_id"].(string); !ok || id == "" {
			t.Error("expected span_id in log output")
		}
	})
}
