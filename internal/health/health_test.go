// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m := NewManager("v1.2.3")
	assert.NotNil(t, m)
	assert.Equal(t, "v1.2.3", m.version)
	assert.Empty(t, m.checkers)
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	// Non-verbose: no checks included
	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	// Verbose: checks included
	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status) // Overall status degraded
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusHealthy, resp.Checks["healthy"].Status)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Health_Unhealthy(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_Ready_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Ready(context.Background(), false)
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestManager_Ready_AllHealthy(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "check1", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "check2", status: StatusHealthy})

	resp := m.Ready(context.Background(), false)
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready_Degraded(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Ready(context.Background(), false)
	assert.True(t, resp.Ready) // Degraded is still ready
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestManager_Ready_Unhealthy(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "unhealthy", status: StatusUnhealthy})

	resp := m.Ready(context.Background(), false)
	assert.False(t, resp.Ready) // Unhealthy = not ready
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "test", status: StatusHealthy})

	// Test without verbose
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks) // Not verbose

	// Test with verbose
	req = httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil)
	w = httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	err = json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.NotNil(t, resp.Checks)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_ServeHealth_EncodingError(t *testing.T) {
	m := NewManager("v1.0.0")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := &brokenWriter{header: make(http.Header)}

	// Should not panic even if encoding fails
	m.ServeHealth(w, req)
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name           string
		checker        Checker
		expectedStatus int
		expectedReady  bool
	}{
		{
			name:           "healthy",
			checker:        &mockChecker{name: "test", status: StatusHealthy},
			expectedStatus: http.StatusOK,
			expectedReady:  true,
		},
		{
			name:           "degraded",
			checker:        &mockChecker{name: "test", status: StatusDegraded},
			expectedStatus: http.StatusOK,
			expectedReady:  true,
		},
		{
			name:           "unhealthy",
			checker:        &mockChecker{name: "test", status: StatusUnhealthy},
			expectedStatus: http.StatusServiceUnavailable,
			expectedReady:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			m.ServeReady(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ReadinessResponse
			err := json.NewDecoder(w.Body).Decode(&resp)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedReady, resp.Ready)
		})
	}
}

func TestManager_ServeReady_EncodingError(t *testing.T) {
	m := NewManager("v1.0.0")

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := &brokenWriter{header: make(http.Header)}

	// Should not panic even if encoding fails
	m.ServeReady(w, req)
}

func TestBrokerChecker_Name(t *testing.T) {
	checker := NewBrokerChecker("memory", nil)
	assert.Equal(t, "broker", checker.Name())
}

func TestBrokerChecker(t *testing.T) {
	tests := []struct {
		name           string
		kind           string
		pinger         Pinger
		expectedStatus Status
		expectedError  string
	}{
		{
			name:           "in-process broker",
			kind:           "memory",
			pinger:         nil,
			expectedStatus: StatusHealthy,
		},
		{
			name:           "reachable broker",
			kind:           "redis",
			pinger:         pingerFunc(func(context.Context) error { return nil }),
			expectedStatus: StatusHealthy,
		},
		{
			name: "unreachable broker",
			kind: "redis",
			pinger: pingerFunc(func(context.Context) error {
				return errors.New("connection refused")
			}),
			expectedStatus: StatusUnhealthy,
			expectedError:  "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewBrokerChecker(tt.kind, tt.pinger)

			result := checker.Check(context.Background())
			assert.Equal(t, tt.expectedStatus, result.Status)
			if tt.expectedError != "" {
				assert.Contains(t, result.Error, tt.expectedError)
			}
		})
	}
}

func TestBrokerChecker_PingTimeout(t *testing.T) {
	checker := NewBrokerChecker("redis", pingerFunc(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	}))

	start := time.Now()
	result := checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Less(t, time.Since(start), 5*time.Second, "check must respect its internal timeout")
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Mock checker for testing
type mockChecker struct {
	name    string
	status  Status
	message string
	err     string
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{
		Status:  m.status,
		Message: m.message,
		Error:   m.err,
	}
}

// brokenWriter is a mock ResponseWriter that always fails to write
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, assert.AnError // Always fail
}

func (w *brokenWriter) WriteHeader(statusCode int) {
	// No-op
}
