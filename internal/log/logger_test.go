// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureAppliesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "runwire-test", Version: "1.2.3"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := Base()
	logger.Info().Msg("boot")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["service"] != "runwire-test" {
		t.Errorf("expected service runwire-test, got %v", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %v", entry["version"])
	}
}

func TestConfigureIsRepeatable(t *testing.T) {
	var first, second bytes.Buffer
	Configure(Config{Output: &first, Service: "one"})
	Configure(Config{Output: &second, Service: "two"})
	t.Cleanup(func() { Configure(Config{}) })

	logger := Base()
	logger.Info().Msg("after reconfigure")

	if first.Len() != 0 {
		t.Errorf("first writer should no longer receive output, got %q", first.String())
	}
	if second.Len() == 0 {
		t.Error("second writer should receive output after reconfigure")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Configure(Config{})
	})

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel(warn) failed: %v", err)
	}
	logger := Base()
	logger.Info().Msg("filtered")
	if buf.Len() != 0 {
		t.Errorf("info line should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn().Msg("visible")
	if buf.Len() == 0 {
		t.Error("warn line should pass at warn level")
	}

	if err := SetLevel("bogus"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("bus")
	logger.Info().Msg("component test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry[FieldComponent] != "bus" {
		t.Errorf("expected component bus, got %v", entry[FieldComponent])
	}
}

func TestMiddlewareLogsCompletedRequest(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry[FieldEvent] != "request.handled" {
		t.Errorf("expected event request.handled, got %v", entry[FieldEvent])
	}
	if entry[FieldStatus] != float64(http.StatusTeapot) {
		t.Errorf("expected status 418, got %v", entry[FieldStatus])
	}
	if entry[FieldPath] != "/api/status" {
		t.Errorf("expected path /api/status, got %v", entry[FieldPath])
	}
	if entry[FieldRequestID] != "req-42" {
		t.Errorf("expected request_id req-42, got %v", entry[FieldRequestID])
	}
}
