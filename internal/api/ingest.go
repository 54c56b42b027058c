// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/runwire/runwire/internal/api/middleware"
	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/log"
	"github.com/runwire/runwire/internal/metrics"
	"github.com/runwire/runwire/internal/telemetry"
)

// handleIngest accepts one envelope from a remote producer and publishes
// it on the envelope's session channel. The body goes through the same
// codec as every other entry point, so schema violations come back to
// the producer instead of reaching the bus.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "ingest")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		metrics.IncIngest(metrics.IngestRejected)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	env, err := event.DecodeEnvelope(body)
	if err != nil {
		metrics.IncIngest(metrics.IngestRejected)
		logger.Debug().Err(err).Msg("ingest.rejected")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !channel.IsValidSessionID(env.SessionID) {
		metrics.IncIngest(metrics.IngestRejected)
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	// Remote producers may omit event id and timestamp; fill only what
	// is missing so producer-assigned ids survive.
	env.Stamp()

	middleware.AddSpanAttributes(r, telemetry.EventAttributes(string(env.Type), env.SessionID, env.EventID)...)

	if err := s.bus.Publish(ctx, channel.ForSession(env.SessionID), env); err != nil {
		metrics.IncIngest(metrics.IngestUnavailable)
		logger.Error().Err(err).
			Str(log.FieldEventType, string(env.Type)).
			Str(log.FieldSessionID, env.SessionID).
			Msg("ingest.publish_failed")
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	}

	metrics.IncIngest(metrics.IngestAccepted)
	logger.Debug().
		Str(log.FieldEventType, string(env.Type)).
		Str(log.FieldSessionID, env.SessionID).
		Str(log.FieldEventID, env.EventID).
		Msg("ingest.accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":   "accepted",
		"event_id": env.EventID,
	})
}
