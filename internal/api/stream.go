// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/api/middleware"
	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/log"
	"github.com/runwire/runwire/internal/metrics"
	"github.com/runwire/runwire/internal/telemetry"
)

// handleSessionStream streams one session's envelopes over SSE.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if !channel.IsValidSessionID(sessionID) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	s.serveSSE(w, r, channel.ForSession(sessionID), sessionID)
}

// handleBroadcastStream streams the reserved broadcast channel.
func (s *Server) handleBroadcastStream(w http.ResponseWriter, r *http.Request) {
	s.serveSSE(w, r, channel.Broadcast, event.SystemSessionID)
}

// serveSSE owns one streaming connection from subscribe to close. The
// subscription is released on every exit path; a connection is never
// left half-open after a failed subscribe.
func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request, ch, sessionID string) {
	ctx := r.Context()
	kind := channel.Kind(ch)
	logger := log.WithComponentFromContext(ctx, "stream").With().
		Str(log.FieldChannel, ch).
		Str(log.FieldTransport, metrics.TransportSSE).
		Logger()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	middleware.AddSpanAttributes(r, telemetry.StreamAttributes(ch, kind, metrics.TransportSSE)...)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Reverse proxies must pass frames through unbuffered.
	w.Header().Set("X-Accel-Buffering", "no")

	sub, err := s.bus.Subscribe(ctx, ch)
	if err != nil {
		metrics.IncStreamError(metrics.TransportSSE, metrics.ReasonSubscribeFailed)
		logger.Error().Err(err).Msg("stream.subscribe_failed")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", errorFrame(err))
		flusher.Flush()
		return
	}
	defer func() { _ = sub.Close() }()

	release := s.streams.track(metrics.TransportSSE, kind)
	metrics.StreamOpened(metrics.TransportSSE)
	logger.Info().Str(log.FieldSessionID, sessionID).Msg("stream.opened")
	defer func() {
		release()
		metrics.StreamClosed(metrics.TransportSSE)
		logger.Info().Msg("stream.closed")
	}()

	started, err := event.New(sessionID, &event.StreamStarted{Channel: ch})
	if err != nil {
		logger.Error().Err(err).Msg("stream.start_frame_failed")
		return
	}
	if !s.writeFrame(w, flusher, logger, started) {
		return
	}

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C():
			if !ok {
				// The broker released the subscription underneath a
				// live stream (shutdown or connection loss).
				metrics.IncStreamError(metrics.TransportSSE, metrics.ReasonSubscriptionClosed)
				logger.Warn().Err(bus.ErrSubscriptionClosed).Msg("stream.subscription_lost")
				return
			}
			if !s.writeFrame(w, flusher, logger, env) {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				metrics.IncStreamError(metrics.TransportSSE, metrics.ReasonWriteFailed)
				return
			}
			flusher.Flush()
			metrics.IncHeartbeat(metrics.TransportSSE)
		}
	}
}

// writeFrame sends one envelope as an SSE frame. A false return ends the
// stream; an encode failure skips the envelope and keeps it alive.
func (s *Server) writeFrame(w http.ResponseWriter, flusher http.Flusher, logger zerolog.Logger, env *event.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncStreamError(metrics.TransportSSE, metrics.ReasonEncodeFailed)
		logger.Warn().Err(err).
			Str(log.FieldEventType, string(env.Type)).
			Str(log.FieldEventID, env.EventID).
			Msg("stream.encode_failed")
		return true
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Type, data); err != nil {
		metrics.IncStreamError(metrics.TransportSSE, metrics.ReasonWriteFailed)
		logger.Debug().Err(err).Msg("stream.write_failed")
		return false
	}
	flusher.Flush()
	metrics.IncEventSent(metrics.TransportSSE, string(env.Type))
	return true
}

// errorFrame renders the data payload of an "event: error" frame.
// Internal error detail stays out of the response body.
func errorFrame(err error) []byte {
	msg := "subscribe failed"
	if errors.Is(err, bus.ErrBrokerUnavailable) {
		msg = "broker unavailable"
	}
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}
