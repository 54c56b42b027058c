// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/runwire/runwire/internal/api/middleware"
	"github.com/runwire/runwire/internal/bus"
	"github.com/runwire/runwire/internal/channel"
	"github.com/runwire/runwire/internal/event"
	"github.com/runwire/runwire/internal/log"
	"github.com/runwire/runwire/internal/metrics"
	"github.com/runwire/runwire/internal/telemetry"
)

const wsWriteTimeout = 10 * time.Second

// handleSessionWS streams one session's envelopes as JSON text messages
// over a WebSocket. Keepalive is ping/pong instead of comment frames;
// subscription semantics and the drop policy match the SSE transport.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if !channel.IsValidSessionID(sessionID) {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	ch := channel.ForSession(sessionID)

	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "stream").With().
		Str(log.FieldChannel, ch).
		Str(log.FieldTransport, metrics.TransportWS).
		Logger()

	middleware.AddSpanAttributes(r, telemetry.StreamAttributes(ch, channel.Kind(ch), metrics.TransportWS)...)

	// Subscribe before the upgrade so a dead broker yields a clean 503
	// instead of a socket that opens and immediately closes.
	sub, err := s.bus.Subscribe(ctx, ch)
	if err != nil {
		metrics.IncStreamError(metrics.TransportWS, metrics.ReasonSubscribeFailed)
		logger.Error().Err(err).Msg("stream.subscribe_failed")
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		_ = sub.Close()
		logger.Debug().Err(err).Msg("stream.upgrade_failed")
		return
	}

	release := s.streams.track(metrics.TransportWS, channel.Kind(ch))
	metrics.StreamOpened(metrics.TransportWS)
	logger.Info().Str(log.FieldSessionID, sessionID).Msg("stream.opened")
	defer func() {
		release()
		metrics.StreamClosed(metrics.TransportWS)
		_ = sub.Close()
		_ = conn.Close()
		logger.Info().Msg("stream.closed")
	}()

	// The read side only consumes control frames. Pongs refresh the
	// read deadline; a read error means the peer went away.
	pongWait := 2 * s.cfg.HeartbeatInterval
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	started, err := event.New(sessionID, &event.StreamStarted{Channel: ch})
	if err != nil {
		logger.Error().Err(err).Msg("stream.start_frame_failed")
		return
	}
	if !s.writeWS(conn, logger, started) {
		return
	}

	ping := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case env, ok := <-sub.C():
			if !ok {
				metrics.IncStreamError(metrics.TransportWS, metrics.ReasonSubscriptionClosed)
				logger.Warn().Err(bus.ErrSubscriptionClosed).Msg("stream.subscription_lost")
				return
			}
			if !s.writeWS(conn, logger, env) {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.IncStreamError(metrics.TransportWS, metrics.ReasonWriteFailed)
				return
			}
			metrics.IncHeartbeat(metrics.TransportWS)
		}
	}
}

// writeWS sends one envelope as a text message. Encode failures skip the
// envelope; write failures end the stream.
func (s *Server) writeWS(conn *websocket.Conn, logger zerolog.Logger, env *event.Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		metrics.IncStreamError(metrics.TransportWS, metrics.ReasonEncodeFailed)
		logger.Warn().Err(err).
			Str(log.FieldEventType, string(env.Type)).
			Str(log.FieldEventID, env.EventID).
			Msg("stream.encode_failed")
		return true
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		metrics.IncStreamError(metrics.TransportWS, metrics.ReasonWriteFailed)
		logger.Debug().Err(err).Msg("stream.write_failed")
		return false
	}
	metrics.IncEventSent(metrics.TransportWS, string(env.Type))
	return true
}
