// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"time"
)

// statusResponse is the operational snapshot served by /api/status.
// Counts only; sessions are never enumerated.
type statusResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Broker        string         `json:"broker"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Streams       map[string]int `json:"streams"`
	Channels      map[string]int `json:"channels"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	byTransport, byKind := s.streams.snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        "ok",
		Version:       s.cfg.Version,
		Broker:        s.cfg.BrokerKind,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Streams:       byTransport,
		Channels:      byKind,
	})
}
