// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains the runtime dependencies served by the Manager.
type Deps struct {
	// Logger is the structured logger for the daemon.
	Logger zerolog.Logger

	// APIHandler serves the event API: streams, ingest, health.
	APIHandler http.Handler

	// MetricsHandler serves Prometheus metrics. nil disables the
	// metrics listener regardless of the configured address.
	MetricsHandler http.Handler
}

// Validate checks that the required dependencies are present.
func (d *Deps) Validate() error {
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
