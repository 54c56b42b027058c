// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getStatus(t *testing.T, url string) statusResponse {
	t.Helper()
	resp, err := http.Get(url + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	return got
}

func TestStatusIdle(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	got := getStatus(t, srv.URL)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "test", got.Version)
	assert.Equal(t, "memory", got.Broker)
	assert.GreaterOrEqual(t, got.UptimeSeconds, int64(0))
	assert.Empty(t, got.Streams)
}

func TestStatusCountsOpenStreams(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	// The tracker increments before stream_started goes out, so after
	// reading that frame the count is visible.
	_, _ = readyStream(t, srv.URL+"/events/run-status-1")
	_, _ = readyStream(t, srv.URL+"/events/run-status-2")
	_, _ = readyStream(t, srv.URL+"/events/broadcast")

	got := getStatus(t, srv.URL)
	assert.Equal(t, 3, got.Streams["sse"])
	assert.Equal(t, 2, got.Channels["session"])
	assert.Equal(t, 1, got.Channels["broadcast"])
}
