package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrop/pkg/metrics"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

// ============================================================================
// Health
// ============================================================================

func TestLiveness_ReturnsOK(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler("", nil).Liveness(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, map[string]any{"service": "dittodrop"}, resp.Data)
}

func TestReadiness(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		name   string
		root   string
		ready  ReadyFunc
		status int
	}{
		{"ready", root, func() error { return nil }, http.StatusOK},
		{"no ready func", root, nil, http.StatusOK},
		{"not configured", "", nil, http.StatusServiceUnavailable},
		{"missing root", filepath.Join(root, "missing"), nil, http.StatusServiceUnavailable},
		{"root is a file", file, nil, http.StatusServiceUnavailable},
		{"not listening", root, func() error { return errors.New("not listening") }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.root, tt.ready).Readiness(w, httptest.NewRequest("GET", "/health/ready", nil))

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			if tt.status == http.StatusOK {
				assert.Equal(t, "healthy", resp.Status)
			} else {
				assert.Equal(t, "unhealthy", resp.Status)
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

// ============================================================================
// Stats
// ============================================================================

func TestStats_ReturnsSnapshot(t *testing.T) {
	tracker := metrics.NewPerformanceTracker()
	tracker.ConnectionOpened()
	tracker.ConnectionOpened()
	tracker.ConnectionClosed()
	tracker.TransferCompleted()

	w := httptest.NewRecorder()
	NewStatsHandler(tracker).Get(w, httptest.NewRequest("GET", "/stats", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Status string           `json:"status"`
		Data   metrics.Snapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, metrics.Snapshot{ActiveConnections: 1, TotalConnections: 2, FileTransfers: 1}, resp.Data)
}

func TestStats_NoSource(t *testing.T) {
	w := httptest.NewRecorder()
	NewStatsHandler(nil).Get(w, httptest.NewRequest("GET", "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
