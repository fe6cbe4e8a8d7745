package handlers

import (
	"net/http"

	"github.com/marmos91/dittodrop/pkg/metrics"
)

// StatsSource provides the connection and transfer counters.
type StatsSource interface {
	Snapshot() metrics.Snapshot
}

// StatsHandler serves the performance counters as JSON.
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("tracker not initialized"))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(h.source.Snapshot()))
}
