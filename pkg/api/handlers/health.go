package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
)

// ReadyFunc reports whether the file server accepts connections.
type ReadyFunc func() error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	storageRoot string
	ready       ReadyFunc
}

// NewHealthHandler creates a health handler. ready may be nil, in which
// case only the storage root is checked.
func NewHealthHandler(storageRoot string, ready ReadyFunc) *HealthHandler {
	return &HealthHandler{storageRoot: storageRoot, ready: ready}
}

// Liveness handles GET /health. It succeeds as long as the process answers.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "dittodrop",
	}))
}

// Readiness handles GET /health/ready.
//
// Returns 200 OK when the storage root is a reachable directory and the
// file server is listening, 503 Service Unavailable otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.checkStorage(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}
	if h.ready != nil {
		if err := h.ready(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
			return
		}
	}
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"storage_root": h.storageRoot,
	}))
}

func (h *HealthHandler) checkStorage() error {
	if h.storageRoot == "" {
		return errors.New("storage not configured")
	}
	info, err := os.Stat(h.storageRoot)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", h.storageRoot)
	}
	return nil
}
