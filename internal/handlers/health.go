package handlers

import (
	"net/http"

	"focus-thumbnailer/internal/jobs"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	OK bool `json:"ok"`
	jobs.Stats
}

// HealthCheck reports the queue state
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.submitter.Stats()
	if stats.ProcessingJobs == nil {
		stats.ProcessingJobs = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, HealthResponse{OK: true, Stats: stats})
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only once the worker loop is running
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.worker != nil && h.worker.IsRunning() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
