package handlers

import (
	"encoding/json"
	"net/http"

	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/media"
	"focus-thumbnailer/internal/metrics"
)

const (
	errMissingParameters = "Missing parameters"
	errInvalidParameters = "Invalid parameters"
	errSourceNotFound    = "Source image not found"

	// maxEnqueueBody bounds the request body; a job is a handful of short strings
	maxEnqueueBody = 64 << 10
)

// EnqueueRequest is the body of POST /enqueue
type EnqueueRequest struct {
	JobID  string `json:"job_id"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// EnqueueResponse is returned by POST /enqueue
type EnqueueResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Src    string `json:"src,omitempty"`
}

// validate returns the client error message for an invalid request, or ""
func (r EnqueueRequest) validate(limits media.Limits) string {
	if r.JobID == "" || r.Src == "" || r.Dst == "" || r.Width == 0 || r.Height == 0 {
		return errMissingParameters
	}
	if r.Width < 0 || r.Height < 0 || !limits.Fits(r.Width, r.Height) {
		return errInvalidParameters
	}
	return ""
}

// Enqueue validates a job, checks its source exists and queues it.
// Resubmitting an id that is still pending or processing is not an error.
func (h *Handlers) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest

	// A malformed body is treated like an empty one
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEnqueueBody)).Decode(&req); err != nil {
		logging.Debug("Invalid enqueue body: %v", err)
		req = EnqueueRequest{}
	}

	if msg := req.validate(h.limits); msg != "" {
		metrics.JobAdmissionsTotal.WithLabelValues("rejected").Inc()
		writeEnqueue(w, http.StatusBadRequest, EnqueueResponse{Error: msg})
		return
	}

	exists, err := filesystem.IsRegularFile(req.Src, h.retry)
	if err != nil {
		logging.Warn("Failed to check source %s: %v", req.Src, err)
	}
	if !exists {
		metrics.JobAdmissionsTotal.WithLabelValues("rejected").Inc()
		writeEnqueue(w, http.StatusNotFound, EnqueueResponse{Error: errSourceNotFound, Src: req.Src})
		return
	}

	job := jobs.Job{
		ID:     req.JobID,
		Src:    req.Src,
		Dst:    req.Dst,
		Width:  req.Width,
		Height: req.Height,
	}

	admission := h.submitter.Submit(job)
	if admission == jobs.Admitted {
		logging.Info("job %s: queued %s -> %s (%dx%d)", job.ID, job.Src, job.Dst, job.Width, job.Height)
	} else {
		logging.Debug("job %s: already queued", job.ID)
	}

	writeEnqueue(w, http.StatusOK, EnqueueResponse{OK: true, Status: admission.String()})
}

func writeEnqueue(w http.ResponseWriter, status int, resp EnqueueResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, resp)
}
