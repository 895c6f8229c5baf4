package handlers

import (
	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/media"
)

// JobSubmitter admits jobs and reports queue state. *jobs.Dispatcher
// implements it.
type JobSubmitter interface {
	Submit(job jobs.Job) jobs.Admission
	Stats() jobs.Stats
}

// WorkerStatus reports whether the worker loop is running
type WorkerStatus interface {
	IsRunning() bool
}

// Config configures the handlers
type Config struct {
	// TokenHash is a bcrypt hash. When set, /enqueue requires
	// "Authorization: Bearer <token>".
	TokenHash string

	// Retry configures the source existence check
	Retry filesystem.RetryConfig

	// Limits caps the requested thumbnail size. Zero fields are ignored.
	Limits media.Limits
}

type Handlers struct {
	submitter JobSubmitter
	worker    WorkerStatus
	tokenHash []byte
	retry     filesystem.RetryConfig
	limits    media.Limits
}

func New(submitter JobSubmitter, worker WorkerStatus, config Config) *Handlers {
	h := &Handlers{
		submitter: submitter,
		worker:    worker,
		retry:     config.Retry,
		limits:    config.Limits,
	}
	if config.TokenHash != "" {
		h.tokenHash = []byte(config.TokenHash)
	}
	return h
}
