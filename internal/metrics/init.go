package metrics

// Job outcomes recorded in JobsTotal
const (
	OutcomeCompleted     = "completed"
	OutcomeSourceMissing = "source_missing"
	OutcomeDecodeFailed  = "decode_failed"
	OutcomeDetectFailed  = "detect_failed"
	OutcomeWriteFailed   = "write_failed"
	OutcomePanic         = "panic"
	OutcomeFailed        = "failed"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(detectors []string) {
	for _, r := range []string{"queued", "already_queued", "rejected"} {
		JobAdmissionsTotal.WithLabelValues(r)
	}

	for _, o := range []string{OutcomeCompleted, OutcomeSourceMissing, OutcomeDecodeFailed,
		OutcomeDetectFailed, OutcomeWriteFailed, OutcomePanic, OutcomeFailed} {
		JobsTotal.WithLabelValues(o)
	}

	for _, p := range []string{"decode", "detect", "crop_resize", "encode"} {
		ThumbnailPhaseDuration.WithLabelValues(p)
	}

	for _, s := range []string{"face", "fallback"} {
		ThumbnailFocusSource.WithLabelValues(s)
	}

	for _, d := range detectors {
		for _, r := range []string{"hit", "miss", "error"} {
			DetectorCallsTotal.WithLabelValues(d, r)
		}
		DetectorDuration.WithLabelValues(d)
		DetectorLoadsTotal.WithLabelValues(d, "success")
		DetectorLoadsTotal.WithLabelValues(d, "error")
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
