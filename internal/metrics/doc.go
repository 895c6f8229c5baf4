// Package metrics provides Prometheus instrumentation for the thumbnailer.
//
// All metrics are prefixed with "focus_thumbnailer_".
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Intake Metrics
//   - JobAdmissionsTotal: enqueue requests by result (queued/already_queued/rejected)
//   - JobsPending, JobsProcessing, QueueSize: refreshed by the Collector
//
// ## Worker Metrics
//   - JobsTotal: executed jobs by outcome
//   - JobDuration: time spent on one job
//   - WorkerBusy, WorkerRunning
//
// ## Pipeline and Detector Metrics
//   - ThumbnailPhaseDuration: decode, detect, crop_resize, encode
//   - ThumbnailFocusSource: face versus fallback focus
//   - DetectorCallsTotal, DetectorDuration, DetectorLoadsTotal
//
// ## Filesystem and Memory Metrics
//   - FilesystemRetry*: stale NFS handle retries
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//
// Metrics are served by promhttp on METRICS_PORT.
package metrics
