// Package main provides the entry point for the focus thumbnailer service.
//
// The service accepts thumbnail jobs over HTTP, queues them in memory and
// renders them one at a time on a single worker goroutine. Each thumbnail is
// cropped around the most prominent face found by a configurable detector
// chain, or around a point just above the image center when no face is found.
//
// # Application Lifecycle
//
//  1. Memory configuration: GOMEMLIMIT from MEMORY_LIMIT / MEMORY_RATIO
//  2. Configuration loading from environment variables
//  3. libvips initialization (optional, for WebP output and HEIC/AVIF input)
//  4. Detector chain construction from DETECTORS_CONFIG or DETECTORS.
//     Detectors are not loaded until the first job needs them, unless
//     PRELOAD_DETECTORS is set. A failed load is retried on a later job.
//  5. Dispatcher, metrics collector, memory monitor and worker start
//  6. HTTP intake on HOST:PORT, Prometheus on HOST:METRICS_PORT
//  7. Graceful shutdown on SIGINT/SIGTERM
//
// # Shutdown
//
// The intake stops accepting requests first. The worker is then cancelled;
// a job already executing runs to completion, jobs still pending are dropped.
// Detector processes are closed and libvips is shut down last.
//
// # HTTP API
//
//	POST /enqueue   submit {job_id, src, dst, width, height}
//	GET  /health    queue counts and the ids being processed
//	GET  /livez     liveness probe
//	GET  /readyz    readiness probe (worker running)
//	GET  /version   build information
package main
