// Package memory controls the Go runtime memory limit and applies
// backpressure to the thumbnail worker when the heap runs hot.
//
// # Configuration
//
// Call [ConfigureFromEnv] first thing in main, before large allocations:
//
//   - GOMEMLIMIT: standard Go variable. If set, it wins and nothing else is read.
//   - MEMORY_LIMIT: container memory limit in bytes, usually injected with the
//     Kubernetes Downward API (resourceFieldRef limits.memory).
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, in (0, 1].
//     Defaults to 0.80. libvips buffers and detector sidecar processes live
//     outside the Go heap, so leave headroom when either is enabled.
//
// # Backpressure
//
// A [Monitor] samples heap usage against the limit. Above the critical
// watermark it pauses; it resumes once usage falls below the high watermark.
// The worker calls [Monitor.WaitIfPaused] before taking each job, so a job is
// never started while decoding another full size image could push the
// process into an OOM kill.
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	if !monitor.WaitIfPaused(ctx) {
//	    return // shutting down
//	}
package memory
