// Package workers sizes the thread pools the thumbnailer hands to native
// libraries.
//
// Job execution itself is strictly serial (one worker goroutine), but libvips
// runs its own thread pool inside a single operation. In a container that
// pool must follow the CPU limit, not the host CPU count, which
// runtime.NumCPU would report. GOMAXPROCS already reflects the cgroup CPU
// quota, so every count here is derived from it:
//
//	concurrency := workers.ForVips()
//
// Set VIPS_CONCURRENCY to override the computed value.
package workers
