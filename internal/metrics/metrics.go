package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_thumbnailer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Job intake and queue metrics
var (
	JobAdmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_job_admissions_total",
			Help: "Total number of enqueue requests by result (queued, already_queued, rejected)",
		},
		[]string{"result"},
	)

	JobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_jobs_pending",
			Help: "Number of admitted jobs waiting for the worker",
		},
	)

	JobsProcessing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_jobs_processing",
			Help: "Number of jobs currently being processed",
		},
	)

	QueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_queue_size",
			Help: "Number of jobs in the FIFO queue",
		},
	)
)

// Worker metrics
var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_jobs_total",
			Help: "Total number of jobs executed by outcome",
		},
		[]string{"outcome"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "focus_thumbnailer_job_duration_seconds",
			Help:    "Time spent executing a single job",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	WorkerBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_worker_busy",
			Help: "Whether the worker is executing a job (1) or waiting (0)",
		},
	)

	WorkerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_worker_running",
			Help: "Whether the worker loop is running",
		},
	)
)

// Thumbnail pipeline metrics
var (
	ThumbnailPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_thumbnailer_thumbnail_phase_duration_seconds",
			Help:    "Duration of thumbnail pipeline phases (decode, detect, crop_resize, encode)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"},
	)

	ThumbnailFocusSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_thumbnail_focus_source_total",
			Help: "Crops by focus source (face or fallback)",
		},
		[]string{"source"},
	)
)

// Detector metrics
var (
	DetectorCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_detector_calls_total",
			Help: "Detector invocations by detector and result (hit, miss, error)",
		},
		[]string{"detector", "result"},
	)

	DetectorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focus_thumbnailer_detector_duration_seconds",
			Help:    "Detector invocation duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"detector"},
	)

	DetectorLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_detector_loads_total",
			Help: "Detector initializations by detector and status",
		},
		[]string{"detector", "status"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_filesystem_retry_attempts_total",
			Help: "Retry attempts after stale NFS file handles",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen",
		},
		[]string{"operation"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focus_thumbnailer_memory_paused",
			Help: "Whether job processing is paused due to memory pressure",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focus_thumbnailer_memory_gc_pauses_total",
			Help: "Number of times processing was paused for memory pressure",
		},
	)
)

// Application info metric
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "focus_thumbnailer_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
