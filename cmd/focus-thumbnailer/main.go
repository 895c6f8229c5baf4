package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focus-thumbnailer/internal/detect"
	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/handlers"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/media"
	"focus-thumbnailer/internal/memory"
	"focus-thumbnailer/internal/metrics"
	"focus-thumbnailer/internal/middleware"
	"focus-thumbnailer/internal/startup"
	"focus-thumbnailer/internal/thumbnail"

	"github.com/gorilla/mux"
)

const (
	shutdownTimeout         = 30 * time.Second
	metricsCollectInterval  = 15 * time.Second
	serverReadHeaderTimeout = 5 * time.Second
	serverReadTimeout       = 15 * time.Second
	serverWriteTimeout      = 15 * time.Second
	serverIdleTimeout       = 60 * time.Second
)

func main() {
	startTime := time.Now()

	memResult := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memResult)
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	var vipsErr error
	if config.VipsEnabled {
		vipsErr = media.InitVips()
	}
	startup.LogVipsInit(config.VipsEnabled, vipsErr)

	chain, source, err := loadDetectorChain(config)
	if err != nil {
		startup.LogFatal("Detector configuration error: %v", err)
	}
	if err := chain.CheckFiles(); err != nil {
		logging.Warn("Detector files unavailable, their loads fail until they exist: %v", err)
	}
	detectors, err := chain.Build()
	if err != nil {
		startup.LogFatal("Detector setup error: %v", err)
	}
	detector := detect.NewPipeline(detectors...)
	startup.LogDetectorInit(detector.Names(), source)
	if config.PreloadDetectors {
		if err := detector.Warm(); err != nil {
			logging.Warn("Detector preload failed, retrying on demand: %v", err)
		}
	}

	metrics.InitializeMetrics(detector.Names())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	dispatcher := jobs.NewDispatcher()

	collector := metrics.NewCollector(dispatcher, metricsCollectInterval)
	collector.Start()

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	options := pipelineOptions(config)
	pipeline := thumbnail.NewPipeline(detector, options)
	worker := jobs.NewWorker(dispatcher, pipeline, monitor)

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()
	startup.LogWorkerStarted()

	h := handlers.New(dispatcher, worker, handlers.Config{
		TokenHash: config.EnqueueTokenHash,
		Retry:     filesystem.DefaultRetryConfig(),
		Limits:    options.Limits,
	})

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks, config.EnqueueTokenHash != "")

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.RequestID(middleware.Logger(loggingConfig)(middleware.Recover(router)))

	srv := newServer(config.ListenAddr(), handler)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsAddr(), h.MetricsHandler())
	}

	serverErr := make(chan error, 2)
	go serve(srv, "HTTP", serverErr)
	if metricsSrv != nil {
		go serve(metricsSrv, "Metrics", serverErr)
	}

	startup.LogServerStarted(startup.ServerConfig{
		ListenAddr:      config.ListenAddr(),
		MetricsAddr:     config.MetricsAddr(),
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	reason := ""
	select {
	case sig := <-sigChan:
		reason = sig.String()
	case err := <-serverErr:
		logging.Error("%v", err)
		reason = "server error"
	}

	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping worker")
	cancelWorker()
	monitor.Stop()
	select {
	case <-workerDone:
		startup.LogShutdownStepComplete("Worker stopped")
	case <-ctx.Done():
		logging.Warn("Worker did not finish job %s before the shutdown deadline", worker.Current())
	}

	if stats := dispatcher.Stats(); stats.Pending > 0 {
		logging.Warn("Dropping %d pending jobs", stats.Pending)
	}

	startup.LogShutdownStep("Closing detectors")
	detector.Close()
	startup.LogShutdownStepComplete("Detectors closed")

	collector.Stop()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if media.IsVipsAvailable() {
		media.ShutdownVips()
		startup.LogShutdownStepComplete("libvips shut down")
	}

	startup.LogShutdownComplete()
}

func serve(srv *http.Server, name string, errs chan<- error) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- fmt.Errorf("%s server error: %w", name, err)
	}
}

// loadDetectorChain returns the configured chain and a description of where
// it came from.
func loadDetectorChain(config *startup.Config) (*detect.ChainConfig, string, error) {
	if config.DetectorsConfig != "" {
		chain, err := detect.LoadChainConfig(config.DetectorsConfig)
		return chain, config.DetectorsConfig, err
	}

	chain, err := detect.ChainConfigFromNames(config.Detectors, detect.Defaults{
		PigoCascade:    config.PigoCascade,
		SidecarCommand: config.SidecarCommand,
		URL:            config.DetectorURL,
		Timeout:        config.DetectorTimeout,
	})
	return chain, "DETECTORS=" + config.Detectors, err
}

func pipelineOptions(config *startup.Config) thumbnail.Options {
	options := thumbnail.DefaultOptions()
	options.FaceOffsetY = config.FaceOffsetY
	options.Quality = config.Quality
	options.Limits = media.Limits{
		MaxDimension: config.MaxImageDimension,
		MaxPixels:    config.MaxImagePixels,
	}
	return options
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.Handle("/enqueue", h.RequireToken(http.HandlerFunc(h.Enqueue))).Methods(http.MethodPost).Name("enqueue")
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	return r
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}
}

func newMetricsServer(addr string, metricsHandler http.Handler) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", metricsHandler)
	return &http.Server{
		Addr:              addr,
		Handler:           serveMux,
		ReadHeaderTimeout: serverReadHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}
}
