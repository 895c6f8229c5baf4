package startup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/memory"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Section("MEMORY")

	switch result.Source {
	case memory.SourceGoMemLimit:
		logging.Info("  GOMEMLIMIT:      %d bytes (from environment)", result.GoMemLimit)
	case memory.SourceMemoryLimit:
		logging.Info("  Container limit: %d bytes", result.ContainerLimit)
		logging.Info("  GOMEMLIMIT:      %d bytes (%.0f%%)", result.GoMemLimit, result.Ratio*100)
	default:
		logging.Info("  No memory limit configured (set MEMORY_LIMIT or GOMEMLIMIT)")
		logging.Info("  Worker backpressure disabled")
	}
}

// LogVipsInit logs the libvips initialization result
func LogVipsInit(enabled bool, err error) {
	logging.Section("IMAGE BACKEND")

	switch {
	case !enabled:
		logging.Info("  libvips disabled (VIPS_ENABLED=false)")
		logging.Info("  WebP output unavailable, HEIC/AVIF sources will fail to decode")
	case err != nil:
		logging.Warn("  libvips initialization failed: %v", err)
		logging.Warn("  Falling back to pure Go codecs")
	default:
		logging.Info("  [OK] libvips available (WebP output, HEIC/AVIF decode)")
	}
}

// LogDetectorInit logs the configured detector chain in priority order
func LogDetectorInit(names []string, source string) {
	logging.Section("FACE DETECTION")
	logging.Info("  Chain source: %s", source)
	if len(names) == 0 {
		logging.Info("  No detectors configured, every job uses the center of the image")
		return
	}
	for i, name := range names {
		logging.Info("  %d. %s (loaded on first use)", i+1, name)
	}
}

// LogWorkerStarted logs that the job worker is consuming the queue
func LogWorkerStarted() {
	logging.Section("WORKER")
	logging.Info("  [OK] Thumbnail worker started (1 job at a time)")
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes
func LogHTTPRoutes(router *mux.Router, logHealthChecks, authEnabled bool) {
	logging.Section("HTTP SERVER SETUP")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	logging.Info("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Info("    %-6s %s", route.Method, route.Path)
	}
	logging.Info("")

	if authEnabled {
		logging.Info("  /enqueue authentication: bearer token")
	} else {
		logging.Warn("  /enqueue authentication: NONE (set ENQUEUE_TOKEN_HASH to enable)")
	}
	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	ListenAddr      string
	MetricsAddr     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Intake:        http://%s/enqueue", config.ListenAddr)
	logging.Info("    Health:        http://%s/health", config.ListenAddr)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://%s/metrics", config.MetricsAddr)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Section(fmt.Sprintf("SHUTDOWN INITIATED (received %s)", signal))
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   __                         _   _                     _
  / _| ___   ___ _   _ ___   | |_| |__  _   _ _ __ ___ | |__
 | |_ / _ \ / __| | | / __|  | __| '_ \| | | | '_ ' _ \| '_ \
 |  _| (_) | (__| |_| \__ \  | |_| | | | |_| | | | | | | |_) |
 |_|  \___/ \___|\__,_|___/   \__|_| |_|\__,_|_| |_| |_|_.__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
		logging.Debug("  Args:            %s", strings.Join(os.Args, " "))
	}
}
