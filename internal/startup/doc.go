// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// All configuration comes from environment variables via [LoadConfig]:
//
//   - HOST, PORT: intake API bind address (default: 127.0.0.1:5001)
//   - METRICS_PORT, METRICS_ENABLED: Prometheus listener (default: 9090, true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: access-log probe requests (default: true)
//   - DETECTORS_CONFIG: YAML file describing the detector chain
//   - DETECTORS: comma separated chain used without a YAML file (default: pigo)
//   - PIGO_CASCADE, SIDECAR_COMMAND, DETECTOR_URL, DETECTOR_TIMEOUT: detector settings
//   - FACE_OFFSET_Y: vertical focus offset applied on a face hit (default: 0.1)
//   - JPEG_QUALITY: JPEG and WebP quality, 1-100 (default: 90)
//   - MAX_IMAGE_DIMENSION, MAX_IMAGE_PIXELS: decode constraints
//   - VIPS_ENABLED: initialize libvips (default: true)
//   - ENQUEUE_TOKEN_HASH: bcrypt hash guarding /enqueue
//
// Memory variables (MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT) are read by the
// memory package and reported through [LogMemoryConfig].
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed by
// [GetBuildInfo] on /version.
package startup
