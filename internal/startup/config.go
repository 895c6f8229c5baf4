package startup

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"focus-thumbnailer/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration
type Config struct {
	Host            string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogHealthChecks bool

	// Detector chain. DetectorsConfig, when set, wins over Detectors.
	DetectorsConfig string
	Detectors       string
	PigoCascade     string
	SidecarCommand  string
	DetectorURL     string
	DetectorTimeout time.Duration

	// PreloadDetectors loads the chain at startup instead of on the first job
	PreloadDetectors bool

	FaceOffsetY       float64
	Quality           int
	MaxImageDimension int
	MaxImagePixels    int
	VipsEnabled       bool

	EnqueueTokenHash string
}

// ListenAddr is the intake API address
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// MetricsAddr is the Prometheus listener address
func (c *Config) MetricsAddr() string {
	return net.JoinHostPort(c.Host, c.MetricsPort)
}

// env reads configuration values, logging invalid ones as it goes
type env struct {
	getenv func(string) string
}

func (e env) str(key, defaultValue string) string {
	if value := e.getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e env) boolean(key string, defaultValue bool) bool {
	value := e.getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (e env) integer(key string, defaultValue int) int {
	value := e.getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (e env) float(key string, defaultValue float64) float64 {
	value := e.getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func (e env) duration(key string, defaultValue time.Duration) time.Duration {
	value := e.getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	logging.Section("CONFIGURATION")

	config := &Config{
		Host:              e.str("HOST", "127.0.0.1"),
		Port:              e.str("PORT", "5001"),
		MetricsPort:       e.str("METRICS_PORT", "9090"),
		MetricsEnabled:    e.boolean("METRICS_ENABLED", true),
		LogHealthChecks:   e.boolean("LOG_HEALTH_CHECKS", true),
		DetectorsConfig:   e.str("DETECTORS_CONFIG", ""),
		Detectors:         e.str("DETECTORS", "pigo"),
		PigoCascade:       e.str("PIGO_CASCADE", "models/facefinder"),
		SidecarCommand:    e.str("SIDECAR_COMMAND", ""),
		DetectorURL:       e.str("DETECTOR_URL", ""),
		DetectorTimeout:   e.duration("DETECTOR_TIMEOUT", 30*time.Second),
		PreloadDetectors:  e.boolean("PRELOAD_DETECTORS", false),
		FaceOffsetY:       e.float("FACE_OFFSET_Y", 0.1),
		Quality:           e.integer("JPEG_QUALITY", 90),
		MaxImageDimension: e.integer("MAX_IMAGE_DIMENSION", 4096),
		MaxImagePixels:    e.integer("MAX_IMAGE_PIXELS", 20_000_000),
		VipsEnabled:       e.boolean("VIPS_ENABLED", true),
		EnqueueTokenHash:  strings.TrimSpace(e.str("ENQUEUE_TOKEN_HASH", "")),
	}

	logging.Info("  HOST:                %s", config.Host)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if config.DetectorsConfig != "" {
		logging.Info("  DETECTORS_CONFIG:    %s", config.DetectorsConfig)
	} else {
		logging.Info("  DETECTORS:           %s", config.Detectors)
	}
	logging.Info("  PIGO_CASCADE:        %s", config.PigoCascade)
	logging.Info("  SIDECAR_COMMAND:     %s", orNotSet(config.SidecarCommand))
	logging.Info("  DETECTOR_URL:        %s", orNotSet(config.DetectorURL))
	logging.Info("  DETECTOR_TIMEOUT:    %v", config.DetectorTimeout)
	logging.Info("  PRELOAD_DETECTORS:   %v", config.PreloadDetectors)
	logging.Info("  FACE_OFFSET_Y:       %v", config.FaceOffsetY)
	logging.Info("  JPEG_QUALITY:        %d", config.Quality)
	logging.Info("  MAX_IMAGE_DIMENSION: %d", config.MaxImageDimension)
	logging.Info("  MAX_IMAGE_PIXELS:    %d", config.MaxImagePixels)
	logging.Info("  VIPS_ENABLED:        %v", config.VipsEnabled)
	logging.Info("  ENQUEUE_TOKEN_HASH:  %s", redacted(config.EnqueueTokenHash))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	for key, port := range map[string]string{"PORT": c.Port, "METRICS_PORT": c.MetricsPort} {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("invalid %s %q", key, port)
		}
	}

	if c.MetricsEnabled && c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT must differ from PORT (%s)", c.Port)
	}

	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be between 1 and 100, got %d", c.Quality)
	}

	if c.MaxImageDimension < 1 || c.MaxImagePixels < 1 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION and MAX_IMAGE_PIXELS must be positive")
	}

	if c.EnqueueTokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.EnqueueTokenHash)); err != nil {
			return fmt.Errorf("ENQUEUE_TOKEN_HASH is not a bcrypt hash: %w", err)
		}
	}

	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func redacted(s string) string {
	if s == "" {
		return "(not set, /enqueue is unauthenticated)"
	}
	return "(set)"
}
