package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sync"

	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/workers"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// ErrVipsUnavailable is returned when an operation needs libvips but it has
// not been initialized (VIPS_ENABLED=false or shut down).
var ErrVipsUnavailable = errors.New("libvips not available")

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogSettings maps our log level to a vips level and a handler that
// forwards vips messages into our logger
func vipsLogSettings(level logging.LogLevel) (func(string, vips.LogLevel, string), vips.LogLevel) {
	switch level {
	case logging.LevelDebug:
		return func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}, vips.LogLevelInfo
	case logging.LevelWarn:
		return func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}, vips.LogLevelError
	case logging.LevelError:
		return func(domain string, l vips.LogLevel, msg string) {
			if l >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}, vips.LogLevelCritical
	default:
		return func(domain string, l vips.LogLevel, msg string) {
			switch l {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}, vips.LogLevelWarning
	}
}

// InitVips initializes libvips. Safe to call more than once.
// Logging is configured before Startup so LOG_LEVEL is respected.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	handler, level := vipsLogSettings(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	concurrency := workers.ForVips()
	vips.Startup(&vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s, threads: %d)", vips.Version, concurrency)
	return nil
}

// ShutdownVips cleans up libvips resources. libvips cannot be restarted in
// the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// loadWithVips decodes formats the Go decoders lack (HEIC, AVIF, JPEG XL)
func loadWithVips(path string) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, ErrVipsUnavailable
	}

	logging.Debug("Loading %s with vips", filepath.Base(path))

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		logging.Debug("vips auto-rotate failed for %s: %v", filepath.Base(path), err)
	}

	// PNG keeps the pixels lossless on the way back to image.Image
	buf, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}

func encodeWebP(w io.Writer, img image.Image, quality int) error {
	if !IsVipsAvailable() {
		return fmt.Errorf("webp output: %w", ErrVipsUnavailable)
	}

	var src bytes.Buffer
	if err := imaging.Encode(&src, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to prepare image for vips: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(src.Bytes())
	if err != nil {
		return fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	params := vips.NewWebpExportParams()
	params.Quality = quality
	params.StripMetadata = true

	out, _, err := ref.ExportWebp(params)
	if err != nil {
		return fmt.Errorf("vips webp export failed: %w", err)
	}

	_, err = w.Write(out)
	return err
}
