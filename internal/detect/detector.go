package detect

import (
	"context"
	"errors"
	"image"
	"time"

	"focus-thumbnailer/internal/focus"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/metrics"
)

// ErrUnknownDetector is returned when a chain configuration names a detector
// type that does not exist.
var ErrUnknownDetector = errors.New("unknown detector type")

// Detector finds the most prominent face in an image.
//
// DetectBestFace returns found=false when there is no confident detection.
// A non-nil error means the detector itself failed.
type Detector interface {
	Name() string
	DetectBestFace(ctx context.Context, img image.Image) (box focus.BoundingBox, found bool, err error)
}

// Result is a positive detection together with the detector that produced it
type Result struct {
	Box      focus.BoundingBox
	Detector string
}

// Pipeline tries detectors strictly in priority order and returns the first
// positive result. Results are never merged and detectors never run in parallel.
type Pipeline struct {
	detectors []Detector
}

// NewPipeline creates a pipeline. The first detector has the highest priority.
func NewPipeline(detectors ...Detector) *Pipeline {
	return &Pipeline{detectors: detectors}
}

// Names returns the detector names in priority order
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.detectors))
	for _, d := range p.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Detect returns the first detection, clipped to the image bounds. Boxes that
// are empty after clipping count as no detection and the next detector is
// tried. A detector error stops the chain and is returned to the caller.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) (Result, bool, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, false, nil
	}

	bounds := img.Bounds()

	for _, d := range p.detectors {
		name := d.Name()
		start := time.Now()
		box, found, err := d.DetectBestFace(ctx, img)
		metrics.DetectorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			metrics.DetectorCallsTotal.WithLabelValues(name, "error").Inc()
			return Result{}, false, &Error{Detector: name, Err: err}
		}

		if found {
			box = box.Clip(bounds.Dx(), bounds.Dy())
			if !box.Empty() {
				metrics.DetectorCallsTotal.WithLabelValues(name, "hit").Inc()
				logging.Debug("Detector %s found face at %v", name, box)
				return Result{Box: box, Detector: name}, true, nil
			}
			logging.Debug("Detector %s returned a box outside the image, ignoring", name)
		}

		metrics.DetectorCallsTotal.WithLabelValues(name, "miss").Inc()
	}

	return Result{}, false, nil
}

// Warm loads every lazily loaded detector now. Failures are joined into the
// returned error; those detectors try again on later calls.
func (p *Pipeline) Warm() error {
	var errs []error
	for _, d := range p.detectors {
		if w, ok := d.(interface{ Warm() error }); ok {
			if err := w.Warm(); err != nil {
				errs = append(errs, &Error{Detector: d.Name(), Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases every detector that holds resources
func (p *Pipeline) Close() {
	for _, d := range p.detectors {
		if c, ok := d.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				logging.Warn("Failed to close detector %s: %v", d.Name(), err)
			}
		}
	}
}

// Error wraps a failure raised inside a detector
type Error struct {
	Detector string
	Err      error
}

func (e *Error) Error() string {
	return "detector " + e.Detector + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
