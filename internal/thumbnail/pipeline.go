package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"focus-thumbnailer/internal/detect"
	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/focus"
	"focus-thumbnailer/internal/jobs"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/media"
	"focus-thumbnailer/internal/metrics"
)

// DefaultFaceOffsetY pushes the crop down by a tenth of its height when a
// face was found, so the framing includes some of the body below it.
const DefaultFaceOffsetY = 0.1

var (
	// ErrSourceNotFound is returned when the source disappeared after admission
	ErrSourceNotFound = errors.New("source image not found")

	// ErrDecode is returned when the source cannot be decoded
	ErrDecode = errors.New("failed to decode source image")

	// ErrInvalidSize is returned for non-positive target dimensions and for
	// targets larger than the configured limits
	ErrInvalidSize = errors.New("invalid target size")
)

// Error is a failed job together with its metrics outcome
type Error struct {
	outcome string
	Err     error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Outcome implements jobs.Outcome
func (e *Error) Outcome() string {
	return e.outcome
}

func fail(outcome string, err error) error {
	return &Error{outcome: outcome, Err: err}
}

// FaceDetector finds the focal face. *detect.Pipeline implements it.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) (detect.Result, bool, error)
}

// Options configures the pipeline
type Options struct {
	// FaceOffsetY is the vertical offset, as a fraction of the crop height,
	// applied when a face was detected
	FaceOffsetY float64

	// Quality is the JPEG and WebP output quality
	Quality int

	// Limits bounds decoded image size
	Limits media.Limits

	// Retry configures stale NFS handle retries for the source
	Retry filesystem.RetryConfig
}

// DefaultOptions returns the default pipeline options
func DefaultOptions() Options {
	return Options{
		FaceOffsetY: DefaultFaceOffsetY,
		Quality:     media.DefaultQuality,
		Limits:      media.DefaultLimits(),
		Retry:       filesystem.DefaultRetryConfig(),
	}
}

// Result describes a written thumbnail
type Result struct {
	ImageWidth  int
	ImageHeight int

	// Detector is the detector that found FaceBox; empty on fallback
	Detector string
	FaceBox  focus.BoundingBox

	Focus  focus.Point
	Offset focus.Offset
	Crop   focus.BoundingBox
}

// FaceFound reports whether the crop was centred on a detected face
func (r *Result) FaceFound() bool {
	return r.Detector != ""
}

// Pipeline turns a job into a thumbnail: load, detect, crop, resize, write
type Pipeline struct {
	detector FaceDetector
	options  Options
}

// NewPipeline creates a pipeline. detector may be nil, in which case every
// crop uses the fallback focus.
func NewPipeline(detector FaceDetector, options Options) *Pipeline {
	return &Pipeline{detector: detector, options: options}
}

// Process implements jobs.Processor
func (p *Pipeline) Process(ctx context.Context, job jobs.Job) error {
	res, err := p.Generate(ctx, job)
	if err != nil {
		return err
	}

	if res.FaceFound() {
		logging.Debug("job %s: face %v by %s, crop %v", job.ID, res.FaceBox, res.Detector, res.Crop)
	} else {
		logging.Debug("job %s: no face, fallback focus %v, crop %v", job.ID, res.Focus, res.Crop)
	}
	return nil
}

// Generate runs the pipeline for job and writes job.Dst. The source is
// checked once more here since it may have been removed after admission.
func (p *Pipeline) Generate(ctx context.Context, job jobs.Job) (*Result, error) {
	if job.Width <= 0 || job.Height <= 0 {
		return nil, fail(metrics.OutcomeFailed, fmt.Errorf("%w: %dx%d", ErrInvalidSize, job.Width, job.Height))
	}
	// An oversized target would be allocated in full by the resize
	if !p.options.Limits.Fits(job.Width, job.Height) {
		return nil, fail(metrics.OutcomeFailed, fmt.Errorf("%w: %dx%d exceeds %dx%d / %d pixels",
			ErrInvalidSize, job.Width, job.Height, p.options.Limits.MaxDimension, p.options.Limits.MaxDimension, p.options.Limits.MaxPixels))
	}

	exists, err := filesystem.IsRegularFile(job.Src, p.options.Retry)
	if err != nil {
		return nil, fail(metrics.OutcomeFailed, err)
	}
	if !exists {
		return nil, fail(metrics.OutcomeSourceMissing, fmt.Errorf("%w: %s", ErrSourceNotFound, job.Src))
	}

	if err := os.MkdirAll(filepath.Dir(job.Dst), 0755); err != nil {
		return nil, fail(metrics.OutcomeWriteFailed, fmt.Errorf("failed to create destination directory: %w", err))
	}

	start := time.Now()
	img, err := media.Load(job.Src, p.options.Limits, p.options.Retry)
	observePhase("decode", start)
	if err != nil {
		return nil, fail(metrics.OutcomeDecodeFailed, fmt.Errorf("%w: %w", ErrDecode, err))
	}

	bounds := img.Bounds()
	res := &Result{
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
	}

	start = time.Now()
	err = p.chooseFocus(ctx, img, res)
	observePhase("detect", start)
	if err != nil {
		return nil, fail(metrics.OutcomeDetectFailed, err)
	}

	res.Crop = focus.CropBox(res.ImageWidth, res.ImageHeight, job.Width, job.Height, res.Focus, res.Offset)

	start = time.Now()
	thumb := media.CropAndResize(img, res.Crop, job.Width, job.Height)
	observePhase("crop_resize", start)

	start = time.Now()
	err = media.Save(thumb, job.Dst, p.options.Quality)
	observePhase("encode", start)
	if err != nil {
		return nil, fail(metrics.OutcomeWriteFailed, fmt.Errorf("failed to write %s: %w", job.Dst, err))
	}

	return res, nil
}

// chooseFocus centres on the detected face, biased downward, or falls back
// to the default point with no offset
func (p *Pipeline) chooseFocus(ctx context.Context, img image.Image, res *Result) error {
	if p.detector != nil {
		det, found, err := p.detector.Detect(ctx, img)
		if err != nil {
			return err
		}
		if found {
			res.Detector = det.Detector
			res.FaceBox = det.Box
			res.Focus = det.Box.Center()
			res.Offset = focus.Offset{Y: p.options.FaceOffsetY}
			metrics.ThumbnailFocusSource.WithLabelValues("face").Inc()
			return nil
		}
	}

	res.Focus = focus.DefaultPoint(res.ImageWidth, res.ImageHeight)
	res.Offset = focus.Offset{}
	metrics.ThumbnailFocusSource.WithLabelValues("fallback").Inc()
	return nil
}

func observePhase(phase string, start time.Time) {
	metrics.ThumbnailPhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
