package detect

import (
	"context"
	"fmt"
	"image"
	"os"

	"focus-thumbnailer/internal/focus"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
)

// PigoConfig configures the in-process cascade face detector
type PigoConfig struct {
	CascadePath  string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	MinQuality   float32
}

// DefaultPigoConfig returns the detector parameters recommended by pigo
func DefaultPigoConfig() PigoConfig {
	return PigoConfig{
		CascadePath:  "models/facefinder",
		MinSize:      20,
		MaxSize:      0, // 0 = shorter image side
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// PigoDetector runs a pixel intensity comparison cascade in-process
type PigoDetector struct {
	name       string
	config     PigoConfig
	classifier *pigo.Pigo
}

// NewPigoDetector reads and unpacks the cascade file
func NewPigoDetector(name string, config PigoConfig) (*PigoDetector, error) {
	data, err := os.ReadFile(config.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade %s: %w", config.CascadePath, err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade %s: %w", config.CascadePath, err)
	}

	return &PigoDetector{
		name:       name,
		config:     config,
		classifier: classifier,
	}, nil
}

// Name returns the detector name
func (d *PigoDetector) Name() string {
	return d.name
}

// DetectBestFace returns the square around the highest scoring detection
func (d *PigoDetector) DetectBestFace(ctx context.Context, img image.Image) (focus.BoundingBox, bool, error) {
	if err := ctx.Err(); err != nil {
		return focus.BoundingBox{}, false, err
	}
	if img == nil || img.Bounds().Empty() {
		return focus.BoundingBox{}, false, nil
	}

	// pigo indexes pixels from (0,0)
	if img.Bounds().Min != (image.Point{}) {
		img = imaging.Clone(img)
	}

	cols, rows := img.Bounds().Dx(), img.Bounds().Dy()
	maxSize := d.config.MaxSize
	if maxSize <= 0 || maxSize > min(cols, rows) {
		maxSize = min(cols, rows)
	}
	if maxSize < d.config.MinSize {
		return focus.BoundingBox{}, false, nil
	}

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoUThreshold)

	best := -1
	for i, det := range dets {
		if det.Q < d.config.MinQuality {
			continue
		}
		if best < 0 || det.Q > dets[best].Q {
			best = i
		}
	}
	if best < 0 {
		return focus.BoundingBox{}, false, nil
	}

	det := dets[best]
	half := det.Scale / 2
	return focus.BoundingBox{
		X1: det.Col - half,
		Y1: det.Row - half,
		X2: det.Col + half,
		Y2: det.Row + half,
	}, true, nil
}
