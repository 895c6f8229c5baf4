package media

import (
	"errors"
	"fmt"
	"image"
	"math"

	"focus-thumbnailer/internal/filesystem"
	"focus-thumbnailer/internal/focus"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/mediatypes"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// DefaultMaxImageDimension is the maximum width or height we'll process.
	// Larger images are downscaled right after decoding.
	DefaultMaxImageDimension = 4096

	// DefaultMaxImagePixels is the maximum total pixels (width * height)
	// A 50MP image would be ~50,000,000 pixels, which uses ~200MB in RGBA
	DefaultMaxImagePixels = 20_000_000 // ~20MP, uses ~80MB in RGBA
)

// ErrUnsupportedFormat is returned when the destination extension has no encoder
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Limits bounds the size of decoded images
type Limits struct {
	MaxDimension int
	MaxPixels    int
}

// DefaultLimits returns the default decode limits
func DefaultLimits() Limits {
	return Limits{
		MaxDimension: DefaultMaxImageDimension,
		MaxPixels:    DefaultMaxImagePixels,
	}
}

// Fits reports whether an image of width x height is within the limits
// without scaling. Zero limits are ignored.
func (l Limits) Fits(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if l.MaxDimension > 0 && (width > l.MaxDimension || height > l.MaxDimension) {
		return false
	}
	if l.MaxPixels > 0 {
		// checked one side at a time so the product cannot overflow
		if width > l.MaxPixels || height > l.MaxPixels || width > l.MaxPixels/height {
			return false
		}
	}
	return true
}

// ConstrainedSize returns the size an image of width x height is scaled to so
// that it fits the limits, preserving its aspect ratio. The boolean reports
// whether any scaling is needed. Zero limits are ignored.
func ConstrainedSize(width, height int, limits Limits) (int, int, bool) {
	if width <= 0 || height <= 0 {
		return width, height, false
	}

	maxDim := limits.MaxDimension
	maxPixels := limits.MaxPixels

	tooWide := maxDim > 0 && (width > maxDim || height > maxDim)
	tooMany := maxPixels > 0 && width*height > maxPixels
	if !tooWide && !tooMany {
		return width, height, false
	}

	targetWidth, targetHeight := width, height

	// First, constrain by max dimension
	if tooWide {
		if width > height {
			targetWidth = maxDim
			targetHeight = height * maxDim / width
		} else {
			targetHeight = maxDim
			targetWidth = width * maxDim / height
		}
	}

	// Then, constrain by total pixels if still too large
	if maxPixels > 0 && targetWidth*targetHeight > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(targetWidth*targetHeight))
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	return max(targetWidth, 1), max(targetHeight, 1), true
}

// Load decodes the image at path into memory, honouring EXIF orientation.
// Formats the Go decoders cannot read are handed to libvips when it is
// available. Images exceeding limits are downscaled.
func Load(path string, limits Limits, retry filesystem.RetryConfig) (image.Image, error) {
	img, err := decode(path, retry)
	if err != nil {
		return nil, err
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image %s has no pixels", path)
	}

	targetWidth, targetHeight, constrained := ConstrainedSize(width, height, limits)
	if constrained {
		logging.Info("Constraining large image %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)
		img = imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)
	}

	return img, nil
}

// decode picks the backend for path's format. HEIC and AVIF go straight to
// libvips; anything else tries the Go decoders first.
func decode(path string, retry filesystem.RetryConfig) (image.Image, error) {
	if mediatypes.DecodeNeedsVips(path) && IsVipsAvailable() {
		return loadWithVips(path)
	}

	img, err := decodeFile(path, retry)
	if err == nil || !IsVipsAvailable() {
		return img, err
	}

	logging.Debug("Go decoders failed for %s: %v, trying libvips", path, err)

	img, err = loadWithVips(path)
	if err != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", path, err)
	}
	return img, nil
}

func decodeFile(path string, retry filesystem.RetryConfig) (image.Image, error) {
	file, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// CropAndResize slices img to box, given in image coordinates relative to
// the image origin, and scales the result to exactly width x height.
func CropAndResize(img image.Image, box focus.BoundingBox, width, height int) *image.NRGBA {
	rect := box.Rect().Add(img.Bounds().Min)
	cropped := imaging.Crop(img, rect)
	if cropped.Bounds().Dx() == width && cropped.Bounds().Dy() == height {
		return cropped
	}
	return imaging.Resize(cropped, width, height, imaging.Lanczos)
}
