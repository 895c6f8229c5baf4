package media

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/mediatypes"

	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG and WebP quality used when none is configured
const DefaultQuality = 90

// Encode writes img to w in the format implied by the extension of name.
// JPEG, PNG, GIF, TIFF and BMP use the imaging encoders; WebP needs libvips.
func Encode(w io.Writer, img image.Image, name string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	if mediatypes.EncodeNeedsVips(name) {
		return encodeWebP(w, img, quality)
	}

	ext := mediatypes.Ext(name)

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	return imaging.Encode(w, img, format, imaging.JPEGQuality(quality))
}

// Save encodes img to path. The file is written next to its destination and
// renamed into place, so readers never observe a partial thumbnail.
func Save(img image.Image, path string, quality int) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".thumb-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmpName); rmErr != nil && !os.IsNotExist(rmErr) {
				logging.Warn("Failed to remove temp file %s: %v", tmpName, rmErr)
			}
		}
	}()

	if err = Encode(tmp, img, path, quality); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move thumbnail into place: %w", err)
	}

	logging.Debug("Wrote %s (%dx%d)", path, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
