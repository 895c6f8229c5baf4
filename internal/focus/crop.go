package focus

import "math"

// CropBox computes the largest rectangle with the target aspect ratio that fits
// inside an imageW x imageH image, centered as closely as possible on the
// focus point.
//
// The offset is applied to the focus point as a fraction of the box size before
// centering. When the centered box would leave the image it is translated back
// inside, never resized, so the aspect ratio is preserved up to one pixel of
// rounding.
//
// A non-positive image dimension yields the degenerate box (0, 0, imageW, imageH).
// A non-positive target height falls back to the image's own ratio.
func CropBox(imageW, imageH, targetW, targetH int, p Point, off Offset) BoundingBox {
	if imageW <= 0 || imageH <= 0 {
		return BoundingBox{X1: 0, Y1: 0, X2: imageW, Y2: imageH}
	}

	imageRatio := float64(imageW) / float64(imageH)
	targetRatio := imageRatio
	if targetH > 0 {
		targetRatio = float64(targetW) / float64(targetH)
	}

	var boxW, boxH int
	if imageRatio >= targetRatio {
		// Relatively wider than the target: keep the full height.
		boxH = imageH
		boxW = int(math.Round(float64(boxH) * targetRatio))
	} else {
		boxW = imageW
		boxH = int(math.Round(float64(boxW) / targetRatio))
	}

	boxW = clamp(boxW, 1, imageW)
	boxH = clamp(boxH, 1, imageH)

	fx, fy := p.X, p.Y
	if !isFinite(fx) {
		fx = float64(imageW) / 2
	}
	if !isFinite(fy) {
		fy = float64(imageH) / 2
	}
	fx += off.X * float64(boxW)
	fy += off.Y * float64(boxH)

	x1 := roundToInt(fx - float64(boxW)/2)
	y1 := roundToInt(fy - float64(boxH)/2)
	x2 := x1 + boxW
	y2 := y1 + boxH

	if x1 < 0 {
		x2 -= x1
		x1 = 0
	}
	if y1 < 0 {
		y2 -= y1
		y1 = 0
	}
	if x2 > imageW {
		x1 -= x2 - imageW
		x2 = imageW
	}
	if y2 > imageH {
		y1 -= y2 - imageH
		y2 = imageH
	}

	x1 = clamp(x1, 0, imageW-1)
	y1 = clamp(y1, 0, imageH-1)
	x2 = clamp(x2, x1+1, imageW)
	y2 = clamp(y2, y1+1, imageH)

	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// roundToInt rounds half away from zero and saturates instead of overflowing,
// so a focus point far outside the image still ends up clamped.
func roundToInt(f float64) int {
	r := math.Round(f)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}
