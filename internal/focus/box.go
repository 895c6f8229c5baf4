package focus

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned rectangle (X1, Y1)-(X2, Y2) in source image
// pixel space. X2 and Y2 are exclusive.
type BoundingBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the box
func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Center returns the centroid of the box
func (b BoundingBox) Center() Point {
	return Point{
		X: float64(b.X1+b.X2) / 2.0,
		Y: float64(b.Y1+b.Y2) / 2.0,
	}
}

// Clip returns the part of the box that lies inside a width x height image.
// The result may be empty.
func (b BoundingBox) Clip(width, height int) BoundingBox {
	return BoundingBox{
		X1: clamp(b.X1, 0, width),
		Y1: clamp(b.Y1, 0, height),
		X2: clamp(b.X2, 0, width),
		Y2: clamp(b.Y2, 0, height),
	}
}

// Rect converts the box to an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Point is a position in source image space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y)
}

// DefaultPoint is the focus used when no face was detected: horizontally
// centered, 30% from the top, where portrait subjects usually are.
func DefaultPoint(width, height int) Point {
	return Point{
		X: float64(width) * 0.5,
		Y: float64(height) * 0.3,
	}
}

// Offset shifts a focus point by a fraction of the crop box dimensions.
// Offset{Y: 0.1} moves the crop down by a tenth of its own height.
type Offset struct {
	X float64
	Y float64
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
