// Package focus holds the crop geometry of the thumbnailer: bounding boxes,
// focus points and the calculation of an aspect-correct crop rectangle
// centered on a focus point.
package focus
