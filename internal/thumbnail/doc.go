// Package thumbnail produces a face-focused thumbnail for a single job.
//
// The source is decoded, the detector chain picks a focus point (the centre
// of the best face, nudged downward, or a fixed point 30% from the top when
// no face is found), a crop box with the target aspect ratio is placed
// around that point, and the crop is resized to the exact target size and
// written to the destination.
package thumbnail
