// Package media decodes, crops, resizes and encodes images.
//
// Decoding uses the imaging library with EXIF auto-orientation and the
// golang.org/x/image WebP decoder, falling back to libvips for formats Go
// cannot read. Oversized images are downscaled right after decoding.
// Output format follows the destination extension; WebP output requires
// libvips.
package media
