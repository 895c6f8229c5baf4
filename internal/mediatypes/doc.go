// Package mediatypes maps image file extensions to MIME types and to the
// codec backend able to read or write them.
//
// Most formats are handled by pure Go codecs. HEIC, HEIF and AVIF sources
// can only be decoded with libvips, and WebP thumbnails can only be encoded
// with it.
package mediatypes
