package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// Codec identifies which backend handles a format
type Codec string

const (
	// CodecGo means the pure Go decoders/encoders (imaging, x/image)
	CodecGo Codec = "go"
	// CodecVips means libvips is required
	CodecVips Codec = "vips"
	// CodecNone means the format is not supported in that direction
	CodecNone Codec = ""
)

// Format describes what the thumbnailer can do with one file extension
type Format struct {
	MimeType string
	Decode   Codec
	Encode   Codec
}

// Formats maps lowercase extensions, including the dot, to their Format.
var Formats = map[string]Format{
	".jpg":  {MimeType: "image/jpeg", Decode: CodecGo, Encode: CodecGo},
	".jpeg": {MimeType: "image/jpeg", Decode: CodecGo, Encode: CodecGo},
	".png":  {MimeType: "image/png", Decode: CodecGo, Encode: CodecGo},
	".gif":  {MimeType: "image/gif", Decode: CodecGo, Encode: CodecGo},
	".bmp":  {MimeType: "image/bmp", Decode: CodecGo, Encode: CodecGo},
	".tif":  {MimeType: "image/tiff", Decode: CodecGo, Encode: CodecGo},
	".tiff": {MimeType: "image/tiff", Decode: CodecGo, Encode: CodecGo},
	".webp": {MimeType: "image/webp", Decode: CodecGo, Encode: CodecVips},
	".heic": {MimeType: "image/heic", Decode: CodecVips},
	".heif": {MimeType: "image/heif", Decode: CodecVips},
	".avif": {MimeType: "image/avif", Decode: CodecVips},
}

// Ext returns the lowercase extension of path
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Lookup returns the Format for the extension of path
func Lookup(path string) (Format, bool) {
	f, ok := Formats[Ext(path)]
	return f, ok
}

// IsOutput reports whether thumbnails can be written to path's format
func IsOutput(path string) bool {
	f, ok := Lookup(path)
	return ok && f.Encode != CodecNone
}

// DecodeNeedsVips reports whether only libvips can read path's format
func DecodeNeedsVips(path string) bool {
	f, ok := Lookup(path)
	return ok && f.Decode == CodecVips
}

// EncodeNeedsVips reports whether only libvips can write path's format
func EncodeNeedsVips(path string) bool {
	f, ok := Lookup(path)
	return ok && f.Encode == CodecVips
}

// MimeType returns the MIME type for path, or application/octet-stream
func MimeType(path string) string {
	if f, ok := Lookup(path); ok {
		return f.MimeType
	}
	return "application/octet-stream"
}

// OutputExtensions lists every writable extension, sorted
func OutputExtensions() []string {
	var exts []string
	for ext, f := range Formats {
		if f.Encode != CodecNone {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}
