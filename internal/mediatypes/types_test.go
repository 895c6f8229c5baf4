package mediatypes

import (
	"reflect"
	"testing"
)

func TestFormatQueries(t *testing.T) {
	tests := []struct {
		path            string
		isOutput        bool
		decodeNeedsVips bool
		encodeNeedsVips bool
		mime            string
	}{
		{"/thumbs/a.jpg", true, false, false, "image/jpeg"},
		{"/thumbs/A.JPEG", true, false, false, "image/jpeg"},
		{"b.png", true, false, false, "image/png"},
		{"c.webp", true, false, true, "image/webp"},
		{"d.heic", false, true, false, "image/heic"},
		{"e.avif", false, true, false, "image/avif"},
		{"f.psd", false, false, false, "application/octet-stream"},
		{"noext", false, false, false, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsOutput(tt.path); got != tt.isOutput {
				t.Errorf("IsOutput = %v, want %v", got, tt.isOutput)
			}
			if got := DecodeNeedsVips(tt.path); got != tt.decodeNeedsVips {
				t.Errorf("DecodeNeedsVips = %v, want %v", got, tt.decodeNeedsVips)
			}
			if got := EncodeNeedsVips(tt.path); got != tt.encodeNeedsVips {
				t.Errorf("EncodeNeedsVips = %v, want %v", got, tt.encodeNeedsVips)
			}
			if got := MimeType(tt.path); got != tt.mime {
				t.Errorf("MimeType = %q, want %q", got, tt.mime)
			}
		})
	}
}

func TestOutputExtensions(t *testing.T) {
	want := []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}
	if got := OutputExtensions(); !reflect.DeepEqual(got, want) {
		t.Errorf("OutputExtensions() = %v, want %v", got, want)
	}
}
