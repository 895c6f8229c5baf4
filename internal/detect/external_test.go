package detect

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"focus-thumbnailer/internal/focus"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func frame(payload string) []byte {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte(payload)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestParseDetectionResponse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantBox   focus.BoundingBox
		wantFound bool
		wantErr   bool
	}{
		{"box", `{"box":[1,2,30,40],"score":0.9}`, focus.BoundingBox{X1: 1, Y1: 2, X2: 30, Y2: 40}, true, false},
		{"null box", `{"box":null}`, focus.BoundingBox{}, false, false},
		{"missing box", `{}`, focus.BoundingBox{}, false, false},
		{"degenerate box", `{"box":[10,10,10,20]}`, focus.BoundingBox{}, false, false},
		{"short box", `{"box":[1,2,3]}`, focus.BoundingBox{}, false, true},
		{"error", `{"error":"out of memory"}`, focus.BoundingBox{}, false, true},
		{"invalid json", `not json`, focus.BoundingBox{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			box, found, err := parseDetectionResponse([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if found != tt.wantFound {
				t.Errorf("Expected found=%v, got %v", tt.wantFound, found)
			}
			if box != tt.wantBox {
				t.Errorf("Expected %v, got %v", tt.wantBox, box)
			}
		})
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(maxFrameSize+1))
	if _, err := readFrame(&buf); err == nil {
		t.Error("Expected error for oversized frame")
	}
}

func TestSidecarProtocol(t *testing.T) {
	var sent bytes.Buffer
	responses := bytes.NewReader(append(
		frame(`{"box":[4,6,20,30]}`),
		frame(`{"box":null}`)...,
	))

	s := newSidecarFromPipes("ssd", nopWriteCloser{&sent}, io.NopCloser(responses))
	img := testImage(40, 40)

	box, found, err := s.DetectBestFace(context.Background(), img)
	if err != nil {
		t.Fatalf("DetectBestFace failed: %v", err)
	}
	if !found || box != (focus.BoundingBox{X1: 4, Y1: 6, X2: 20, Y2: 30}) {
		t.Errorf("Unexpected result found=%v box=%v", found, box)
	}

	// The request is a length prefixed PNG of the same size
	payload, err := readFrame(&sent)
	if err != nil {
		t.Fatalf("Failed to read request frame: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Request payload is not a PNG: %v", err)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 40 {
		t.Errorf("Unexpected request image size %v", decoded.Bounds())
	}

	_, found, err = s.DetectBestFace(context.Background(), img)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}
	if found {
		t.Error("Expected no detection on null box")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestSidecarBrokenProcess(t *testing.T) {
	var sent bytes.Buffer
	s := newSidecarFromPipes("ssd", nopWriteCloser{&sent}, io.NopCloser(strings.NewReader("")))

	_, _, err := s.DetectBestFace(context.Background(), testImage(10, 10))
	if !errors.Is(err, ErrDetectorGone) {
		t.Fatalf("Expected ErrDetectorGone when the process produced no response, got %v", err)
	}

	sent.Reset()
	_, _, err = s.DetectBestFace(context.Background(), testImage(10, 10))
	if !errors.Is(err, ErrDetectorGone) || !strings.Contains(err.Error(), "unusable") {
		t.Errorf("Expected unusable error, got %v", err)
	}
	if sent.Len() != 0 {
		t.Error("Nothing should be written to a broken process")
	}
}

func TestStartSidecarEmptyCommand(t *testing.T) {
	if _, err := StartSidecar("ssd", SidecarConfig{}); err == nil {
		t.Error("Expected error for empty command")
	}
}

func TestHTTPDetector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Expected image/png, got %s", ct)
		}
		if _, err := png.Decode(r.Body); err != nil {
			t.Errorf("Body is not a PNG: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"box":[10,12,50,60],"score":0.8}`))
	}))
	defer server.Close()

	d, err := NewHTTPDetector("remote", HTTPConfig{URL: server.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewHTTPDetector failed: %v", err)
	}

	box, found, err := d.DetectBestFace(context.Background(), testImage(64, 64))
	if err != nil {
		t.Fatalf("DetectBestFace failed: %v", err)
	}
	if !found || box != (focus.BoundingBox{X1: 10, Y1: 12, X2: 50, Y2: 60}) {
		t.Errorf("Unexpected result found=%v box=%v", found, box)
	}
}

func TestHTTPDetectorErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		d, _ := NewHTTPDetector("remote", HTTPConfig{URL: server.URL})
		_, _, err := d.DetectBestFace(context.Background(), testImage(8, 8))
		if err == nil || !strings.Contains(err.Error(), "503") {
			t.Errorf("Expected status error, got %v", err)
		}
	})

	t.Run("detector error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"bad input"}`))
		}))
		defer server.Close()

		d, _ := NewHTTPDetector("remote", HTTPConfig{URL: server.URL})
		_, _, err := d.DetectBestFace(context.Background(), testImage(8, 8))
		if err == nil || err.Error() != "bad input" {
			t.Errorf("Expected detector error, got %v", err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		if _, err := NewHTTPDetector("remote", HTTPConfig{}); err == nil {
			t.Error("Expected error for empty url")
		}
	})
}

func TestParseChainConfig(t *testing.T) {
	data := []byte(`
detectors:
  - name: ssd
    type: sidecar
    command: ["python3", "tools/ssd_detector.py"]
  - name: remote
    type: http
    url: http://localhost:8500/detect
    timeout: 5s
  - name: pigo
    type: pigo
    cascade: models/facefinder
    min_quality: 7.5
`)

	config, err := ParseChainConfig(data)
	if err != nil {
		t.Fatalf("ParseChainConfig failed: %v", err)
	}

	names := config.Names()
	if len(names) != 3 || names[0] != "ssd" || names[1] != "remote" || names[2] != "pigo" {
		t.Fatalf("Unexpected order %v", names)
	}
	if config.Detectors[1].Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", config.Detectors[1].Timeout)
	}
	if config.Detectors[2].MinQuality != 7.5 {
		t.Errorf("Expected min quality 7.5, got %v", config.Detectors[2].MinQuality)
	}

	detectors, err := config.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for _, d := range detectors {
		lazy, ok := d.(*Lazy)
		if !ok {
			t.Fatalf("Expected lazy detector, got %T", d)
		}
		if lazy.isLoaded() {
			t.Errorf("Detector %s loaded during Build", lazy.Name())
		}
	}
}

func TestParseChainConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		unknown bool
	}{
		{"unknown type", "detectors:\n  - name: x\n    type: dlib\n", true},
		{"missing name", "detectors:\n  - type: pigo\n", false},
		{"duplicate name", "detectors:\n  - name: a\n    type: pigo\n  - name: a\n    type: pigo\n", false},
		{"sidecar without command", "detectors:\n  - name: a\n    type: sidecar\n", false},
		{"http without url", "detectors:\n  - name: a\n    type: http\n", false},
		{"invalid yaml", "detectors: [", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChainConfig([]byte(tt.input))
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.unknown && !errors.Is(err, ErrUnknownDetector) {
				t.Errorf("Expected ErrUnknownDetector, got %v", err)
			}
		})
	}
}

func TestChainConfigFromNames(t *testing.T) {
	defaults := Defaults{
		PigoCascade:    "/opt/cascade",
		SidecarCommand: "python3 detect.py --model ssd",
		URL:            "http://detector:8500",
		Timeout:        time.Second,
	}

	config, err := ChainConfigFromNames(" Sidecar, http ,pigo,", defaults)
	if err != nil {
		t.Fatalf("ChainConfigFromNames failed: %v", err)
	}
	if len(config.Detectors) != 3 {
		t.Fatalf("Expected 3 detectors, got %d", len(config.Detectors))
	}
	if got := config.Detectors[0].Command; len(got) != 4 || got[0] != "python3" {
		t.Errorf("Unexpected sidecar command %v", got)
	}
	if config.Detectors[1].URL != defaults.URL {
		t.Errorf("Unexpected url %s", config.Detectors[1].URL)
	}
	if config.Detectors[2].Cascade != defaults.PigoCascade {
		t.Errorf("Unexpected cascade %s", config.Detectors[2].Cascade)
	}

	if _, err := ChainConfigFromNames("sidecar", Defaults{}); err == nil {
		t.Error("Expected error for sidecar without command")
	}
	if _, err := ChainConfigFromNames("mtcnn", defaults); !errors.Is(err, ErrUnknownDetector) {
		t.Errorf("Expected ErrUnknownDetector, got %v", err)
	}
}

func TestPigoDetectorMissingCascade(t *testing.T) {
	config := DefaultPigoConfig()
	config.CascadePath = t.TempDir() + "/missing"
	if _, err := NewPigoDetector("pigo", config); err == nil {
		t.Error("Expected error for missing cascade file")
	}
}

func TestChainConfigCheckFiles(t *testing.T) {
	dir := t.TempDir()
	cascade := filepath.Join(dir, "facefinder")
	if err := os.WriteFile(cascade, []byte("cascade"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name    string
		config  ChainConfig
		wantErr string
	}{
		{
			name:   "cascade present",
			config: ChainConfig{Detectors: []DetectorConfig{{Name: "pigo", Type: TypePigo, Cascade: cascade}}},
		},
		{
			name:   "non pigo detectors are not checked",
			config: ChainConfig{Detectors: []DetectorConfig{{Name: "remote", Type: TypeHTTP, URL: "http://x"}}},
		},
		{
			name:    "cascade missing",
			config:  ChainConfig{Detectors: []DetectorConfig{{Name: "pigo", Type: TypePigo, Cascade: filepath.Join(dir, "missing")}}},
			wantErr: "detector pigo: cascade",
		},
		{
			name:    "cascade is a directory",
			config:  ChainConfig{Detectors: []DetectorConfig{{Name: "faces", Type: TypePigo, Cascade: dir}}},
			wantErr: "not a regular file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.CheckFiles()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("CheckFiles: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("CheckFiles = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
