package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"focus-thumbnailer/internal/focus"
)

// HTTPConfig describes a remote inference endpoint
type HTTPConfig struct {
	URL     string
	Timeout time.Duration
}

// HTTPDetector posts the image as PNG to an inference service and reads a
// JSON detection response.
type HTTPDetector struct {
	name   string
	url    string
	client *http.Client
}

// NewHTTPDetector creates a detector for the given endpoint
func NewHTTPDetector(name string, config HTTPConfig) (*HTTPDetector, error) {
	if config.URL == "" {
		return nil, errors.New("detector url is empty")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDetector{
		name:   name,
		url:    config.URL,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the detector name
func (d *HTTPDetector) Name() string {
	return d.name
}

// DetectBestFace calls the remote endpoint
func (d *HTTPDetector) DetectBestFace(ctx context.Context, img image.Image) (focus.BoundingBox, bool, error) {
	if img == nil || img.Bounds().Empty() {
		return focus.BoundingBox{}, false, nil
	}

	payload, err := encodePNG(img)
	if err != nil {
		return focus.BoundingBox{}, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return focus.BoundingBox{}, false, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return parseDetectionResponse(body)
}
