package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"focus-thumbnailer/internal/focus"
	"focus-thumbnailer/internal/logging"
	"focus-thumbnailer/internal/metrics"
)

// DefaultLoadRetryInterval is how long a failed load is reported before the
// next call tries again
const DefaultLoadRetryInterval = 10 * time.Second

// ErrDetectorGone is wrapped by detectors whose backing resource died (a
// crashed process). Lazy discards such a detector and loads a fresh one on
// the next call.
var ErrDetectorGone = errors.New("detector is gone")

// LoadFunc constructs a detector. It may be slow (model loading, process start).
type LoadFunc func() (Detector, error)

// Lazy defers construction of a detector until its first use. A successful
// load runs at most once, under a mutex, even when the first calls arrive
// concurrently. A failed load is not kept: calls within RetryInterval get the
// same error, the first call after it loads again.
type Lazy struct {
	name string
	load LoadFunc

	// RetryInterval throttles reloads after a failure
	RetryInterval time.Duration

	now func() time.Time

	mu       sync.Mutex
	det      Detector
	err      error
	failedAt time.Time
}

// NewLazy wraps load so it runs on first use
func NewLazy(name string, load LoadFunc) *Lazy {
	return &Lazy{
		name:          name,
		load:          load,
		RetryInterval: DefaultLoadRetryInterval,
		now:           time.Now,
	}
}

// Name returns the configured detector name
func (l *Lazy) Name() string {
	return l.name
}

func (l *Lazy) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.det != nil
}

func (l *Lazy) get() (Detector, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.det != nil {
		return l.det, nil
	}
	if l.err != nil && l.now().Sub(l.failedAt) < l.RetryInterval {
		return nil, l.err
	}

	start := time.Now()
	det, err := l.load()
	if err != nil {
		l.err = err
		l.failedAt = l.now()
		metrics.DetectorLoadsTotal.WithLabelValues(l.name, "error").Inc()
		logging.Error("Failed to load detector %s: %v (retrying in %v)", l.name, err, l.RetryInterval)
		return nil, err
	}

	l.det, l.err = det, nil
	metrics.DetectorLoadsTotal.WithLabelValues(l.name, "success").Inc()
	logging.Info("Detector %s loaded in %v", l.name, time.Since(start))
	return det, nil
}

// Warm forces the load now instead of on the first job
func (l *Lazy) Warm() error {
	_, err := l.get()
	return err
}

// DetectBestFace loads the detector if needed and delegates to it
func (l *Lazy) DetectBestFace(ctx context.Context, img image.Image) (focus.BoundingBox, bool, error) {
	d, err := l.get()
	if err != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("detector unavailable: %w", err)
	}

	box, found, err := d.DetectBestFace(ctx, img)
	if errors.Is(err, ErrDetectorGone) {
		l.discard(d)
	}
	return box, found, err
}

// discard drops d so the next call loads a replacement
func (l *Lazy) discard(d Detector) {
	l.mu.Lock()
	if l.det != d {
		l.mu.Unlock()
		return
	}
	l.det = nil
	l.mu.Unlock()

	logging.Warn("Detector %s stopped working, it will be reloaded on the next job", l.name)
	if c, ok := d.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			logging.Debug("Closing detector %s: %v", l.name, err)
		}
	}
}

// Close closes the underlying detector if it was loaded
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.det == nil {
		return nil
	}
	if c, ok := l.det.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
