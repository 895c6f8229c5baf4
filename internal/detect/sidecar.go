package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"sync"

	"focus-thumbnailer/internal/focus"
	"focus-thumbnailer/internal/logging"
)

// SidecarConfig describes an external detector process, typically a Python
// script wrapping an SSD or YOLO model.
//
// The process reads frames from stdin and writes frames to file descriptor 3,
// leaving stdout and stderr free for its own logging. A frame is a big endian
// uint32 length followed by the payload: a PNG image on the way in, a JSON
// detection response on the way out.
type SidecarConfig struct {
	Command []string
	Dir     string
	Env     []string
}

// SidecarDetector talks to one long-lived detector process. Calls are
// serialized; the protocol has no request ids.
type SidecarDetector struct {
	name string
	cmd  *exec.Cmd

	mu     sync.Mutex
	stdin  io.WriteCloser
	data   io.ReadCloser
	broken error
}

// StartSidecar launches the detector process
func StartSidecar(name string, config SidecarConfig) (*SidecarDetector, error) {
	if len(config.Command) == 0 {
		return nil, errors.New("sidecar command is empty")
	}

	cmd := exec.Command(config.Command[0], config.Command[1:]...)
	cmd.Dir = config.Dir
	cmd.Env = append(os.Environ(), config.Env...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	// Side channel for responses, visible to the child as FD 3
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to start %s: %w", config.Command[0], err)
	}

	// Only the child keeps the write end open
	w.Close()

	logging.Info("Started detector process %s (pid %d)", name, cmd.Process.Pid)

	return &SidecarDetector{
		name:  name,
		cmd:   cmd,
		stdin: stdin,
		data:  r,
	}, nil
}

// newSidecarFromPipes builds a detector around existing pipes
func newSidecarFromPipes(name string, stdin io.WriteCloser, data io.ReadCloser) *SidecarDetector {
	return &SidecarDetector{name: name, stdin: stdin, data: data}
}

// Name returns the detector name
func (s *SidecarDetector) Name() string {
	return s.name
}

// DetectBestFace sends the image to the process and waits for its answer
func (s *SidecarDetector) DetectBestFace(ctx context.Context, img image.Image) (focus.BoundingBox, bool, error) {
	if err := ctx.Err(); err != nil {
		return focus.BoundingBox{}, false, err
	}
	if img == nil || img.Bounds().Empty() {
		return focus.BoundingBox{}, false, nil
	}

	payload, err := encodePNG(img)
	if err != nil {
		return focus.BoundingBox{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("%w: process unusable: %w", ErrDetectorGone, s.broken)
	}

	if err := writeFrame(s.stdin, payload); err != nil {
		s.broken = err
		return focus.BoundingBox{}, false, fmt.Errorf("%w: failed to send image: %w", ErrDetectorGone, err)
	}

	resp, err := readFrame(s.data)
	if err != nil {
		// The process most likely died (missing module, out of memory)
		s.broken = err
		return focus.BoundingBox{}, false, fmt.Errorf("%w: failed to read response: %w", ErrDetectorGone, err)
	}

	return parseDetectionResponse(resp)
}

// Close stops the process
func (s *SidecarDetector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stdin.Close()
	s.data.Close()
	if s.cmd == nil {
		return nil
	}
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logging.Debug("Detector process %s exited: %v", s.name, err)
			return nil
		}
		return err
	}
	return nil
}
