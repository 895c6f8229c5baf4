package detect

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"

	"focus-thumbnailer/internal/focus"

	"github.com/disintegration/imaging"
)

// maxFrameSize bounds a single response frame from an external detector
const maxFrameSize = 1 << 20

// detectionResponse is the JSON answer of external detectors:
//
//	{"box": [x1, y1, x2, y2], "score": 0.93}
//	{"box": null}
//	{"error": "model crashed"}
type detectionResponse struct {
	Box   []int   `json:"box"`
	Score float64 `json:"score,omitempty"`
	Error string  `json:"error,omitempty"`
}

func parseDetectionResponse(data []byte) (focus.BoundingBox, bool, error) {
	var resp detectionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return focus.BoundingBox{}, false, fmt.Errorf("invalid detector response: %w", err)
	}
	if resp.Error != "" {
		return focus.BoundingBox{}, false, errors.New(resp.Error)
	}
	if resp.Box == nil {
		return focus.BoundingBox{}, false, nil
	}
	if len(resp.Box) != 4 {
		return focus.BoundingBox{}, false, fmt.Errorf("invalid detector response: box has %d values, want 4", len(resp.Box))
	}

	box := focus.BoundingBox{X1: resp.Box[0], Y1: resp.Box[1], X2: resp.Box[2], Y2: resp.Box[3]}
	if box.Empty() {
		return focus.BoundingBox{}, false, nil
	}
	return box, true, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image for detector: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFrame writes [uint32 big endian length][payload]
func writeFrame(w io.Writer, payload []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(header)
	if n > maxFrameSize {
		return nil, fmt.Errorf("detector frame too large: %d bytes", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
