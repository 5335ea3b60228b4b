package media

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Webcam captures JPEG chunks from a local video device via gocv. The
// finalized clip is a motion-JPEG stream of the captured frames.
type Webcam struct {
	deviceID int
	interval time.Duration

	mu  sync.Mutex
	cap *gocv.VideoCapture
	mat gocv.Mat
}

func NewWebcam(deviceID int) *Webcam {
	return &Webcam{
		deviceID: deviceID,
		interval: 100 * time.Millisecond,
	}
}

func (w *Webcam) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap != nil {
		return fmt.Errorf("device %d already open", w.deviceID)
	}

	vc, err := gocv.OpenVideoCapture(w.deviceID)
	if err != nil {
		return fmt.Errorf("opening device %d: %w", w.deviceID, err)
	}

	w.cap = vc
	w.mat = gocv.NewMat()
	return nil
}

func (w *Webcam) ReadChunk() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, io.EOF
	}

	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, io.EOF
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.mat)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	chunk := make([]byte, len(buf.GetBytes()))
	copy(chunk, buf.GetBytes())

	time.Sleep(w.interval)
	return chunk, nil
}

func (w *Webcam) ContentType() string { return "video/x-motion-jpeg" }

func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}

	err := w.cap.Close()
	w.mat.Close()
	w.cap = nil
	return err
}
