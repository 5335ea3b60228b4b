package media

import "context"

// CaptureDevice is one hardware (or simulated) camera. Open may block
// on a permission prompt; ReadChunk blocks until the next encoded
// chunk is available and returns an error once the device is closed.
type CaptureDevice interface {
	Open(ctx context.Context) error
	ReadChunk() ([]byte, error)
	ContentType() string
	Close() error
}
