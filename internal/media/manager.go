package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/visioncue/visioncue/internal/storage"
)

// Manager owns acquisition of raw video bytes: either a user-selected
// file or a live camera stream finalized into a recorded clip. Only
// one capture may be active at a time and only one asset is active at
// a time.
type Manager struct {
	store  storage.Store
	device CaptureDevice

	mu       sync.Mutex
	active   *Asset
	rec      *recording
	previews map[chan []byte]struct{}
}

type recording struct {
	cancel      context.CancelFunc
	done        chan struct{}
	buf         bytes.Buffer
	contentType string
	started     time.Time
}

func NewManager(store storage.Store, device CaptureDevice) *Manager {
	return &Manager{
		store:    store,
		device:   device,
		previews: make(map[chan []byte]struct{}),
	}
}

// SelectFile adopts an uploaded file as the active asset. The previous
// asset's blob is released first.
func (m *Manager) SelectFile(name, contentType string, size int64, r io.Reader) (*Asset, error) {
	if r == nil || name == "" {
		return nil, fmt.Errorf("%w: no file provided", ErrInvalidInput)
	}
	if !videoLike(name, contentType) {
		return nil, fmt.Errorf("%w: %q is not a video type", ErrInvalidInput, contentType)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "video/mp4"
	}

	blobID, err := m.store.Save(r, storage.BlobInfo{
		Name:        name,
		ContentType: contentType,
		Size:        size,
	})
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	data, err := m.store.Bytes(blobID)
	if err != nil {
		return nil, fmt.Errorf("reading upload back: %w", err)
	}

	asset := newAsset(Upload, blobID, contentType, name, int64(len(data)))

	m.mu.Lock()
	m.releaseLocked()
	m.active = asset
	m.mu.Unlock()

	log.Printf("[MEDIA] Selected file %q (%d bytes, %s)", name, asset.Size, contentType)
	return asset, nil
}

// StartLiveCapture opens the camera and begins accumulating encoded
// chunks. Each chunk is also fanned out to preview subscribers so the
// caller can show immediate feedback while recording.
func (m *Manager) StartLiveCapture(ctx context.Context) error {
	m.mu.Lock()
	if m.rec != nil {
		m.mu.Unlock()
		return ErrAlreadyRecording
	}
	device := m.device
	m.mu.Unlock()

	if device == nil {
		return fmt.Errorf("%w: no camera configured", ErrPermissionDenied)
	}

	if err := device.Open(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	capCtx, cancel := context.WithCancel(ctx)
	rec := &recording{
		cancel:      cancel,
		done:        make(chan struct{}),
		contentType: device.ContentType(),
		started:     time.Now(),
	}

	m.mu.Lock()
	if m.rec != nil {
		m.mu.Unlock()
		cancel()
		device.Close()
		return ErrAlreadyRecording
	}
	m.rec = rec
	m.mu.Unlock()

	log.Printf("[MEDIA] Live capture started (%s)", rec.contentType)
	go m.pump(capCtx, device, rec)
	return nil
}

func (m *Manager) pump(ctx context.Context, device CaptureDevice, rec *recording) {
	defer close(rec.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := device.ReadChunk()
		if err != nil {
			return
		}
		if len(chunk) == 0 {
			continue
		}

		rec.buf.Write(chunk)
		m.broadcast(chunk)
	}
}

// StopLiveCapture finalizes the recording into a single playable asset
// and stops the underlying device. With no active capture it is a
// no-op returning the current asset unchanged.
func (m *Manager) StopLiveCapture() (*Asset, error) {
	m.mu.Lock()
	rec := m.rec
	m.rec = nil
	device := m.device
	active := m.active
	m.mu.Unlock()

	if rec == nil {
		return active, nil
	}

	rec.cancel()
	if device != nil {
		device.Close()
	}
	<-rec.done
	m.closePreviews()

	blobID, err := m.store.Save(bytes.NewReader(rec.buf.Bytes()), storage.BlobInfo{
		Name:        "recording",
		ContentType: rec.contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("saving recording: %w", err)
	}

	name := fmt.Sprintf("recording-%s", rec.started.Format("20060102-150405"))
	asset := newAsset(LiveRecording, blobID, rec.contentType, name, int64(rec.buf.Len()))

	m.mu.Lock()
	m.releaseLocked()
	m.active = asset
	m.mu.Unlock()

	log.Printf("[MEDIA] Live capture stopped, recorded %d bytes", asset.Size)
	return asset, nil
}

func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec != nil
}

func (m *Manager) Active() *Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// OpenActive returns a readable handle on the active asset's bytes.
func (m *Manager) OpenActive() (io.ReadSeekCloser, *Asset, error) {
	m.mu.Lock()
	asset := m.active
	m.mu.Unlock()

	if asset == nil {
		return nil, nil, fmt.Errorf("%w: no active asset", ErrInvalidInput)
	}

	rc, err := m.store.Open(asset.BlobID)
	if err != nil {
		return nil, nil, err
	}
	return rc, asset, nil
}

// Release drops the active asset and its blob. Called at session end.
func (m *Manager) Release() {
	m.mu.Lock()
	m.releaseLocked()
	m.mu.Unlock()
}

func (m *Manager) releaseLocked() {
	if m.active == nil {
		return
	}
	if err := m.store.Delete(m.active.BlobID); err != nil {
		log.Printf("[MEDIA] Failed to release blob %s: %v", m.active.BlobID, err)
	}
	m.active = nil
}

// SubscribePreview registers a receiver for live capture chunks. The
// returned cancel func must be called when the receiver goes away;
// channels are also closed when the capture stops.
func (m *Manager) SubscribePreview() (<-chan []byte, func()) {
	ch := make(chan []byte, 8)

	m.mu.Lock()
	m.previews[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.previews[ch]; ok {
			delete(m.previews, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) broadcast(chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.previews {
		select {
		case ch <- chunk:
		default:
			// slow preview consumers drop frames rather than stall capture
		}
	}
}

func (m *Manager) closePreviews() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for ch := range m.previews {
		delete(m.previews, ch)
		close(ch)
	}
}
