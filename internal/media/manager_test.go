package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/visioncue/visioncue/internal/storage"
)

// fakeDevice emits a fixed set of chunks, then blocks until closed.
type fakeDevice struct {
	chunks  [][]byte
	openErr error

	mu     sync.Mutex
	opened bool
	closed bool
	next   int
	stop   chan struct{}
}

func newFakeDevice(chunks ...[]byte) *fakeDevice {
	return &fakeDevice{chunks: chunks, stop: make(chan struct{})}
}

func (d *fakeDevice) Open(ctx context.Context) error {
	if d.openErr != nil {
		return d.openErr
	}
	d.mu.Lock()
	d.opened = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) ReadChunk() ([]byte, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, io.EOF
	}
	if d.next < len(d.chunks) {
		chunk := d.chunks[d.next]
		d.next++
		d.mu.Unlock()
		return chunk, nil
	}
	d.mu.Unlock()

	<-d.stop
	return nil, io.EOF
}

func (d *fakeDevice) ContentType() string { return "video/webm" }

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.stop)
	}
	return nil
}

func (d *fakeDevice) stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met in time")
}

func TestSelectFile(t *testing.T) {
	store := storage.NewMemoryStore()
	m := NewManager(store, nil)

	t.Run("ValidVideo", func(t *testing.T) {
		content := bytes.Repeat([]byte("frame"), 1000)
		asset, err := m.SelectFile("crosswalk.mp4", "video/mp4", int64(len(content)), bytes.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to select file: %v", err)
		}
		if asset.DisplayName != "crosswalk.mp4" {
			t.Errorf("Expected display name crosswalk.mp4, got %s", asset.DisplayName)
		}
		if asset.Source != Upload {
			t.Errorf("Expected source %s, got %s", Upload, asset.Source)
		}
		if asset.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), asset.Size)
		}
	})

	t.Run("NilReader", func(t *testing.T) {
		_, err := m.SelectFile("clip.mp4", "video/mp4", 0, nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NonVideoType", func(t *testing.T) {
		_, err := m.SelectFile("notes.txt", "text/plain", 4, bytes.NewReader([]byte("text")))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("OctetStreamWithVideoExt", func(t *testing.T) {
		asset, err := m.SelectFile("clip.webm", "application/octet-stream", 4, bytes.NewReader([]byte("data")))
		if err != nil {
			t.Fatalf("Expected octet-stream with video extension to pass: %v", err)
		}
		if asset.ContentType != "video/mp4" {
			t.Errorf("Expected normalized content type, got %s", asset.ContentType)
		}
	})

	t.Run("ReplacementReleasesPrevious", func(t *testing.T) {
		before := store.Len()
		if _, err := m.SelectFile("next.mp4", "video/mp4", 4, bytes.NewReader([]byte("next"))); err != nil {
			t.Fatalf("Failed to select replacement: %v", err)
		}
		if store.Len() != before {
			t.Errorf("Expected previous blob released: had %d blobs, now %d", before, store.Len())
		}
	})
}

func TestLiveCapture(t *testing.T) {
	t.Run("RecordAndStop", func(t *testing.T) {
		store := storage.NewMemoryStore()
		device := newFakeDevice([]byte("chunk1"), []byte("chunk2"), []byte("chunk3"))
		m := NewManager(store, device)

		if err := m.StartLiveCapture(context.Background()); err != nil {
			t.Fatalf("Failed to start capture: %v", err)
		}
		if !m.Recording() {
			t.Error("Expected Recording() true during capture")
		}

		waitFor(t, func() bool {
			d := device
			d.mu.Lock()
			defer d.mu.Unlock()
			return d.next == len(d.chunks)
		})

		asset, err := m.StopLiveCapture()
		if err != nil {
			t.Fatalf("Failed to stop capture: %v", err)
		}
		if asset.Source != LiveRecording {
			t.Errorf("Expected source %s, got %s", LiveRecording, asset.Source)
		}
		if asset.Size == 0 {
			t.Error("Expected non-empty recording")
		}
		if !device.stopped() {
			t.Error("Expected device tracks stopped after StopLiveCapture")
		}

		data, err := store.Bytes(asset.BlobID)
		if err != nil {
			t.Fatalf("Failed to read recording blob: %v", err)
		}
		if string(data) != "chunk1chunk2chunk3" {
			t.Errorf("Unexpected recording contents: %q", data)
		}
	})

	t.Run("DoubleStart", func(t *testing.T) {
		m := NewManager(storage.NewMemoryStore(), newFakeDevice())
		if err := m.StartLiveCapture(context.Background()); err != nil {
			t.Fatalf("Failed to start capture: %v", err)
		}
		if err := m.StartLiveCapture(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
			t.Errorf("Expected ErrAlreadyRecording, got %v", err)
		}
		m.StopLiveCapture()
	})

	t.Run("StopWithoutCapture", func(t *testing.T) {
		m := NewManager(storage.NewMemoryStore(), newFakeDevice())
		asset, err := m.StopLiveCapture()
		if err != nil {
			t.Fatalf("Expected no-op stop, got %v", err)
		}
		if asset != nil {
			t.Errorf("Expected nil asset with nothing recorded, got %+v", asset)
		}
	})

	t.Run("NoDevice", func(t *testing.T) {
		m := NewManager(storage.NewMemoryStore(), nil)
		err := m.StartLiveCapture(context.Background())
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("DeviceRefuses", func(t *testing.T) {
		device := newFakeDevice()
		device.openErr = errors.New("user dismissed the prompt")
		m := NewManager(storage.NewMemoryStore(), device)
		err := m.StartLiveCapture(context.Background())
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("PreviewReceivesChunks", func(t *testing.T) {
		device := newFakeDevice([]byte("frame-a"), []byte("frame-b"))
		m := NewManager(storage.NewMemoryStore(), device)

		ch, cancel := m.SubscribePreview()
		defer cancel()

		if err := m.StartLiveCapture(context.Background()); err != nil {
			t.Fatalf("Failed to start capture: %v", err)
		}

		select {
		case chunk := <-ch:
			if string(chunk) != "frame-a" {
				t.Errorf("Expected first preview chunk frame-a, got %q", chunk)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for preview chunk")
		}

		if _, err := m.StopLiveCapture(); err != nil {
			t.Fatalf("Failed to stop capture: %v", err)
		}

		waitFor(t, func() bool {
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						return true
					}
				default:
					return false
				}
			}
		})
	})
}
