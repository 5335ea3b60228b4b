package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/visioncue/visioncue/internal/api"
	"github.com/visioncue/visioncue/internal/detect"
	"github.com/visioncue/visioncue/internal/media"
	"github.com/visioncue/visioncue/internal/overlay"
	"github.com/visioncue/visioncue/internal/pipeline"
	"github.com/visioncue/visioncue/internal/speech"
	"github.com/visioncue/visioncue/internal/storage"
)

type TestServer struct {
	Server     *httptest.Server
	App        *api.App
	Controller *pipeline.Controller
	Store      *storage.MemoryStore
	Device     *loopDevice
}

// loopDevice is a capture device that emits small frames until closed.
type loopDevice struct {
	stop chan struct{}
}

func newLoopDevice() *loopDevice {
	return &loopDevice{stop: make(chan struct{})}
}

func (d *loopDevice) Open(ctx context.Context) error { return nil }

func (d *loopDevice) ReadChunk() ([]byte, error) {
	select {
	case <-d.stop:
		return nil, io.EOF
	case <-time.After(time.Millisecond):
		return []byte("frame"), nil
	}
}

func (d *loopDevice) ContentType() string { return "video/webm" }

func (d *loopDevice) Close() error {
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	return nil
}

func setupTestServer(t *testing.T) *TestServer {
	t.Helper()

	store := storage.NewMemoryStore()
	device := newLoopDevice()
	manager := media.NewManager(store, device)

	sim := detect.NewSimulator(42)
	sim.StageDelay = time.Millisecond

	synth := speech.NewSimSynthesizer(speech.DefaultVoices(), 0)
	engine := speech.NewEngine(synth)

	controller := pipeline.NewController(manager, sim, engine)

	app := &api.App{
		Pipeline:      controller,
		Renderer:      overlay.NewRenderer(1280, 720),
		MaxUploadSize: 10 * 1024 * 1024,
	}

	server := httptest.NewServer(api.NewRouter(app))
	t.Cleanup(func() {
		server.Close()
		controller.Shutdown()
	})

	return &TestServer{
		Server:     server,
		App:        app,
		Controller: controller,
		Store:      store,
		Device:     device,
	}
}

func uploadVideo(t *testing.T, ts *TestServer, filename, contentType string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		t.Fatalf("Failed to create form part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form content: %v", err)
	}
	writer.Close()

	resp, err := http.Post(ts.Server.URL+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Upload request failed: %v", err)
	}
	return resp
}

func postJSON(t *testing.T, ts *TestServer, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.Server.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func getSnapshot(t *testing.T, ts *TestServer) pipeline.Snapshot {
	t.Helper()

	resp, err := http.Get(ts.Server.URL + "/api/state")
	if err != nil {
		t.Fatalf("State request failed: %v", err)
	}
	defer resp.Body.Close()

	var snap pipeline.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	return snap
}

func waitForServerState(t *testing.T, ts *TestServer, want pipeline.State) pipeline.Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := getSnapshot(t, ts)
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for state %s", want)
	return pipeline.Snapshot{}
}
