package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/visioncue/visioncue/internal/media"
	"github.com/visioncue/visioncue/internal/overlay"
	"github.com/visioncue/visioncue/internal/pipeline"
)

type App struct {
	Pipeline      *pipeline.Controller
	Renderer      *overlay.Renderer
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing video file")
		return
	}
	defer file.Close()

	asset, err := app.Pipeline.SelectFile(header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, asset)
}

func (app *App) CaptureStartHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Pipeline.StartCapture(); err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
}

func (app *App) CaptureStopHandler(w http.ResponseWriter, r *http.Request) {
	asset, err := app.Pipeline.StopCapture()
	if err != nil {
		writePipelineError(w, err)
		return
	}
	if asset == nil {
		writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (app *App) ProcessHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Pipeline.Submit(); err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, app.Pipeline.Snapshot())
}

func (app *App) AbortHandler(w http.ResponseWriter, r *http.Request) {
	app.Pipeline.Abort()
	writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
}

func (app *App) SpeakHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Pipeline.Speak(); err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
}

func (app *App) SpeechStopHandler(w http.ResponseWriter, r *http.Request) {
	app.Pipeline.StopSpeech()
	writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
}

func (app *App) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Pipeline.Snapshot())
}

// EventsHandler streams pipeline events as server-sent events.
func (app *App) EventsHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := app.Pipeline.Subscribe()
	defer app.Pipeline.Unsubscribe(ch)

	// current state first so late joiners render immediately
	writeEvent(w, pipeline.EventState, app.Pipeline.Snapshot())
	flusher.Flush()

	clientGone := r.Context().Done()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, ev.Type, ev.Data)
			flusher.Flush()

		case <-clientGone:
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[API] Error marshaling event: %v", err)
		return
	}
	w.Write([]byte("event: " + eventType + "\ndata: " + string(payload) + "\n\n"))
}

// OverlayHandler renders the current result's detection boxes at the
// requested surface size.
func (app *App) OverlayHandler(w http.ResponseWriter, r *http.Request) {
	snap := app.Pipeline.Snapshot()
	if snap.Result == nil {
		writeError(w, http.StatusNotFound, "no result to overlay")
		return
	}

	width := queryInt(r, "w", 1280)
	height := queryInt(r, "h", 720)

	data, err := app.Renderer.EncodePNGAt(snap.Result, width, height)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render overlay")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// VideoHandler streams the active asset with Range support so the
// playback surface can seek.
func (app *App) VideoHandler(w http.ResponseWriter, r *http.Request) {
	rc, asset, err := app.Pipeline.OpenAsset()
	if err != nil {
		writeError(w, http.StatusNotFound, "no active video")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	http.ServeContent(w, r, asset.DisplayName, asset.CreatedAt, rc)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrInvalidInput), errors.Is(err, pipeline.ErrNoAsset):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, media.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, media.ErrAlreadyRecording), errors.Is(err, pipeline.ErrRecoveryRequired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
