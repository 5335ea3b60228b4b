package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", app.UploadHandler)
		r.Post("/capture/start", app.CaptureStartHandler)
		r.Post("/capture/stop", app.CaptureStopHandler)
		r.Post("/process", app.ProcessHandler)
		r.Post("/abort", app.AbortHandler)
		r.Post("/speak", app.SpeakHandler)
		r.Post("/speech/stop", app.SpeechStopHandler)
		r.Get("/state", app.StateHandler)
		r.Get("/events", app.EventsHandler)
		r.Get("/overlay.png", app.OverlayHandler)
		r.Get("/video", app.VideoHandler)
		r.Get("/preview", app.PreviewHandler)
	})

	fileServer := http.FileServer(http.Dir("./web/static"))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
