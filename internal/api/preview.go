package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the browser layer is served from the same host; capture frames
	// carry no secrets
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PreviewHandler upgrades to a websocket and forwards live capture
// chunks while a recording is in progress. The connection ends when
// the capture stops or the client goes away.
func (app *App) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[API] Preview upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := app.Pipeline.PreviewFeed()
	defer cancel()

	for chunk := range ch {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return
		}
	}
}
