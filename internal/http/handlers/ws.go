package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The daemon serves a single local user; cross-origin checks add nothing.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Updates upgrades the connection and subscribes it to job-update frames.
func (a *App) Updates(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Log.Warn().Err(err).Msg("handlers: websocket upgrade failed")
		return
	}
	a.Hub.RegisterClient(conn)

	// Drain (and discard) client frames so pings are answered and closes are
	// noticed; the stream is one-way.
	go func() {
		defer a.Hub.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
