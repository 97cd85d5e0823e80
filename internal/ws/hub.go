// Package ws pushes job record updates to connected clients so the UI can
// render lifecycle changes without polling the HTTP API.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
)

// Hub fans job updates out to every connected websocket client.
type Hub struct {
	log        infra.Logger
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func NewHub(logger infra.Logger) *Hub {
	return &Hub{
		log:        logger,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Start runs the hub loop in its own goroutine.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case conn := <-h.register:
				h.mu.Lock()
				h.clients[conn] = true
				h.mu.Unlock()
				h.log.Debug().Int("clients", h.clientCount()).Msg("ws: client connected")
			case conn := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[conn]; ok {
					delete(h.clients, conn)
					conn.Close()
				}
				h.mu.Unlock()
				h.log.Debug().Int("clients", h.clientCount()).Msg("ws: client disconnected")
			case message := <-h.broadcast:
				h.mu.Lock()
				for conn := range h.clients {
					if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
						h.log.Warn().Err(err).Msg("ws: write failed, dropping client")
						conn.Close()
						delete(h.clients, conn)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RegisterClient hands a freshly upgraded connection to the hub.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	h.register <- conn
}

// UnregisterClient removes a connection and closes it.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.unregister <- conn
}

// BroadcastJob sends a job-update frame to every connected client. Frames are
// dropped rather than blocking the controller when no reader keeps up.
func (h *Hub) BroadcastJob(job domain.Job) {
	frame := map[string]any{
		"type":             "job_update",
		"job_id":           job.LocalID,
		"remote_id":        job.RemoteID,
		"status":           job.Status,
		"images_completed": job.ImagesCompleted,
		"images_failed":    job.ImagesFailed,
		"queue_position":   job.QueuePosition,
		"wait_time":        job.WaitTime,
		"updated_at":       job.UpdatedAt,
	}
	if len(job.Errors) > 0 {
		frame["errors"] = job.Errors
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("ws: marshal job update failed")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("job_id", job.LocalID).Msg("ws: broadcast buffer full, dropping frame")
	}
}
