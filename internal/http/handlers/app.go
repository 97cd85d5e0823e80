package handlers

import (
	"encoding/json"
	"net/http"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
	"hordeclient/internal/pending"
	"hordeclient/internal/ws"
)

// App bundles the collaborators the HTTP surface needs. Handlers only enqueue
// jobs and read records; every lifecycle mutation belongs to the controller.
type App struct {
	Log     infra.Logger
	Enqueue domain.Enqueuer
	Jobs    domain.JobStore
	Images  domain.ImageStore
	Index   *pending.Index
	Hub     *ws.Hub
}

func NewApp(logger infra.Logger, enqueue domain.Enqueuer, jobs domain.JobStore, images domain.ImageStore, index *pending.Index, hub *ws.Hub) *App {
	return &App{
		Log:     logger,
		Enqueue: enqueue,
		Jobs:    jobs,
		Images:  images,
		Index:   index,
		Hub:     hub,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
