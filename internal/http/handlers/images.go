package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hordeclient/internal/domain"
)

type imageView struct {
	ID            string    `json:"id"`
	JobID         string    `json:"job_id"`
	RemoteImageID string    `json:"remote_image_id"`
	Kind          string    `json:"kind"`
	Seed          string    `json:"seed"`
	WorkerID      string    `json:"worker_id,omitempty"`
	WorkerName    string    `json:"worker_name,omitempty"`
	Model         string    `json:"model,omitempty"`
	Kudos         float64   `json:"kudos"`
	Censored      bool      `json:"censored"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListJobImages returns image metadata for one job, oldest first.
func (a *App) ListJobImages(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	images, err := a.Images.ListByJobID(r.Context(), jobID)
	if err != nil {
		a.Log.Error().Err(err).Str("job_id", jobID).Msg("handlers: list images failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list images")
		return
	}
	views := make([]imageView, 0, len(images))
	for _, img := range images {
		views = append(views, imageView{
			ID:            img.ID,
			JobID:         img.JobLocalID,
			RemoteImageID: img.RemoteImageID,
			Kind:          string(img.Kind),
			Seed:          img.Seed,
			WorkerID:      img.WorkerID,
			WorkerName:    img.WorkerName,
			Model:         img.Model,
			Kudos:         img.Kudos,
			Censored:      img.Censored,
			CreatedAt:     img.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, views)
}

// GetImage streams one stored image binary with a sniffed content type.
func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "image_id")
	img, err := a.Images.GetByID(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "image not found")
			return
		}
		a.Log.Error().Err(err).Str("image_id", imageID).Msg("handlers: get image failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load image")
		return
	}
	if len(img.Data) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "image payload not downloaded yet")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(img.Data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}
