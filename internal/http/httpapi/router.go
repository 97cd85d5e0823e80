package httpapi

import (
	"net/http"

	"hordeclient/internal/http/handlers"
	custommw "hordeclient/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		custommw.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/ws", app.Updates)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.CreateJob)
		r.Get("/", app.ListJobs)
		r.Get("/{job_id}", app.GetJob)
		r.Delete("/{job_id}", app.DeleteJob)
		r.Get("/{job_id}/images", app.ListJobImages)
	})

	r.Get("/v1/images/{image_id}", app.GetImage)

	return r
}
