package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the API router.
func (h *Handlers) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.Health)

	r.Route("/api/videos", func(r chi.Router) {
		r.Post("/", h.Download)
		r.Get("/", h.ListVideos)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetVideo)
			r.Delete("/", h.DeleteVideo)
			r.Get("/progress", h.Progress)
			r.Get("/file", h.ServeFile)
			r.Get("/thumbnail", h.Thumbnail)
			r.Put("/position", h.SavePosition)
			r.Get("/position", h.GetPosition)
		})
	})

	return r
}
