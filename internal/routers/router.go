package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"codesync/internal/api"
	"codesync/internal/metrics"
)

func New(h *api.Handlers) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/execute", h.Execute)
	r.Post("/ask-ai", h.AskAI)

	r.Get("/ws", h.RoomWS)

	return r
}
