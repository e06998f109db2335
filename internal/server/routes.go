// Package server wires HTTP handlers into a chi router for the chat
// application.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter configures and returns a router with all application routes:
// health check, status, history query, WebSocket endpoint, and test page.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	accessLogger := h.logger.With().Str("component", "http").Logger()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &accessLogger, NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/", HealthHandler)
	r.Get("/healthz", h.Status)
	r.Get("/test", TestPageHandler)
	r.HandleFunc("/ws", h.WebSocket)

	r.Route("/api", func(api chi.Router) {
		api.Use(h.origins.CORS)
		api.Get("/history", h.History)
	})

	return r
}
