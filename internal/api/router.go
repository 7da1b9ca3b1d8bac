package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all admin routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(h *Handler, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Access log.
	r.Get("/log", h.ListLog)
	r.Get("/log/stats", h.LogStats)
	r.Delete("/log", h.ClearLog)

	// Items and Markdown preview.
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}/markdown", h.ItemMarkdown)

	r.Get("/bots", h.Bots)
	r.Get("/settings", h.Settings)

	return r
}
