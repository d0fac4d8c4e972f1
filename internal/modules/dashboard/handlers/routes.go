package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the request/response dashboard route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.HandleGetDashboard)
}

// RegisterLiveRoutes registers the WebSocket route. It must be mounted
// outside any request timeout middleware.
func (h *Handler) RegisterLiveRoutes(r chi.Router) {
	r.Get("/dashboard/live", h.HandleLive)
}
