package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all insights routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/insights", func(r chi.Router) {
		r.Get("/opportunities", h.HandleOpportunityInsights)
		r.Get("/tasks", h.HandleTaskInsights)
		r.Get("/rules", h.HandleListRules)
	})
}
