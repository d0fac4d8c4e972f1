package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers opportunity, task and team routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/", h.HandleListOpportunities)
		r.Post("/", h.HandleCreateOpportunity)
		r.Get("/{id}", h.HandleGetOpportunity)
		r.Put("/{id}", h.HandleUpdateOpportunity)
		r.Delete("/{id}", h.HandleDeleteOpportunity)
		r.Post("/{id}/won", h.HandleMarkWon)
		r.Post("/{id}/lost", h.HandleMarkLost)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.HandleListTasks)
		r.Post("/", h.HandleCreateTask)
		r.Get("/{id}", h.HandleGetTask)
		r.Put("/{id}", h.HandleUpdateTask)
		r.Delete("/{id}", h.HandleDeleteTask)
	})

	r.Route("/team", func(r chi.Router) {
		r.Get("/", h.HandleListTeam)
		r.Post("/", h.HandleCreateTeamMember)
		r.Delete("/{id}", h.HandleDeleteTeamMember)
	})
}
