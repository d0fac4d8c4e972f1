// Package handlers provides HTTP handlers for CRM records.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/modules/crm"
	"github.com/aristath/dealdesk/internal/modules/filters"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecordStore is the subset of the CRM service the handlers need
type RecordStore interface {
	ListOpportunities(ctx context.Context) ([]domain.Opportunity, error)
	GetOpportunity(ctx context.Context, id string) (*domain.Opportunity, error)
	CreateOpportunity(ctx context.Context, in crm.OpportunityInput) (*domain.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, in crm.OpportunityInput) (*domain.Opportunity, error)
	MarkWon(ctx context.Context, id string) (*domain.Opportunity, error)
	MarkLost(ctx context.Context, id string) (*domain.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id string) error

	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, in crm.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, in crm.TaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error)
	CreateTeamMember(ctx context.Context, in crm.TeamMemberInput) (*domain.TeamMember, error)
	DeleteTeamMember(ctx context.Context, id string) error
}

// Handler handles CRM record HTTP requests
type Handler struct {
	store RecordStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewHandler creates a new CRM handler
func NewHandler(store RecordStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		now:   time.Now,
		log:   log.With().Str("handler", "crm").Logger(),
	}
}

// HandleListOpportunities handles GET /api/opportunities.
// Accepts the field filters plus ?insight= to narrow to an insight's records.
func (h *Handler) HandleListOpportunities(w http.ResponseWriter, r *http.Request) {
	filter, err := filters.ParseOpportunityQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	records, err := h.store.ListOpportunities(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list opportunities")
		h.writeServiceError(w, err)
		return
	}

	records = filters.ApplyOpportunityFilters(records, filter)
	if insightID := r.URL.Query().Get("insight"); insightID != "" {
		records, err = filters.ApplyInsightFilter(records, insightID, h.now())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"opportunities": records,
		"count":         len(records),
	})
}

// HandleGetOpportunity handles GET /api/opportunities/{id}
func (h *Handler) HandleGetOpportunity(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.GetOpportunity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, record)
}

// HandleCreateOpportunity handles POST /api/opportunities
func (h *Handler) HandleCreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var in crm.OpportunityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	record, err := h.store.CreateOpportunity(r.Context(), in)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to create opportunity")
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, record)
}

// HandleUpdateOpportunity handles PUT /api/opportunities/{id}
func (h *Handler) HandleUpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	var in crm.OpportunityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	id := chi.URLParam(r, "id")
	record, err := h.store.UpdateOpportunity(r.Context(), id, in)
	if err != nil {
		h.log.Warn().Err(err).Str("id", id).Msg("Failed to update opportunity")
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, record)
}

// HandleMarkWon handles POST /api/opportunities/{id}/won
func (h *Handler) HandleMarkWon(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.MarkWon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, record)
}

// HandleMarkLost handles POST /api/opportunities/{id}/lost
func (h *Handler) HandleMarkLost(w http.ResponseWriter, r *http.Request) {
	record, err := h.store.MarkLost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, record)
}

// HandleDeleteOpportunity handles DELETE /api/opportunities/{id}
func (h *Handler) HandleDeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteOpportunity(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

// HandleListTasks handles GET /api/tasks (field filters plus ?insight=)
func (h *Handler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := filters.ParseTaskQuery(r.URL.Query(), "")
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	tasks, err := h.store.ListTasks(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tasks")
		h.writeServiceError(w, err)
		return
	}

	tasks = filters.ApplyTaskFilters(tasks, filter)
	if insightID := r.URL.Query().Get("insight"); insightID != "" {
		members, err := h.store.ListTeamMembers(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		tasks, err = filters.ApplyTaskInsightFilter(tasks, members, insightID, h.now())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// HandleGetTask handles GET /api/tasks/{id}
func (h *Handler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GetTask(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, task)
}

// HandleCreateTask handles POST /api/tasks
func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in crm.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	task, err := h.store.CreateTask(r.Context(), in)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to create task")
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, task)
}

// HandleUpdateTask handles PUT /api/tasks/{id}
func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in crm.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	id := chi.URLParam(r, "id")
	task, err := h.store.UpdateTask(r.Context(), id, in)
	if err != nil {
		h.log.Warn().Err(err).Str("id", id).Msg("Failed to update task")
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /api/tasks/{id}
func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteTask(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

// HandleListTeam handles GET /api/team
func (h *Handler) HandleListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListTeamMembers(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list team members")
		h.writeServiceError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

// HandleCreateTeamMember handles POST /api/team
func (h *Handler) HandleCreateTeamMember(w http.ResponseWriter, r *http.Request) {
	var in crm.TeamMemberInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", "INVALID_BODY")
		return
	}

	member, err := h.store.CreateTeamMember(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, member)
}

// HandleDeleteTeamMember handles DELETE /api/team/{id}
func (h *Handler) HandleDeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteTeamMember(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

// writeServiceError maps sentinel errors to status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, crm.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, crm.ErrTerminalStage):
		h.writeError(w, http.StatusConflict, err.Error(), "TERMINAL_STAGE")
	case errors.Is(err, crm.ErrInvalidOpportunity),
		errors.Is(err, crm.ErrInvalidTask),
		errors.Is(err, crm.ErrInvalidTeamMember):
		h.writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case errors.Is(err, filters.ErrUnknownInsight):
		h.writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_INSIGHT")
	case errors.Is(err, filters.ErrInvalidQuery):
		h.writeError(w, http.StatusBadRequest, err.Error(), "INVALID_QUERY")
	default:
		h.writeError(w, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
