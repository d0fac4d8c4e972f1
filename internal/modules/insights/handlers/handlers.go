// Package handlers provides HTTP handlers for insight evaluation.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/modules/insights"
	"github.com/rs/zerolog"
)

// SnapshotSource provides the records insights are evaluated over
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Handler handles insight HTTP requests
type Handler struct {
	service     *insights.Service
	source      SnapshotSource
	maxInsights int
	now         func() time.Time
	log         zerolog.Logger
}

// NewHandler creates a new insights handler. maxInsights is used when the
// request has no ?max= parameter.
func NewHandler(service *insights.Service, source SnapshotSource, maxInsights int, log zerolog.Logger) *Handler {
	return &Handler{
		service:     service,
		source:      source,
		maxInsights: maxInsights,
		now:         time.Now,
		log:         log.With().Str("handler", "insights").Logger(),
	}
}

// HandleOpportunityInsights handles GET /api/insights/opportunities
func (h *Handler) HandleOpportunityInsights(w http.ResponseWriter, r *http.Request) {
	maxInsights, ok := h.parseMax(w, r)
	if !ok {
		return
	}

	snapshot, err := h.source.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read snapshot")
		h.writeError(w, http.StatusInternalServerError, "Failed to read records")
		return
	}

	now := h.now()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"insights":  h.service.OpportunityInsights(snapshot.Opportunities, now, maxInsights),
			"win_rate":  insights.ClosedCohortWinRate(snapshot.Opportunities),
			"evaluated": len(snapshot.Opportunities),
		},
		"metadata": map[string]interface{}{
			"timestamp": now.Format(time.RFC3339),
			"max":       maxInsights,
		},
	})
}

// HandleTaskInsights handles GET /api/insights/tasks
func (h *Handler) HandleTaskInsights(w http.ResponseWriter, r *http.Request) {
	maxInsights, ok := h.parseMax(w, r)
	if !ok {
		return
	}

	snapshot, err := h.source.Snapshot(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read snapshot")
		h.writeError(w, http.StatusInternalServerError, "Failed to read records")
		return
	}

	now := h.now()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"insights":   h.service.TaskInsights(snapshot.Tasks, snapshot.TeamMembers, now, maxInsights),
			"completion": insights.TaskCompletionRate(snapshot.Tasks),
			"workloads":  insights.MemberWorkloads(snapshot.TeamMembers, snapshot.Tasks),
			"evaluated":  len(snapshot.Tasks),
		},
		"metadata": map[string]interface{}{
			"timestamp": now.Format(time.RFC3339),
			"max":       maxInsights,
		},
	})
}

// HandleListRules handles GET /api/insights/rules
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules := h.service.Rules()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"rules": rules,
			"count": len(rules),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) parseMax(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("max")
	if raw == "" {
		return h.maxInsights, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.writeError(w, http.StatusBadRequest, "max must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	code := "INTERNAL_ERROR"
	if status == http.StatusBadRequest {
		code = "INVALID_QUERY"
	}
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
