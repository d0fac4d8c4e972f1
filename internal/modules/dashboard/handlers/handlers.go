// Package handlers provides the HTTP and WebSocket handlers for the dashboard.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"github.com/aristath/dealdesk/internal/modules/filters"
	"github.com/rs/zerolog"
)

// Dashboard builds dashboard results and signals when they change
type Dashboard interface {
	Current(ctx context.Context, filter dashboard.Filter, maxInsights int) (*dashboard.Result, error)
	Notifier() *dashboard.Notifier
}

// Handler handles dashboard HTTP requests
type Handler struct {
	dashboard      Dashboard
	maxInsights    int
	originPatterns []string
	pingInterval   time.Duration
	log            zerolog.Logger
}

// NewHandler creates a new dashboard handler. maxInsights is used when the
// request has no ?max= parameter.
func NewHandler(d Dashboard, maxInsights int, log zerolog.Logger) *Handler {
	return &Handler{
		dashboard:    d,
		maxInsights:  maxInsights,
		pingInterval: 30 * time.Second,
		log:          log.With().Str("handler", "dashboard").Logger(),
	}
}

// SetOriginPatterns sets the cross-origin hosts allowed to open the live socket
func (h *Handler) SetOriginPatterns(patterns []string) {
	h.originPatterns = patterns
}

// HandleGetDashboard handles GET /api/dashboard
func (h *Handler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	filter, maxInsights, err := h.parseRequest(r)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	result, err := h.dashboard.Current(r.Context(), filter, maxInsights)
	if err != nil {
		h.writeRequestError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// parseRequest reads the opportunity filters, task filters (task_ prefix),
// insight and max from the query string
func (h *Handler) parseRequest(r *http.Request) (dashboard.Filter, int, error) {
	query := r.URL.Query()

	opportunityFilter, err := filters.ParseOpportunityQuery(query)
	if err != nil {
		return dashboard.Filter{}, 0, err
	}
	taskFilter, err := filters.ParseTaskQuery(query, "task_")
	if err != nil {
		return dashboard.Filter{}, 0, err
	}

	filter := dashboard.Filter{
		Opportunity: opportunityFilter,
		Task:        taskFilter,
		InsightID:   query.Get("insight"),
	}
	if filter.InsightID != "" && !filters.IsOpportunityInsight(filter.InsightID) && !filters.IsTaskInsight(filter.InsightID) {
		return filter, 0, filters.ErrUnknownInsight
	}

	maxInsights := h.maxInsights
	if raw := query.Get("max"); raw != "" {
		maxInsights, err = strconv.Atoi(raw)
		if err != nil || maxInsights < 0 {
			return filter, 0, errInvalidMax
		}
	}

	return filter, maxInsights, nil
}

var errInvalidMax = errors.New("max must be a non-negative integer")

func envelope(result *dashboard.Result) map[string]interface{} {
	return map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func errorBody(err error) (int, map[string]interface{}) {
	status, code := http.StatusInternalServerError, "INTERNAL_ERROR"
	message := "Internal server error"

	switch {
	case errors.Is(err, filters.ErrUnknownInsight):
		status, code, message = http.StatusBadRequest, "UNKNOWN_INSIGHT", err.Error()
	case errors.Is(err, filters.ErrInvalidQuery), errors.Is(err, errInvalidMax):
		status, code, message = http.StatusBadRequest, "INVALID_QUERY", err.Error()
	}

	return status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	}
}

func (h *Handler) writeRequestError(w http.ResponseWriter, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Failed to build dashboard")
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
