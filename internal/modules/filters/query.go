package filters

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/aristath/dealdesk/internal/domain"
)

// ErrInvalidQuery is returned when a filter query parameter cannot be parsed
var ErrInvalidQuery = errors.New("invalid filter query")

// ParseOpportunityQuery reads search, status, stage, priority, min_value and
// max_value from query parameters
func ParseOpportunityQuery(values url.Values) (OpportunityFilter, error) {
	filter := OpportunityFilter{
		Search:   strings.TrimSpace(values.Get("search")),
		Status:   domain.OpportunityStatus(values.Get("status")),
		Stage:    domain.Stage(values.Get("stage")),
		Priority: domain.InsightPriority(values.Get("priority")),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, fmt.Errorf("%w: unknown status %q", ErrInvalidQuery, filter.Status)
	}
	if filter.Stage != "" && !filter.Stage.IsValid() {
		return filter, fmt.Errorf("%w: unknown stage %q", ErrInvalidQuery, filter.Stage)
	}
	switch filter.Priority {
	case "", domain.InsightPriorityHigh, domain.InsightPriorityMedium, domain.InsightPriorityLow:
	default:
		return filter, fmt.Errorf("%w: unknown priority %q", ErrInvalidQuery, filter.Priority)
	}

	var err error
	if filter.ValueRange.Min, err = parseBound(values, "min_value"); err != nil {
		return filter, err
	}
	if filter.ValueRange.Max, err = parseBound(values, "max_value"); err != nil {
		return filter, err
	}

	return filter, nil
}

// ParseTaskQuery reads search, status, priority and assigned_to, each
// optionally prefixed (the dashboard uses "task_" so the names don't collide
// with the opportunity filter)
func ParseTaskQuery(values url.Values, prefix string) (TaskFilter, error) {
	filter := TaskFilter{
		Search:     strings.TrimSpace(values.Get(prefix + "search")),
		Status:     domain.TaskStatus(values.Get(prefix + "status")),
		Priority:   domain.TaskPriority(values.Get(prefix + "priority")),
		AssignedTo: values.Get(prefix + "assigned_to"),
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, fmt.Errorf("%w: unknown task status %q", ErrInvalidQuery, filter.Status)
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return filter, fmt.Errorf("%w: unknown task priority %q", ErrInvalidQuery, filter.Priority)
	}

	return filter, nil
}

func parseBound(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidQuery, key)
	}
	return &v, nil
}
