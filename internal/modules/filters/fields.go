// Package filters narrows CRM record sets for display, either by manual field
// criteria or by re-applying the predicate behind an insight.
package filters

import (
	"strings"

	"github.com/aristath/dealdesk/internal/domain"
)

// Value tiers used by the opportunity priority filter
const (
	HighPriorityValue   = 50000.0
	MediumPriorityValue = 10000.0
)

// ValueRange bounds an opportunity's value. Nil bounds are open.
type ValueRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsZero reports whether the range has no bounds
func (r ValueRange) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether v lies within the inclusive range
func (r ValueRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// OpportunityFilter holds the manual field criteria for opportunities.
// Empty criteria match everything.
type OpportunityFilter struct {
	Search     string                   `json:"search,omitempty"`
	Status     domain.OpportunityStatus `json:"status,omitempty"`
	Stage      domain.Stage             `json:"stage,omitempty"`
	Priority   domain.InsightPriority   `json:"priority,omitempty"`
	ValueRange ValueRange               `json:"value_range"`
}

// IsEmpty reports whether no criterion is set
func (f OpportunityFilter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" &&
		f.Status == "" &&
		f.Stage == "" &&
		f.Priority == "" &&
		f.ValueRange.IsZero()
}

// TaskFilter holds the manual field criteria for tasks
type TaskFilter struct {
	Search     string              `json:"search,omitempty"`
	Status     domain.TaskStatus   `json:"status,omitempty"`
	Priority   domain.TaskPriority `json:"priority,omitempty"`
	AssignedTo string              `json:"assigned_to,omitempty"`
}

// ValueTier classifies an opportunity by value: high above 50000, medium above
// 10000, low otherwise. Opportunities carry no priority of their own.
func ValueTier(o domain.Opportunity) domain.InsightPriority {
	switch {
	case o.Value > HighPriorityValue:
		return domain.InsightPriorityHigh
	case o.Value > MediumPriorityValue:
		return domain.InsightPriorityMedium
	default:
		return domain.InsightPriorityLow
	}
}

// ApplyOpportunityFilters returns the records matching every non-empty
// criterion, in input order
func ApplyOpportunityFilters(records []domain.Opportunity, f OpportunityFilter) []domain.Opportunity {
	search := normalize(f.Search)

	out := make([]domain.Opportunity, 0, len(records))
	for _, o := range records {
		if search != "" && !opportunityMatches(o, search) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Stage != "" && o.Stage != f.Stage {
			continue
		}
		if f.Priority != "" && ValueTier(o) != f.Priority {
			continue
		}
		if !f.ValueRange.Contains(o.Value) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ApplyTaskFilters returns the tasks matching every non-empty criterion, in input order
func ApplyTaskFilters(tasks []domain.Task, f TaskFilter) []domain.Task {
	search := normalize(f.Search)

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if search != "" && !containsFold(search, t.Title, t.Description) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.AssignedTo != "" && t.AssignedTo != f.AssignedTo {
			continue
		}
		out = append(out, t)
	}
	return out
}

func opportunityMatches(o domain.Opportunity, search string) bool {
	if containsFold(search, o.Title, o.Description, o.CustomerID) {
		return true
	}
	return containsFold(search, o.Tags...)
}

// containsFold reports whether any field contains the already-lowercased needle
func containsFold(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
