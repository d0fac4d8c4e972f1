package filters

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/modules/insights"
)

// ErrUnknownInsight is returned when an insight ID has no record predicate
var ErrUnknownInsight = errors.New("unknown insight")

type opportunityPredicate func(o domain.Opportunity, now time.Time) bool

type taskPredicate func(t domain.Task, members map[string]bool, now time.Time) bool

// opportunityPredicates maps each opportunity rule to the predicate that backs it.
// The win-rate rules select the closed cohort they are computed over.
var opportunityPredicates = map[string]opportunityPredicate{
	insights.RuleStuckOpportunities: insights.IsStuck,
	insights.RuleHighValueDeals: func(o domain.Opportunity, _ time.Time) bool {
		return insights.IsHighValue(o)
	},
	insights.RuleLowProbabilityDeals: func(o domain.Opportunity, _ time.Time) bool {
		return insights.IsLowProbability(o)
	},
	insights.RuleOverdueOpportunities: insights.IsOverdue,
	insights.RuleLowConversionRate: func(o domain.Opportunity, _ time.Time) bool {
		return insights.IsClosed(o)
	},
	insights.RuleHighConversionRate: func(o domain.Opportunity, _ time.Time) bool {
		return insights.IsClosed(o)
	},
}

var taskPredicates = map[string]taskPredicate{
	insights.RuleOverdueTasks: func(t domain.Task, _ map[string]bool, now time.Time) bool {
		return insights.IsTaskOverdue(t, now)
	},
	insights.RuleUnassignedHighPriority: func(t domain.Task, _ map[string]bool, _ time.Time) bool {
		return insights.IsUnassignedHighPriority(t)
	},
	insights.RuleLowCompletionRate: func(t domain.Task, _ map[string]bool, _ time.Time) bool {
		return insights.CountsTowardCompletion(t)
	},
	insights.RuleHighCompletionRate: func(t domain.Task, _ map[string]bool, _ time.Time) bool {
		return insights.CountsTowardCompletion(t)
	},
	// Only tasks of known members contribute to the workload spread
	insights.RuleWorkloadImbalance: func(t domain.Task, members map[string]bool, _ time.Time) bool {
		return insights.IsAssignedOpen(t) && members[t.AssignedTo]
	},
	insights.RuleUpcomingDeadlines: func(t domain.Task, _ map[string]bool, now time.Time) bool {
		return insights.IsUpcomingDeadline(t, now)
	},
}

// IsOpportunityInsight reports whether id names an opportunity rule
func IsOpportunityInsight(id string) bool {
	_, ok := opportunityPredicates[id]
	return ok
}

// IsTaskInsight reports whether id names a task rule
func IsTaskInsight(id string) bool {
	_, ok := taskPredicates[id]
	return ok
}

// ApplyInsightFilter returns exactly the records that satisfy the predicate of
// the rule that produced insightID, evaluated at now
func ApplyInsightFilter(records []domain.Opportunity, insightID string, now time.Time) ([]domain.Opportunity, error) {
	pred, ok := opportunityPredicates[insightID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInsight, insightID)
	}

	out := make([]domain.Opportunity, 0, len(records))
	for _, o := range records {
		if pred(o, now) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ApplyTaskInsightFilter returns exactly the tasks that satisfy the predicate of
// the task rule that produced insightID
func ApplyTaskInsightFilter(tasks []domain.Task, members []domain.TeamMember, insightID string, now time.Time) ([]domain.Task, error) {
	pred, ok := taskPredicates[insightID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInsight, insightID)
	}

	known := make(map[string]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if pred(t, known, now) {
			out = append(out, t)
		}
	}
	return out, nil
}
