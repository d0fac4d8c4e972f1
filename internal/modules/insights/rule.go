// Package insights evaluates heuristic rules against CRM records and ranks the
// resulting insights.
package insights

import (
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

// EvaluationContext is the snapshot a rule battery runs against
type EvaluationContext struct {
	Now           time.Time
	Opportunities []domain.Opportunity
	Tasks         []domain.Task
	TeamMembers   []domain.TeamMember
}

// NewEvaluationContext builds a context from a snapshot at the given instant
func NewEvaluationContext(snapshot domain.Snapshot, now time.Time) *EvaluationContext {
	return &EvaluationContext{
		Now:           now,
		Opportunities: snapshot.Opportunities,
		Tasks:         snapshot.Tasks,
		TeamMembers:   snapshot.TeamMembers,
	}
}

// Rule is the interface every insight rule implements.
type Rule interface {
	// ID returns the stable identifier of the rule. It doubles as the insight ID.
	ID() string

	// Category returns the business area the rule reports on.
	Category() domain.InsightCategory

	// Evaluate returns the insight produced by the rule, or nil when the rule
	// does not fire.
	Evaluate(ctx *EvaluationContext) (*domain.Insight, error)
}

// BaseRule provides the logger shared by all rules
type BaseRule struct {
	log zerolog.Logger
}

// NewBaseRule creates a base rule with a rule-scoped logger
func NewBaseRule(log zerolog.Logger, id string) *BaseRule {
	return &BaseRule{
		log: log.With().Str("rule", id).Logger(),
	}
}

// countOpportunities counts records matching pred
func countOpportunities(records []domain.Opportunity, pred func(domain.Opportunity) bool) int {
	n := 0
	for _, o := range records {
		if pred(o) {
			n++
		}
	}
	return n
}

// countTasks counts tasks matching pred
func countTasks(tasks []domain.Task, pred func(domain.Task) bool) int {
	n := 0
	for _, t := range tasks {
		if pred(t) {
			n++
		}
	}
	return n
}
