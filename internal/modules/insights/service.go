package insights

import (
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

// RuleInfo describes a registered rule
type RuleInfo struct {
	ID       string                 `json:"id"`
	Category domain.InsightCategory `json:"category"`
	Battery  string                 `json:"battery"`
	Order    int                    `json:"order"`
}

// Service provides the main API for the insights module.
type Service struct {
	opportunityRules *RuleRegistry
	taskRules        *RuleRegistry
	log              zerolog.Logger
}

// NewService creates an insights service with both rule batteries registered
func NewService(log zerolog.Logger) *Service {
	return &Service{
		opportunityRules: NewOpportunityRegistry(log),
		taskRules:        NewTaskRegistry(log),
		log:              log.With().Str("module", "insights").Logger(),
	}
}

// OpportunityInsights evaluates the opportunity battery and returns the ranked,
// capped insights
func (s *Service) OpportunityInsights(records []domain.Opportunity, now time.Time, maxInsights int) []domain.Insight {
	ctx := &EvaluationContext{Now: now, Opportunities: records}
	raw := s.opportunityRules.Evaluate(ctx)
	ranked := Rank(raw, maxInsights)

	s.log.Debug().
		Int("records", len(records)).
		Int("fired", len(raw)).
		Int("returned", len(ranked)).
		Msg("Opportunity insights generated")

	return ranked
}

// TaskInsights evaluates the task battery and returns the ranked, capped insights
func (s *Service) TaskInsights(tasks []domain.Task, members []domain.TeamMember, now time.Time, maxInsights int) []domain.Insight {
	ctx := &EvaluationContext{Now: now, Tasks: tasks, TeamMembers: members}
	raw := s.taskRules.Evaluate(ctx)
	ranked := Rank(raw, maxInsights)

	s.log.Debug().
		Int("tasks", len(tasks)).
		Int("members", len(members)).
		Int("fired", len(raw)).
		Int("returned", len(ranked)).
		Msg("Task insights generated")

	return ranked
}

// Rules lists all registered rules, opportunity battery first, each in evaluation order
func (s *Service) Rules() []RuleInfo {
	infos := []RuleInfo{}
	for i, r := range s.opportunityRules.List() {
		infos = append(infos, RuleInfo{ID: r.ID(), Category: r.Category(), Battery: "opportunities", Order: i})
	}
	for i, r := range s.taskRules.List() {
		infos = append(infos, RuleInfo{ID: r.ID(), Category: r.Category(), Battery: "tasks", Order: i})
	}
	return infos
}

// OpportunityRegistry returns the opportunity rule registry for advanced usage
func (s *Service) OpportunityRegistry() *RuleRegistry {
	return s.opportunityRules
}

// TaskRegistry returns the task rule registry for advanced usage
func (s *Service) TaskRegistry() *RuleRegistry {
	return s.taskRules
}
