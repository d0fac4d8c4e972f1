package insights

import (
	"fmt"
	"sync"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

// RuleRegistry holds an ordered battery of rules.
// Evaluation order is registration order; the ranker relies on it to break ties.
type RuleRegistry struct {
	rules []Rule
	index map[string]int
	mu    sync.RWMutex
	log   zerolog.Logger
}

// NewRuleRegistry creates an empty rule registry
func NewRuleRegistry(name string, log zerolog.Logger) *RuleRegistry {
	return &RuleRegistry{
		index: make(map[string]int),
		log:   log.With().Str("component", "rule_registry").Str("battery", name).Logger(),
	}
}

// Register appends a rule to the battery. Registering an ID twice replaces the
// earlier rule in place, keeping its position.
func (r *RuleRegistry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := rule.ID()
	if i, ok := r.index[id]; ok {
		r.rules[i] = rule
		r.log.Warn().Str("rule", id).Msg("Replaced already registered rule")
		return
	}

	r.index[id] = len(r.rules)
	r.rules = append(r.rules, rule)
	r.log.Debug().
		Str("rule", id).
		Str("category", string(rule.Category())).
		Msg("Registered rule")
}

// Get retrieves a rule by ID
func (r *RuleRegistry) Get(id string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("rule not found: %s", id)
	}
	return r.rules[i], nil
}

// List returns all rules in evaluation order
func (r *RuleRegistry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, len(r.rules))
	copy(rules, r.rules)
	return rules
}

// Evaluate runs every rule in order and returns the insights that fired, in
// evaluation order. A rule that errors or panics is logged and skipped; the
// remaining rules still run.
func (r *RuleRegistry) Evaluate(ctx *EvaluationContext) []domain.Insight {
	rules := r.List()
	insights := make([]domain.Insight, 0, len(rules))

	for _, rule := range rules {
		insight, err := evaluateRule(rule, ctx)
		if err != nil {
			r.log.Error().
				Err(err).
				Str("rule", rule.ID()).
				Msg("Rule failed")
			continue
		}
		if insight == nil {
			continue
		}

		r.log.Debug().
			Str("rule", rule.ID()).
			Str("priority", string(insight.Priority)).
			Int("count", insight.Count).
			Msg("Rule fired")

		insights = append(insights, *insight)
	}

	r.log.Debug().
		Int("rules", len(rules)).
		Int("insights", len(insights)).
		Msg("Rule evaluation complete")

	return insights
}

// evaluateRule runs a single rule, converting a panic into an error
func evaluateRule(rule Rule, ctx *EvaluationContext) (insight *domain.Insight, err error) {
	defer func() {
		if p := recover(); p != nil {
			insight = nil
			err = fmt.Errorf("panic in rule %s: %v", rule.ID(), p)
		}
	}()

	return rule.Evaluate(ctx)
}

// NewOpportunityRegistry creates the opportunity rule battery in its fixed order
func NewOpportunityRegistry(log zerolog.Logger) *RuleRegistry {
	registry := NewRuleRegistry("opportunities", log)

	registry.Register(NewStuckOpportunitiesRule(log))
	registry.Register(NewHighValueDealsRule(log))
	registry.Register(NewLowProbabilityDealsRule(log))
	registry.Register(NewOverdueOpportunitiesRule(log))
	registry.Register(NewLowConversionRateRule(log))
	registry.Register(NewHighConversionRateRule(log))

	return registry
}

// NewTaskRegistry creates the task rule battery in its fixed order
func NewTaskRegistry(log zerolog.Logger) *RuleRegistry {
	registry := NewRuleRegistry("tasks", log)

	registry.Register(NewOverdueTasksRule(log))
	registry.Register(NewUnassignedHighPriorityRule(log))
	registry.Register(NewLowCompletionRateRule(log))
	registry.Register(NewHighCompletionRateRule(log))
	registry.Register(NewWorkloadImbalanceRule(log))
	registry.Register(NewUpcomingDeadlinesRule(log))

	return registry
}
