package insights

import (
	"testing"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_OpportunityInsights(t *testing.T) {
	service := NewService(zerolog.Nop())

	var records []domain.Opportunity
	for _, id := range []string{"a", "b", "c", "d"} {
		o := newOpportunity(id, domain.StageLead)
		o.Probability = 5
		o.Value = 80000
		o.ExpectedCloseDate = dateIn(-3)
		o.LastActivityAt = daysAgo(21)
		records = append(records, o)
	}
	records = append(records, closedDeals(6, 0)...)

	// High-priority insights come first, in evaluation order.
	ranked := service.OpportunityInsights(records, testNow, DefaultMaxInsights)
	assert.Equal(t, []string{
		RuleStuckOpportunities,
		RuleHighValueDeals,
		RuleOverdueOpportunities,
		RuleLowProbabilityDeals,
		RuleHighConversionRate,
	}, insightIDs(ranked))

	assert.Len(t, service.OpportunityInsights(records, testNow, 2), 2)
	assert.Empty(t, service.OpportunityInsights(records, testNow, 0))
}

func TestService_TaskInsights(t *testing.T) {
	service := NewService(zerolog.Nop())

	late := newTask("late", domain.TaskStatusPending)
	late.DueDate = dateIn(-1)
	soon := newTask("soon", domain.TaskStatusPending)
	soon.DueDate = dateIn(2)

	ranked := service.TaskInsights([]domain.Task{soon, late}, nil, testNow, DefaultMaxInsights)
	assert.Equal(t, []string{RuleOverdueTasks, RuleUpcomingDeadlines}, insightIDs(ranked))
}

func TestService_Rules(t *testing.T) {
	service := NewService(zerolog.Nop())

	rules := service.Rules()
	require.Len(t, rules, 12)

	assert.Equal(t, RuleStuckOpportunities, rules[0].ID)
	assert.Equal(t, "opportunities", rules[0].Battery)
	assert.Equal(t, 0, rules[0].Order)

	assert.Equal(t, RuleUpcomingDeadlines, rules[11].ID)
	assert.Equal(t, "tasks", rules[11].Battery)
	assert.Equal(t, 5, rules[11].Order)
	assert.Equal(t, domain.InsightCategoryTaskManagement, rules[11].Category)
}
