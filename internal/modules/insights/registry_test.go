package insights

import (
	"errors"
	"testing"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRule is a mock implementation of Rule
type MockRule struct {
	mock.Mock
}

func (m *MockRule) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRule) Category() domain.InsightCategory {
	args := m.Called()
	return args.Get(0).(domain.InsightCategory)
}

func (m *MockRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Insight), args.Error(1)
}

func newMockRule(id string) *MockRule {
	m := new(MockRule)
	m.On("ID").Return(id)
	m.On("Category").Return(domain.InsightCategoryPipelineOptimization)
	return m
}

func firing(id string, priority domain.InsightPriority) *domain.Insight {
	return &domain.Insight{ID: id, Priority: priority}
}

// panicRule blows up on evaluation
type panicRule struct{}

func (panicRule) ID() string                       { return "panics" }
func (panicRule) Category() domain.InsightCategory { return domain.InsightCategoryTaskManagement }
func (panicRule) Evaluate(*EvaluationContext) (*domain.Insight, error) {
	var records []domain.Opportunity
	_ = records[3]
	return nil, nil
}

func TestRuleRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRuleRegistry("test", zerolog.Nop())

	first := newMockRule("first")
	second := newMockRule("second")
	registry.Register(first)
	registry.Register(second)

	rule, err := registry.Get("second")
	require.NoError(t, err)
	assert.Equal(t, "second", rule.ID())

	_, err = registry.Get("missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rule not found: missing")

	rules := registry.List()
	require.Len(t, rules, 2)
	assert.Equal(t, "first", rules[0].ID())
	assert.Equal(t, "second", rules[1].ID())
}

func TestRuleRegistry_ReplaceKeepsPosition(t *testing.T) {
	registry := NewRuleRegistry("test", zerolog.Nop())
	registry.Register(newMockRule("a"))
	registry.Register(newMockRule("b"))
	registry.Register(newMockRule("c"))

	replacement := newMockRule("b")
	replacement.On("Evaluate", mock.Anything).Return(firing("b", domain.InsightPriorityLow), nil)
	registry.Register(replacement)

	rules := registry.List()
	require.Len(t, rules, 3)
	assert.Same(t, replacement, rules[1])
}

func TestRuleRegistry_ListIsACopy(t *testing.T) {
	registry := NewRuleRegistry("test", zerolog.Nop())
	registry.Register(newMockRule("a"))

	rules := registry.List()
	rules[0] = newMockRule("tampered")

	assert.Equal(t, "a", registry.List()[0].ID())
}

func TestRuleRegistry_EvaluateIsolatesFailures(t *testing.T) {
	registry := NewRuleRegistry("test", zerolog.Nop())

	ok1 := newMockRule("ok-1")
	ok1.On("Evaluate", mock.Anything).Return(firing("ok-1", domain.InsightPriorityMedium), nil)

	broken := newMockRule("broken")
	broken.On("Evaluate", mock.Anything).Return(nil, errors.New("boom"))

	silent := newMockRule("silent")
	silent.On("Evaluate", mock.Anything).Return(nil, nil)

	ok2 := newMockRule("ok-2")
	ok2.On("Evaluate", mock.Anything).Return(firing("ok-2", domain.InsightPriorityHigh), nil)

	registry.Register(ok1)
	registry.Register(broken)
	registry.Register(panicRule{})
	registry.Register(silent)
	registry.Register(ok2)

	ctx := &EvaluationContext{Now: testNow}
	insights := registry.Evaluate(ctx)

	assert.Equal(t, []string{"ok-1", "ok-2"}, insightIDs(insights))
	ok1.AssertCalled(t, "Evaluate", ctx)
	broken.AssertCalled(t, "Evaluate", ctx)
	silent.AssertCalled(t, "Evaluate", ctx)
	ok2.AssertCalled(t, "Evaluate", ctx)
}

func TestEvaluateRule_RecoversPanic(t *testing.T) {
	insight, err := evaluateRule(panicRule{}, &EvaluationContext{Now: testNow})

	assert.Nil(t, insight)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in rule panics")
}

func TestBatteries_FixedOrder(t *testing.T) {
	ids := func(r *RuleRegistry) []string {
		out := []string{}
		for _, rule := range r.List() {
			out = append(out, rule.ID())
		}
		return out
	}

	assert.Equal(t, []string{
		RuleStuckOpportunities,
		RuleHighValueDeals,
		RuleLowProbabilityDeals,
		RuleOverdueOpportunities,
		RuleLowConversionRate,
		RuleHighConversionRate,
	}, ids(NewOpportunityRegistry(zerolog.Nop())))

	assert.Equal(t, []string{
		RuleOverdueTasks,
		RuleUnassignedHighPriority,
		RuleLowCompletionRate,
		RuleHighCompletionRate,
		RuleWorkloadImbalance,
		RuleUpcomingDeadlines,
	}, ids(NewTaskRegistry(zerolog.Nop())))
}
