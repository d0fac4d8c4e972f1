package insights

import (
	"fmt"
	"math"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Opportunity rule IDs, in evaluation order
const (
	RuleStuckOpportunities   = "stuck-opportunities"
	RuleHighValueDeals       = "high-value-deals"
	RuleLowProbabilityDeals  = "low-probability-deals"
	RuleOverdueOpportunities = "overdue-opportunities"
	RuleLowConversionRate    = "low-conversion-rate"
	RuleHighConversionRate   = "high-conversion-rate"
)

// StuckOpportunitiesRule flags open deals with no activity for 14+ days
type StuckOpportunitiesRule struct {
	*BaseRule
}

// NewStuckOpportunitiesRule creates the stale-activity rule
func NewStuckOpportunitiesRule(log zerolog.Logger) *StuckOpportunitiesRule {
	return &StuckOpportunitiesRule{BaseRule: NewBaseRule(log, RuleStuckOpportunities)}
}

// ID returns the rule ID
func (r *StuckOpportunitiesRule) ID() string { return RuleStuckOpportunities }

// Category returns the insight category
func (r *StuckOpportunitiesRule) Category() domain.InsightCategory {
	return domain.InsightCategoryPipelineOptimization
}

// Evaluate fires when at least one open opportunity is stale
func (r *StuckOpportunitiesRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countOpportunities(ctx.Opportunities, func(o domain.Opportunity) bool {
		return IsStuck(o, ctx.Now)
	})
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleStuckOpportunities,
		Type:        domain.InsightTypeWarning,
		Title:       "Stale Opportunities",
		Description: fmt.Sprintf("%d opportunities haven't been updated in 14+ days. Follow up to keep these deals moving.", n),
		Confidence:  90,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "View stale deals",
		Count:       n,
	}, nil
}

// HighValueDealsRule highlights open deals worth more than 50000
type HighValueDealsRule struct {
	*BaseRule
}

// NewHighValueDealsRule creates the high-value rule
func NewHighValueDealsRule(log zerolog.Logger) *HighValueDealsRule {
	return &HighValueDealsRule{BaseRule: NewBaseRule(log, RuleHighValueDeals)}
}

// ID returns the rule ID
func (r *HighValueDealsRule) ID() string { return RuleHighValueDeals }

// Category returns the insight category
func (r *HighValueDealsRule) Category() domain.InsightCategory {
	return domain.InsightCategorySalesOpportunity
}

// Evaluate fires when at least one open deal exceeds the high-value threshold
func (r *HighValueDealsRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := 0
	total := 0.0
	for _, o := range ctx.Opportunities {
		if IsHighValue(o) {
			n++
			total += o.Value
		}
	}
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleHighValueDeals,
		Type:        domain.InsightTypeRecommendation,
		Title:       "High-Value Deals in Play",
		Description: fmt.Sprintf("%d high-value opportunities worth %s are open. Prioritize these deals for senior attention.", n, formatAmount(total)),
		Confidence:  95,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "View high-value deals",
		Count:       n,
	}, nil
}

// LowProbabilityDealsRule flags a pipeline carrying many unlikely deals
type LowProbabilityDealsRule struct {
	*BaseRule
}

// NewLowProbabilityDealsRule creates the low-probability rule
func NewLowProbabilityDealsRule(log zerolog.Logger) *LowProbabilityDealsRule {
	return &LowProbabilityDealsRule{BaseRule: NewBaseRule(log, RuleLowProbabilityDeals)}
}

// ID returns the rule ID
func (r *LowProbabilityDealsRule) ID() string { return RuleLowProbabilityDeals }

// Category returns the insight category
func (r *LowProbabilityDealsRule) Category() domain.InsightCategory {
	return domain.InsightCategoryPipelineOptimization
}

// Evaluate fires when more than three open deals are below 30% probability
func (r *LowProbabilityDealsRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countOpportunities(ctx.Opportunities, IsLowProbability)
	if n <= LowProbabilityMinCount {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleLowProbabilityDeals,
		Type:        domain.InsightTypeRecommendation,
		Title:       "Low-Probability Deals",
		Description: fmt.Sprintf("%d opportunities have less than %d%% probability of closing. Requalify them or move effort to stronger deals.", n, LowProbabilityThreshold),
		Confidence:  85,
		Priority:    domain.InsightPriorityMedium,
		Category:    r.Category(),
		Action:      "Review low-probability deals",
		Count:       n,
	}, nil
}

// OverdueOpportunitiesRule flags open deals past their expected close date
type OverdueOpportunitiesRule struct {
	*BaseRule
}

// NewOverdueOpportunitiesRule creates the overdue rule
func NewOverdueOpportunitiesRule(log zerolog.Logger) *OverdueOpportunitiesRule {
	return &OverdueOpportunitiesRule{BaseRule: NewBaseRule(log, RuleOverdueOpportunities)}
}

// ID returns the rule ID
func (r *OverdueOpportunitiesRule) ID() string { return RuleOverdueOpportunities }

// Category returns the insight category
func (r *OverdueOpportunitiesRule) Category() domain.InsightCategory {
	return domain.InsightCategorySalesOpportunity
}

// Evaluate fires when at least one open deal is past its expected close date
func (r *OverdueOpportunitiesRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countOpportunities(ctx.Opportunities, func(o domain.Opportunity) bool {
		return IsOverdue(o, ctx.Now)
	})
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleOverdueOpportunities,
		Type:        domain.InsightTypeWarning,
		Title:       "Overdue Opportunities",
		Description: fmt.Sprintf("%d opportunities are past their expected close date. Update the timeline or push for a decision.", n),
		Confidence:  92,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "View overdue deals",
		Count:       n,
	}, nil
}

// LowConversionRateRule warns when few closed deals are won
type LowConversionRateRule struct {
	*BaseRule
}

// NewLowConversionRateRule creates the low win-rate rule
func NewLowConversionRateRule(log zerolog.Logger) *LowConversionRateRule {
	return &LowConversionRateRule{BaseRule: NewBaseRule(log, RuleLowConversionRate)}
}

// ID returns the rule ID
func (r *LowConversionRateRule) ID() string { return RuleLowConversionRate }

// Category returns the insight category
func (r *LowConversionRateRule) Category() domain.InsightCategory {
	return domain.InsightCategorySalesOpportunity
}

// Evaluate fires when the closed-cohort win rate is below 25% over more than five closed deals
func (r *LowConversionRateRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	wr := ClosedCohortWinRate(ctx.Opportunities)
	if wr.Closed <= MinClosedDeals || wr.Rate >= LowWinRateThreshold {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleLowConversionRate,
		Type:        domain.InsightTypeWarning,
		Title:       "Low Win Rate",
		Description: fmt.Sprintf("Your win rate is %s across %d closed deals. Review lost deals for common objections.", formatPercent(wr.Rate), wr.Closed),
		Confidence:  88,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "Analyze lost deals",
	}, nil
}

// HighConversionRateRule celebrates a strong closed-cohort win rate
type HighConversionRateRule struct {
	*BaseRule
}

// NewHighConversionRateRule creates the high win-rate rule
func NewHighConversionRateRule(log zerolog.Logger) *HighConversionRateRule {
	return &HighConversionRateRule{BaseRule: NewBaseRule(log, RuleHighConversionRate)}
}

// ID returns the rule ID
func (r *HighConversionRateRule) ID() string { return RuleHighConversionRate }

// Category returns the insight category
func (r *HighConversionRateRule) Category() domain.InsightCategory {
	return domain.InsightCategorySalesOpportunity
}

// Evaluate fires when the closed-cohort win rate is above 35% over more than five closed deals
func (r *HighConversionRateRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	wr := ClosedCohortWinRate(ctx.Opportunities)
	if wr.Closed <= MinClosedDeals || wr.Rate <= HighWinRateThreshold {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleHighConversionRate,
		Type:        domain.InsightTypeSuccess,
		Title:       "Strong Win Rate",
		Description: fmt.Sprintf("Your win rate is %s across %d closed deals. Keep doing what works and share it with the team.", formatPercent(wr.Rate), wr.Closed),
		Confidence:  90,
		Priority:    domain.InsightPriorityLow,
		Category:    r.Category(),
		Action:      "View won deals",
	}, nil
}

// formatPercent renders a percentage with one decimal, e.g. 83.3%
func formatPercent(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate)
}

// formatAmount renders a currency-agnostic amount with thousands separators
func formatAmount(amount float64) string {
	return humanize.Comma(int64(math.Round(amount)))
}
