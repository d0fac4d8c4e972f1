package domain

// InsightType is the visual/semantic classification of an insight
type InsightType string

const (
	InsightTypeSuccess        InsightType = "success"
	InsightTypeWarning        InsightType = "warning"
	InsightTypeInfo           InsightType = "info"
	InsightTypeRecommendation InsightType = "recommendation"
)

// InsightPriority drives insight ranking
type InsightPriority string

const (
	InsightPriorityHigh   InsightPriority = "high"
	InsightPriorityMedium InsightPriority = "medium"
	InsightPriorityLow    InsightPriority = "low"
)

// priorityWeights is the ranking weight of each priority.
// Unknown priorities weigh 0 and sort last.
var priorityWeights = map[InsightPriority]int{
	InsightPriorityHigh:   3,
	InsightPriorityMedium: 2,
	InsightPriorityLow:    1,
}

// Weight returns the ranking weight of the priority (high=3, medium=2, low=1)
func (p InsightPriority) Weight() int {
	return priorityWeights[p]
}

// InsightCategory groups insights by business area
type InsightCategory string

const (
	InsightCategoryCustomerHealth       InsightCategory = "customer-health"
	InsightCategorySalesOpportunity     InsightCategory = "sales-opportunity"
	InsightCategoryTaskManagement       InsightCategory = "task-management"
	InsightCategoryPipelineOptimization InsightCategory = "pipeline-optimization"
)

// Insight is a single actionable finding produced by a rule.
// ID identifies the rule that produced it, not a record.
type Insight struct {
	ID          string          `json:"id"`
	Type        InsightType     `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    InsightPriority `json:"priority"`
	Category    InsightCategory `json:"category"`
	Action      string          `json:"action,omitempty"`
	Confidence  int             `json:"confidence"`
	Count       int             `json:"count"` // Records backing the insight, 0 for pure ratios
}

// Metrics holds pipeline roll-up values
type Metrics struct {
	TotalValue     float64 `json:"total_value"`
	WeightedValue  float64 `json:"weighted_value"`
	WonValue       float64 `json:"won_value"`
	ConversionRate float64 `json:"conversion_rate"` // Won share of ALL records, in percent
}
