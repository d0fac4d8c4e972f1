// Package dashboard assembles the pipeline view: stage buckets, metrics over the
// full and the filtered record set, and the ranked insights.
package dashboard

import (
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/modules/filters"
	"github.com/aristath/dealdesk/internal/modules/insights"
	"github.com/aristath/dealdesk/internal/modules/pipeline"
)

// Filter is the current view selection
type Filter struct {
	Opportunity filters.OpportunityFilter `json:"opportunity" msgpack:"opportunity"`
	Task        filters.TaskFilter        `json:"task" msgpack:"task"`
	// InsightID narrows opportunities or tasks to the records behind one insight
	InsightID string `json:"insight_id,omitempty" msgpack:"insight_id"`
}

// Result is one computed dashboard
type Result struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	Buckets         pipeline.StageBuckets    `json:"buckets"`
	Subtotals       map[domain.Stage]float64 `json:"subtotals"`
	Summaries       []pipeline.StageSummary  `json:"summaries"`
	Metrics         domain.Metrics           `json:"metrics"`
	FilteredMetrics domain.Metrics           `json:"filtered_metrics"`
	WinRate         insights.WinRate         `json:"win_rate"`
	DealSize        pipeline.SizeStats       `json:"deal_size"`
	Completion      insights.CompletionRate  `json:"completion"`
	Insights        []domain.Insight         `json:"insights"`
	TaskInsights    []domain.Insight         `json:"task_insights"`
	Opportunities   []domain.Opportunity     `json:"opportunities"`
	Tasks           []domain.Task            `json:"tasks"`
	Filter          Filter                   `json:"filter"`
}
