// Package pipeline groups opportunities by stage and computes roll-up metrics.
package pipeline

import (
	"github.com/aristath/dealdesk/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// StageBuckets maps every pipeline stage to the opportunities currently in it.
// All six stages are always present, possibly with an empty slice.
type StageBuckets map[domain.Stage][]domain.Opportunity

// StageSummary is the column header data for a single stage
type StageSummary struct {
	Stage         domain.Stage `json:"stage"`
	Label         string       `json:"label"`
	Count         int          `json:"count"`
	Value         float64      `json:"value"`
	WeightedValue float64      `json:"weighted_value"`
}

// SizeStats describes the distribution of deal values
type SizeStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// GroupByStage returns the subsequence of records in each stage, preserving
// relative order. Records with an unknown stage are not placed in any bucket.
func GroupByStage(records []domain.Opportunity) StageBuckets {
	buckets := make(StageBuckets, len(domain.AllStages()))
	for _, stage := range domain.AllStages() {
		buckets[stage] = []domain.Opportunity{}
	}

	for _, o := range records {
		if _, ok := buckets[o.Stage]; !ok {
			continue
		}
		buckets[o.Stage] = append(buckets[o.Stage], o)
	}

	return buckets
}

// ComputeMetrics rolls up value metrics over all records.
//
// ConversionRate is the won share of ALL records (not just closed ones) in
// percent. The closed-cohort win rate used by the insight rules is a different
// statistic.
func ComputeMetrics(records []domain.Opportunity) domain.Metrics {
	var metrics domain.Metrics
	won := 0

	for _, o := range records {
		metrics.TotalValue += o.Value
		metrics.WeightedValue += weightedValue(o)
		if o.Stage == domain.StageClosedWon {
			metrics.WonValue += o.Value
			won++
		}
	}

	if len(records) > 0 {
		metrics.ConversionRate = 100 * float64(won) / float64(len(records))
	}

	return metrics
}

// StageSubtotals returns the summed value of each bucket
func StageSubtotals(buckets StageBuckets) map[domain.Stage]float64 {
	subtotals := make(map[domain.Stage]float64, len(buckets))
	for _, stage := range domain.AllStages() {
		total := 0.0
		for _, o := range buckets[stage] {
			total += o.Value
		}
		subtotals[stage] = total
	}
	return subtotals
}

// Summarize returns one summary per stage in board order
func Summarize(records []domain.Opportunity) []StageSummary {
	buckets := GroupByStage(records)
	summaries := make([]StageSummary, 0, len(buckets))

	for _, stage := range domain.AllStages() {
		summary := StageSummary{
			Stage: stage,
			Label: stage.Label(),
			Count: len(buckets[stage]),
		}
		for _, o := range buckets[stage] {
			summary.Value += o.Value
			summary.WeightedValue += weightedValue(o)
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// DealSizeStats computes the mean and standard deviation of deal values.
// Empty input yields all zeros.
func DealSizeStats(records []domain.Opportunity) SizeStats {
	if len(records) == 0 {
		return SizeStats{}
	}

	values := make([]float64, len(records))
	maxValue := 0.0
	for i, o := range records {
		values[i] = o.Value
		if o.Value > maxValue {
			maxValue = o.Value
		}
	}

	stats := SizeStats{
		Mean:  stat.Mean(values, nil),
		Max:   maxValue,
		Count: len(values),
	}
	// Sample standard deviation is undefined for a single value
	if len(values) > 1 {
		stats.StdDev = stat.StdDev(values, nil)
	}

	return stats
}

func weightedValue(o domain.Opportunity) float64 {
	return o.Value * float64(o.Probability) / 100
}
