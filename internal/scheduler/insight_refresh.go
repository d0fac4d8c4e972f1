package scheduler

import (
	"context"
	"time"

	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"github.com/rs/zerolog"
)

// InsightRefresher recomputes insights from the current records
type InsightRefresher interface {
	Refresh(ctx context.Context, reason string, maxInsights int) (*dashboard.Result, error)
}

// InsightRefreshJob drops memoized dashboards and recomputes insights. Run
// daily so date-based rules (overdue, upcoming, stale) roll over even when no
// record changes.
type InsightRefreshJob struct {
	refresher   InsightRefresher
	maxInsights int
	timeout     time.Duration
	log         zerolog.Logger
}

// NewInsightRefreshJob creates a new InsightRefreshJob
func NewInsightRefreshJob(refresher InsightRefresher, maxInsights int, log zerolog.Logger) *InsightRefreshJob {
	return &InsightRefreshJob{
		refresher:   refresher,
		maxInsights: maxInsights,
		timeout:     time.Minute,
		log:         log.With().Str("job", "insight_refresh").Logger(),
	}
}

// Name returns the job name
func (j *InsightRefreshJob) Name() string {
	return "insight_refresh"
}

// Run executes the insight refresh
func (j *InsightRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.refresher.Refresh(ctx, "scheduled", j.maxInsights)
	if err != nil {
		return err
	}

	j.log.Debug().
		Int("insights", len(result.Insights)).
		Int("task_insights", len(result.TaskInsights)).
		Msg("Insights refreshed")
	return nil
}
