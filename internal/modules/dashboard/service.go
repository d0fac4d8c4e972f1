package dashboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/aristath/dealdesk/internal/modules/filters"
	"github.com/aristath/dealdesk/internal/modules/insights"
	"github.com/aristath/dealdesk/internal/modules/pipeline"
	"github.com/aristath/dealdesk/internal/utils"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// slowBuildThreshold is the build time above which a warning is logged
const slowBuildThreshold = 500 * time.Millisecond

// maxMemoEntries bounds the memo; it is cleared wholesale when full
const maxMemoEntries = 64

// SnapshotSource provides the current records
type SnapshotSource interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// Service builds dashboards and memoizes them per input fingerprint.
// The memo never changes a result, it only skips recomputation.
type Service struct {
	source       SnapshotSource
	insights     *insights.Service
	eventManager *events.Manager
	notifier     *Notifier
	now          func() time.Time

	mu   sync.Mutex
	memo map[string]*Result

	log zerolog.Logger
}

// NewService creates a dashboard service
func NewService(source SnapshotSource, insightsService *insights.Service, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		source:       source,
		insights:     insightsService,
		eventManager: eventManager,
		notifier:     NewNotifier(),
		now:          time.Now,
		memo:         make(map[string]*Result),
		log:          log.With().Str("module", "dashboard").Logger(),
	}
}

// SetClock overrides the evaluation clock
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Notifier returns the change notifier live subscribers listen on
func (s *Service) Notifier() *Notifier {
	return s.notifier
}

// Current reads a snapshot from the source and builds the dashboard for it
func (s *Service) Current(ctx context.Context, filter Filter, maxInsights int) (*Result, error) {
	snapshot, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return s.Build(snapshot, filter, maxInsights)
}

// Build computes the dashboard for snapshot at the current instant.
// Insights always cover the full snapshot; buckets, summaries and
// FilteredMetrics cover the filtered subset.
func (s *Service) Build(snapshot domain.Snapshot, filter Filter, maxInsights int) (*Result, error) {
	now := s.now()

	key, err := fingerprint(snapshot, filter, now, maxInsights)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to fingerprint dashboard input, skipping memo")
	} else if cached := s.lookup(key); cached != nil {
		return cached, nil
	}

	timer := utils.NewTimer("dashboard_build", slowBuildThreshold, s.log)
	defer timer.Stop()

	opportunities := filters.ApplyOpportunityFilters(snapshot.Opportunities, filter.Opportunity)
	tasks := filters.ApplyTaskFilters(snapshot.Tasks, filter.Task)

	if filter.InsightID != "" {
		switch {
		case filters.IsOpportunityInsight(filter.InsightID):
			opportunities, err = filters.ApplyInsightFilter(opportunities, filter.InsightID, now)
		case filters.IsTaskInsight(filter.InsightID):
			tasks, err = filters.ApplyTaskInsightFilter(tasks, snapshot.TeamMembers, filter.InsightID, now)
		default:
			err = fmt.Errorf("%w: %s", filters.ErrUnknownInsight, filter.InsightID)
		}
		if err != nil {
			return nil, err
		}
	}

	buckets := pipeline.GroupByStage(opportunities)
	result := &Result{
		GeneratedAt:     now,
		Buckets:         buckets,
		Subtotals:       pipeline.StageSubtotals(buckets),
		Summaries:       pipeline.Summarize(opportunities),
		Metrics:         pipeline.ComputeMetrics(snapshot.Opportunities),
		FilteredMetrics: pipeline.ComputeMetrics(opportunities),
		WinRate:         insights.ClosedCohortWinRate(snapshot.Opportunities),
		DealSize:        pipeline.DealSizeStats(snapshot.Opportunities),
		Completion:      insights.TaskCompletionRate(snapshot.Tasks),
		Insights:        s.insights.OpportunityInsights(snapshot.Opportunities, now, maxInsights),
		TaskInsights:    s.insights.TaskInsights(snapshot.Tasks, snapshot.TeamMembers, now, maxInsights),
		Opportunities:   opportunities,
		Tasks:           tasks,
		Filter:          filter,
	}

	if key != "" {
		s.store(key, result)
	}

	s.log.Debug().
		Int("opportunities", len(opportunities)).
		Int("tasks", len(tasks)).
		Int("insights", len(result.Insights)).
		Int("task_insights", len(result.TaskInsights)).
		Msg("Dashboard built")

	return result, nil
}

// Invalidate drops every memoized result and wakes live subscribers
func (s *Service) Invalidate(reason string) {
	s.mu.Lock()
	dropped := len(s.memo)
	s.memo = make(map[string]*Result)
	s.mu.Unlock()

	s.log.Debug().Str("reason", reason).Int("dropped", dropped).Msg("Dashboard memo invalidated")
	s.notifier.Broadcast()

	if s.eventManager != nil {
		s.eventManager.Emit(events.DashboardUpdated, "dashboard", map[string]interface{}{
			"reason":  reason,
			"dropped": dropped,
		})
	}
}

// Refresh invalidates the memo and recomputes the default dashboard.
// Used by the daily job so date-based rules roll over at midnight.
func (s *Service) Refresh(ctx context.Context, reason string, maxInsights int) (*Result, error) {
	s.Invalidate(reason)

	result, err := s.Current(ctx, Filter{}, maxInsights)
	if err != nil {
		return nil, err
	}

	if s.eventManager != nil {
		s.eventManager.EmitTyped("dashboard", &events.InsightsRefreshedData{
			Reason:              reason,
			OpportunityInsights: len(result.Insights),
			TaskInsights:        len(result.TaskInsights),
		})
	}

	s.log.Info().
		Str("reason", reason).
		Int("insights", len(result.Insights)).
		Int("task_insights", len(result.TaskInsights)).
		Msg("Insights refreshed")

	return result, nil
}

// SubscribeToEvents invalidates the memo whenever records change
func (s *Service) SubscribeToEvents(bus *events.Bus) {
	bus.Subscribe(events.RecordsChanged, func(event *events.Event) {
		reason := string(event.Type)
		if data, ok := event.GetTypedData().(*events.RecordsChangedData); ok {
			reason = data.Kind + " " + data.Action
		}
		s.Invalidate(reason)
	})
}

// MemoSize returns the number of memoized results
func (s *Service) MemoSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memo)
}

func (s *Service) lookup(key string) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo[key]
}

func (s *Service) store(key string, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.memo) >= maxMemoEntries {
		s.memo = make(map[string]*Result)
	}
	s.memo[key] = result
}

// memoKey is everything a result depends on. Rules work at day granularity
// except the stale-activity check, so the instant is kept to the minute.
type memoKey struct {
	Snapshot    domain.Snapshot `msgpack:"snapshot"`
	Filter      Filter          `msgpack:"filter"`
	Instant     string          `msgpack:"instant"`
	MaxInsights int             `msgpack:"max_insights"`
}

func fingerprint(snapshot domain.Snapshot, filter Filter, now time.Time, maxInsights int) (string, error) {
	data, err := msgpack.Marshal(memoKey{
		Snapshot:    snapshot,
		Filter:      filter,
		Instant:     now.UTC().Truncate(time.Minute).Format(time.RFC3339),
		MaxInsights: maxInsights,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode dashboard input: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
