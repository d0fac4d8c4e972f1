package insights

import (
	"fmt"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

// Task rule IDs, in evaluation order
const (
	RuleOverdueTasks           = "overdue-tasks"
	RuleUnassignedHighPriority = "unassigned-high-priority"
	RuleLowCompletionRate      = "low-completion-rate"
	RuleHighCompletionRate     = "high-completion-rate"
	RuleWorkloadImbalance      = "workload-imbalance"
	RuleUpcomingDeadlines      = "upcoming-deadlines"
)

// OverdueTasksRule flags open tasks past their due date
type OverdueTasksRule struct {
	*BaseRule
}

// NewOverdueTasksRule creates the overdue task rule
func NewOverdueTasksRule(log zerolog.Logger) *OverdueTasksRule {
	return &OverdueTasksRule{BaseRule: NewBaseRule(log, RuleOverdueTasks)}
}

// ID returns the rule ID
func (r *OverdueTasksRule) ID() string { return RuleOverdueTasks }

// Category returns the insight category
func (r *OverdueTasksRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when at least one open task is overdue
func (r *OverdueTasksRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countTasks(ctx.Tasks, func(t domain.Task) bool {
		return IsTaskOverdue(t, ctx.Now)
	})
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleOverdueTasks,
		Type:        domain.InsightTypeWarning,
		Title:       "Overdue Tasks",
		Description: fmt.Sprintf("%d tasks are past their due date. Reschedule or reassign them to keep work on track.", n),
		Confidence:  95,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "View overdue tasks",
		Count:       n,
	}, nil
}

// UnassignedHighPriorityRule flags urgent work nobody owns
type UnassignedHighPriorityRule struct {
	*BaseRule
}

// NewUnassignedHighPriorityRule creates the unassigned high-priority rule
func NewUnassignedHighPriorityRule(log zerolog.Logger) *UnassignedHighPriorityRule {
	return &UnassignedHighPriorityRule{BaseRule: NewBaseRule(log, RuleUnassignedHighPriority)}
}

// ID returns the rule ID
func (r *UnassignedHighPriorityRule) ID() string { return RuleUnassignedHighPriority }

// Category returns the insight category
func (r *UnassignedHighPriorityRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when at least one open high or urgent task has no owner
func (r *UnassignedHighPriorityRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countTasks(ctx.Tasks, IsUnassignedHighPriority)
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleUnassignedHighPriority,
		Type:        domain.InsightTypeWarning,
		Title:       "Unassigned High-Priority Tasks",
		Description: fmt.Sprintf("%d high-priority tasks have no owner. Assign them to avoid delays.", n),
		Confidence:  90,
		Priority:    domain.InsightPriorityHigh,
		Category:    r.Category(),
		Action:      "Assign tasks",
		Count:       n,
	}, nil
}

// LowCompletionRateRule warns when the team completes too few tasks
type LowCompletionRateRule struct {
	*BaseRule
}

// NewLowCompletionRateRule creates the low completion-rate rule
func NewLowCompletionRateRule(log zerolog.Logger) *LowCompletionRateRule {
	return &LowCompletionRateRule{BaseRule: NewBaseRule(log, RuleLowCompletionRate)}
}

// ID returns the rule ID
func (r *LowCompletionRateRule) ID() string { return RuleLowCompletionRate }

// Category returns the insight category
func (r *LowCompletionRateRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when fewer than 60% of more than ten non-cancelled tasks are completed
func (r *LowCompletionRateRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	cr := TaskCompletionRate(ctx.Tasks)
	if cr.Total <= MinTasksForCompletionRate || cr.Rate >= LowCompletionThreshold {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleLowCompletionRate,
		Type:        domain.InsightTypeWarning,
		Title:       "Low Task Completion Rate",
		Description: fmt.Sprintf("Only %s of %d tasks have been completed. Review blockers and workload distribution.", formatPercent(cr.Rate), cr.Total),
		Confidence:  85,
		Priority:    domain.InsightPriorityMedium,
		Category:    r.Category(),
		Action:      "Review open tasks",
	}, nil
}

// HighCompletionRateRule celebrates a team that finishes its work
type HighCompletionRateRule struct {
	*BaseRule
}

// NewHighCompletionRateRule creates the high completion-rate rule
func NewHighCompletionRateRule(log zerolog.Logger) *HighCompletionRateRule {
	return &HighCompletionRateRule{BaseRule: NewBaseRule(log, RuleHighCompletionRate)}
}

// ID returns the rule ID
func (r *HighCompletionRateRule) ID() string { return RuleHighCompletionRate }

// Category returns the insight category
func (r *HighCompletionRateRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when more than 80% of more than ten non-cancelled tasks are completed
func (r *HighCompletionRateRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	cr := TaskCompletionRate(ctx.Tasks)
	if cr.Total <= MinTasksForCompletionRate || cr.Rate <= HighCompletionThreshold {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleHighCompletionRate,
		Type:        domain.InsightTypeSuccess,
		Title:       "Excellent Task Completion",
		Description: fmt.Sprintf("%s of %d tasks have been completed. The team is executing well.", formatPercent(cr.Rate), cr.Total),
		Confidence:  90,
		Priority:    domain.InsightPriorityLow,
		Category:    r.Category(),
		Action:      "View completed tasks",
	}, nil
}

// WorkloadImbalanceRule flags uneven distribution of open tasks
type WorkloadImbalanceRule struct {
	*BaseRule
}

// NewWorkloadImbalanceRule creates the workload imbalance rule
func NewWorkloadImbalanceRule(log zerolog.Logger) *WorkloadImbalanceRule {
	return &WorkloadImbalanceRule{BaseRule: NewBaseRule(log, RuleWorkloadImbalance)}
}

// ID returns the rule ID
func (r *WorkloadImbalanceRule) ID() string { return RuleWorkloadImbalance }

// Category returns the insight category
func (r *WorkloadImbalanceRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when the busiest and idlest members differ by more than five open tasks
func (r *WorkloadImbalanceRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	busiest, idlest, ok := WorkloadSpread(MemberWorkloads(ctx.TeamMembers, ctx.Tasks))
	if !ok {
		r.log.Debug().Int("members", len(ctx.TeamMembers)).Msg("Not enough team members to compare workloads")
		return nil, nil
	}

	spread := busiest.OpenTasks - idlest.OpenTasks
	if spread <= WorkloadImbalanceThreshold {
		return nil, nil
	}

	return &domain.Insight{
		ID:    RuleWorkloadImbalance,
		Type:  domain.InsightTypeRecommendation,
		Title: "Workload Imbalance",
		Description: fmt.Sprintf("%s has %d open tasks while %s has %d. Consider rebalancing assignments.",
			memberName(busiest.Member), busiest.OpenTasks, memberName(idlest.Member), idlest.OpenTasks),
		Confidence: 88,
		Priority:   domain.InsightPriorityMedium,
		Category:   r.Category(),
		Action:     "Rebalance workload",
		Count:      busiest.OpenTasks,
	}, nil
}

// UpcomingDeadlinesRule lists tasks due within three days
type UpcomingDeadlinesRule struct {
	*BaseRule
}

// NewUpcomingDeadlinesRule creates the upcoming deadlines rule
func NewUpcomingDeadlinesRule(log zerolog.Logger) *UpcomingDeadlinesRule {
	return &UpcomingDeadlinesRule{BaseRule: NewBaseRule(log, RuleUpcomingDeadlines)}
}

// ID returns the rule ID
func (r *UpcomingDeadlinesRule) ID() string { return RuleUpcomingDeadlines }

// Category returns the insight category
func (r *UpcomingDeadlinesRule) Category() domain.InsightCategory {
	return domain.InsightCategoryTaskManagement
}

// Evaluate fires when at least one open task is due today or in the next three days
func (r *UpcomingDeadlinesRule) Evaluate(ctx *EvaluationContext) (*domain.Insight, error) {
	n := countTasks(ctx.Tasks, func(t domain.Task) bool {
		return IsUpcomingDeadline(t, ctx.Now)
	})
	if n == 0 {
		return nil, nil
	}

	return &domain.Insight{
		ID:          RuleUpcomingDeadlines,
		Type:        domain.InsightTypeInfo,
		Title:       "Upcoming Deadlines",
		Description: fmt.Sprintf("%d tasks are due within the next %d days.", n, UpcomingDeadlineDays),
		Confidence:  92,
		Priority:    domain.InsightPriorityMedium,
		Category:    r.Category(),
		Action:      "View upcoming tasks",
		Count:       n,
	}, nil
}

func memberName(m domain.TeamMember) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
