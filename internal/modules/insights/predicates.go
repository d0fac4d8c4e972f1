package insights

import (
	"time"

	"github.com/aristath/dealdesk/internal/domain"
)

// Rule thresholds. Changing any of these changes which insights fire.
const (
	StaleActivityThreshold     = 14 * 24 * time.Hour
	HighValueThreshold         = 50000.0
	LowProbabilityThreshold    = 30
	LowProbabilityMinCount     = 3 // Fires when count > 3
	MinClosedDeals             = 5 // Win-rate rules need more than 5 closed deals
	LowWinRateThreshold        = 25.0
	HighWinRateThreshold       = 35.0
	MinTasksForCompletionRate  = 10 // Completion-rate rules need more than 10 non-cancelled tasks
	LowCompletionThreshold     = 60.0
	HighCompletionThreshold    = 80.0
	WorkloadImbalanceThreshold = 5
	UpcomingDeadlineDays       = 3
)

// IsStuck reports whether an open opportunity has had no activity for more
// than 14 days. An unknown LastActivityAt is never stuck.
func IsStuck(o domain.Opportunity, now time.Time) bool {
	if !o.IsOpen() || o.LastActivityAt.IsZero() {
		return false
	}
	return now.Sub(o.LastActivityAt) > StaleActivityThreshold
}

// IsHighValue reports whether an open opportunity is worth more than 50000
func IsHighValue(o domain.Opportunity) bool {
	return o.IsOpen() && o.Value > HighValueThreshold
}

// IsLowProbability reports whether an open opportunity has less than 30% probability
func IsLowProbability(o domain.Opportunity) bool {
	return o.IsOpen() && o.Probability < LowProbabilityThreshold
}

// IsOverdue reports whether an open opportunity's expected close day is before
// today. Malformed or missing dates are not overdue.
func IsOverdue(o domain.Opportunity, now time.Time) bool {
	if !o.IsOpen() {
		return false
	}
	closeDate, ok := domain.ParseDate(o.ExpectedCloseDate)
	if !ok {
		return false
	}
	return domain.DaysUntil(closeDate, now) < 0
}

// IsClosed reports whether the opportunity belongs to the closed cohort
func IsClosed(o domain.Opportunity) bool {
	return o.Stage.IsTerminal()
}

// IsTaskOverdue reports whether an open task's due day is before today
func IsTaskOverdue(t domain.Task, now time.Time) bool {
	if !t.IsOpen() {
		return false
	}
	due, ok := domain.ParseDate(t.DueDate)
	if !ok {
		return false
	}
	return domain.DaysUntil(due, now) < 0
}

// IsUnassignedHighPriority reports whether an open high or urgent task has no owner
func IsUnassignedHighPriority(t domain.Task) bool {
	if !t.IsOpen() || t.IsAssigned() {
		return false
	}
	return t.Priority == domain.TaskPriorityHigh || t.Priority == domain.TaskPriorityUrgent
}

// IsUpcomingDeadline reports whether an open task is due today or within the next 3 days
func IsUpcomingDeadline(t domain.Task, now time.Time) bool {
	if !t.IsOpen() {
		return false
	}
	due, ok := domain.ParseDate(t.DueDate)
	if !ok {
		return false
	}
	days := domain.DaysUntil(due, now)
	return days >= 0 && days <= UpcomingDeadlineDays
}

// CountsTowardCompletion reports whether a task is part of the completion-rate
// denominator. Cancelled tasks are excluded.
func CountsTowardCompletion(t domain.Task) bool {
	return t.Status != domain.TaskStatusCancelled
}

// IsAssignedOpen reports whether an open task counts toward its owner's workload
func IsAssignedOpen(t domain.Task) bool {
	return t.IsOpen() && t.IsAssigned()
}
