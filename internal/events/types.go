// Package events provides the in-process event bus that keeps derived views in
// sync with the record store.
package events

// EventType represents different event types
type EventType string

const (
	// Record store changes
	RecordsChanged EventType = "RECORDS_CHANGED"

	// Derived views
	InsightsRefreshed EventType = "INSIGHTS_REFRESHED"
	DashboardUpdated  EventType = "DASHBOARD_UPDATED"

	// Maintenance
	BackupCompleted EventType = "BACKUP_COMPLETED"
	JobStarted      EventType = "JOB_STARTED"
	JobCompleted    EventType = "JOB_COMPLETED"
	JobFailed       EventType = "JOB_FAILED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// Record kinds carried by RecordsChanged events
const (
	KindOpportunity = "opportunity"
	KindTask        = "task"
	KindTeamMember  = "team_member"
)

// Record actions carried by RecordsChanged events
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionSeeded  = "seeded"
)
