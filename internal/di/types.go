// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/aristath/dealdesk/internal/database"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/aristath/dealdesk/internal/modules/crm"
	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"github.com/aristath/dealdesk/internal/modules/insights"
	"github.com/aristath/dealdesk/internal/reliability"
	"github.com/aristath/dealdesk/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the server and main.
type Container struct {
	// Record store
	DB *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	CRMService       *crm.Service
	InsightsService  *insights.Service
	DashboardService *dashboard.Service
	BackupService    *reliability.BackupService // nil when backups are not configured

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	InsightRefresh scheduler.Job
	Maintenance    scheduler.Job
	Backup         scheduler.Job // nil when backups are not configured
}

// Close stops the scheduler and closes the record store
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
