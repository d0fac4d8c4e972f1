package di

import (
	"fmt"

	"github.com/aristath/dealdesk/internal/config"
	"github.com/aristath/dealdesk/internal/reliability"
	"github.com/aristath/dealdesk/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is not started here.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(container.EventManager, log)
	instances := &JobInstances{}

	instances.InsightRefresh = scheduler.NewInsightRefreshJob(container.DashboardService, cfg.MaxInsights, log)
	if err := sched.AddJob(cfg.InsightRefreshSchedule, instances.InsightRefresh); err != nil {
		return nil, fmt.Errorf("failed to register insight refresh job: %w", err)
	}

	instances.Maintenance = reliability.NewMaintenanceJob(container.DB, cfg.DataDir, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if container.BackupService != nil {
		instances.Backup = scheduler.NewBackupJob(container.BackupService, log)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	container.Scheduler = sched
	return instances, nil
}
