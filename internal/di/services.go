package di

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aristath/dealdesk/internal/config"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/aristath/dealdesk/internal/modules/crm"
	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"github.com/aristath/dealdesk/internal/modules/insights"
	"github.com/aristath/dealdesk/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event bus and every service on top of the
// record store. Demo data is seeded after the dashboard subscribes so the
// first dashboard already sees it.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container has no database")
	}

	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.CRMService = crm.NewService(container.DB.Conn(), container.EventManager, log)
	container.InsightsService = insights.NewService(log)
	container.DashboardService = dashboard.NewService(
		container.CRMService,
		container.InsightsService,
		container.EventManager,
		log,
	)
	container.DashboardService.SubscribeToEvents(container.EventBus)

	if cfg.SeedDemoData {
		seeded, err := container.CRMService.SeedDemoData(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		if seeded > 0 {
			log.Info().Int("records", seeded).Msg("Seeded demo data")
		}
	}

	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:    cfg.Backup.Bucket,
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}

		container.BackupService = reliability.NewBackupService(
			container.DB,
			store,
			filepath.Join(cfg.DataDir, "backups"),
			cfg.Backup.RetentionDays,
			container.EventManager,
			log,
		)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backups enabled")
	} else {
		log.Info().Msg("Backups disabled (BACKUP_S3_BUCKET not set)")
	}

	return nil
}
