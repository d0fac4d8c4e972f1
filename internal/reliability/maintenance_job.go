package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/dealdesk/internal/database"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk space thresholds for the data directory
const (
	criticalFreeBytes = 500 * 1000 * 1000
	lowFreeBytes      = 5 * 1000 * 1000 * 1000
)

// MaintenanceJob runs routine record store upkeep: integrity check, WAL
// checkpoint, query planner statistics and a disk space check
type MaintenanceJob struct {
	db      *database.DB
	dataDir string
	timeout time.Duration
	log     zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job for db, whose files live in dataDir
func NewMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:      db,
		dataDir: dataDir,
		timeout: 5 * time.Minute,
		log:     log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job. A failed integrity check or critically
// low disk space is returned as an error; everything else is logged.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Str("database", j.db.Name()).Msg("CRITICAL: Integrity check failed")
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("WAL checkpoint failed")
	}

	if _, err := j.db.Conn().ExecContext(ctx, "PRAGMA optimize"); err != nil {
		j.log.Warn().Err(err).Str("database", j.db.Name()).Msg("PRAGMA optimize failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if stats, err := j.db.GetStats(); err == nil {
		j.log.Info().
			Str("size", humanize.Bytes(uint64(stats.SizeBytes))).
			Str("wal_size", humanize.Bytes(uint64(stats.WALSizeBytes))).
			Msg("Database size")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Maintenance completed successfully")

	return nil
}

// checkDiskSpace verifies the data directory has room to grow and to stage backups
func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return nil
	}

	free := humanize.Bytes(usage.Free)
	switch {
	case usage.Free < criticalFreeBytes:
		j.log.Error().Str("free", free).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %s free in %s", free, j.dataDir)
	case usage.Free < lowFreeBytes:
		j.log.Warn().Str("free", free).Float64("used_percent", usage.UsedPercent).Msg("Disk space running low")
	default:
		j.log.Debug().Str("free", free).Msg("Disk space check")
	}

	return nil
}
