package scheduler

import (
	"context"
	"time"

	"github.com/aristath/dealdesk/internal/reliability"
	"github.com/rs/zerolog"
)

// Backupper creates and uploads a record store backup
type Backupper interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupResult, error)
}

// BackupJob uploads a backup of the record store
type BackupJob struct {
	backupper Backupper
	timeout   time.Duration
	log       zerolog.Logger
}

// NewBackupJob creates a new BackupJob
func NewBackupJob(backupper Backupper, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backupper: backupper,
		timeout:   15 * time.Minute,
		log:       log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.backupper.CreateAndUpload(ctx)
	if err != nil {
		return err
	}

	j.log.Debug().Str("key", result.Key).Msg("Backup job finished")
	return nil
}
