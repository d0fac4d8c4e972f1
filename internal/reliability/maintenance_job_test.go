package reliability

import (
	"path/filepath"
	"testing"

	testutil "github.com/aristath/dealdesk/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMaintenanceJob_Name(t *testing.T) {
	job := &MaintenanceJob{log: zerolog.Nop()}
	assert.Equal(t, "maintenance", job.Name())
}

func TestMaintenanceJob_Run(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "crm")
	defer cleanup()

	job := NewMaintenanceJob(db, filepath.Dir(db.Path()), zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestMaintenanceJob_RunOnClosedDatabase(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "crm")
	cleanup()

	job := NewMaintenanceJob(db, filepath.Dir(db.Path()), zerolog.Nop())
	assert.Error(t, job.Run())
}
