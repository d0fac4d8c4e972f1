package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/dealdesk/internal/database"
	"github.com/aristath/dealdesk/internal/modules/dashboard"
	"github.com/aristath/dealdesk/internal/scheduler"
)

// backupJobName is the scheduler name of the backup job
const backupJobName = "backup"

// JobRunner runs and reports on background jobs
type JobRunner interface {
	HasJob(name string) bool
	RunNow(name string) error
	Jobs() []scheduler.JobStatus
}

// SystemHandlers serves system status and job triggers
type SystemHandlers struct {
	db            *database.DB
	jobs          JobRunner
	dashboard     *dashboard.Service
	backupEnabled bool
	dataDir       string
	startedAt     time.Time
	log           zerolog.Logger
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(
	db *database.DB,
	jobs JobRunner,
	dashboardService *dashboard.Service,
	backupEnabled bool,
	dataDir string,
	log zerolog.Logger,
) *SystemHandlers {
	return &SystemHandlers{
		db:            db,
		jobs:          jobs,
		dashboard:     dashboardService,
		backupEnabled: backupEnabled,
		dataDir:       dataDir,
		startedAt:     time.Now(),
		log:           log.With().Str("handler", "system").Logger(),
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status          string                `json:"status"` // "healthy" or "degraded"
	StartedAt       string                `json:"started_at"`
	Uptime          string                `json:"uptime"`
	CPUPercent      float64               `json:"cpu_percent"`
	MemoryPercent   float64               `json:"memory_percent"`
	DiskFree        string                `json:"disk_free,omitempty"`
	Database        *database.Stats       `json:"database,omitempty"`
	DatabaseSize    string                `json:"database_size,omitempty"`
	Jobs            []scheduler.JobStatus `json:"jobs"`
	MemoEntries     int                   `json:"memo_entries"`
	LiveSubscribers int                   `json:"live_subscribers"`
	BackupsEnabled  bool                  `json:"backups_enabled"`
}

// HandleSystemStatus returns process, record store and job status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:         "healthy",
		StartedAt:      h.startedAt.Format(time.RFC3339),
		Uptime:         time.Since(h.startedAt).Round(time.Second).String(),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		Jobs:           h.jobs.Jobs(),
		BackupsEnabled: h.backupEnabled,
	}

	if usage, err := disk.Usage(h.dataDir); err == nil {
		response.DiskFree = humanize.Bytes(usage.Free)
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Record store health check failed")
		response.Status = "degraded"
	} else if stats, err := h.db.GetStats(); err == nil {
		response.Database = stats
		response.DatabaseSize = humanize.Bytes(uint64(stats.SizeBytes + stats.WALSizeBytes))
	} else {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
	}

	if h.dashboard != nil {
		response.MemoEntries = h.dashboard.MemoSize()
		response.LiveSubscribers = h.dashboard.Notifier().Count()
	}

	writeData(w, http.StatusOK, response, h.log)
}

// HandleJobsStatus returns the run history of every registered job
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.Jobs()
	writeData(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	}, h.log)
}

// HandleTriggerJob starts a registered job in the background
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, chi.URLParam(r, "name"))
}

// HandleTriggerBackup starts a backup in the background
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backupEnabled {
		writeError(w, http.StatusServiceUnavailable, "Backups are not configured", "BACKUP_DISABLED", h.log)
		return
	}
	h.trigger(w, backupJobName)
}

func (h *SystemHandlers) trigger(w http.ResponseWriter, name string) {
	if !h.jobs.HasJob(name) {
		writeError(w, http.StatusNotFound, "Unknown job: "+name, "NOT_FOUND", h.log)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	go func() {
		if err := h.jobs.RunNow(name); err != nil && !errors.Is(err, scheduler.ErrUnknownJob) {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		}
	}()

	writeData(w, http.StatusAccepted, map[string]string{
		"job":    name,
		"status": "triggered",
	}, h.log)
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the status call fast
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
