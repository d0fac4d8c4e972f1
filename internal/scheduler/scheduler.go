// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/dealdesk/internal/events"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the run history of one registered job
type JobStatus struct {
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule"`
	Runs         int       `json:"runs"`
	Failures     int       `json:"failures"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastDuration int64     `json:"last_duration_ms"`
	LastError    string    `json:"last_error,omitempty"`
	NextRun      time.Time `json:"next_run,omitempty"`
}

type jobEntry struct {
	job     Job
	entryID cron.EntryID
	status  JobStatus
	running sync.Mutex
}

// Scheduler manages background jobs
type Scheduler struct {
	cron         *cron.Cron
	eventManager *events.Manager

	mu   sync.RWMutex
	jobs map[string]*jobEntry

	log zerolog.Logger
}

// New creates a new scheduler. Schedules use six fields (seconds first).
func New(eventManager *events.Manager, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:         cron.New(cron.WithSeconds()),
		eventManager: eventManager,
		jobs:         make(map[string]*jobEntry),
		log:          log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 0 0 * * *"        - Midnight every day
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	entry := &jobEntry{
		job:    job,
		status: JobStatus{Name: job.Name(), Schedule: schedule},
	}

	id, err := s.cron.AddFunc(schedule, func() {
		_ = s.run(entry)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	entry.entryID = id
	s.jobs[job.Name()] = entry

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a registered job immediately (outside schedule)
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	entry, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.run(entry)
}

// HasJob reports whether a job with this name is registered
func (s *Scheduler) HasJob(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs[name]
	return ok
}

// Jobs returns the status of every registered job, sorted by name
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		status := entry.status
		status.NextRun = s.cron.Entry(entry.entryID).Next
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// run executes one job. Runs of the same job never overlap; a manual run
// waits for a scheduled one to finish.
func (s *Scheduler) run(entry *jobEntry) error {
	entry.running.Lock()
	defer entry.running.Unlock()

	name := entry.job.Name()
	s.log.Debug().Str("job", name).Msg("Running job")
	s.emit(&events.JobStatusData{Job: name, Status: "started"})

	start := time.Now()
	err := runSafely(entry.job)
	duration := time.Since(start)

	s.mu.Lock()
	entry.status.Runs++
	entry.status.LastRun = start
	entry.status.LastDuration = duration.Milliseconds()
	entry.status.LastError = ""
	if err != nil {
		entry.status.Failures++
		entry.status.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Msg("Job failed")
		s.emit(&events.JobStatusData{Job: name, Status: "failed", Error: err.Error(), DurationMs: duration.Milliseconds()})
		return err
	}

	s.log.Debug().Str("job", name).Dur("duration", duration).Msg("Job completed")
	s.emit(&events.JobStatusData{Job: name, Status: "completed", DurationMs: duration.Milliseconds()})
	return nil
}

func (s *Scheduler) emit(data *events.JobStatusData) {
	if s.eventManager != nil {
		s.eventManager.EmitTyped("scheduler", data)
	}
}

// runSafely turns a job panic into an error so one bad job can't stop cron
func runSafely(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", job.Name(), r)
		}
	}()
	return job.Run()
}
