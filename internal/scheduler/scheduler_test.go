package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/dealdesk/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	runs atomic.Int32
	fn   func() error
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run() error {
	j.runs.Add(1)
	if j.fn == nil {
		return nil
	}
	return j.fn()
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.JobStatusData
}

func (r *recordedEvents) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, e := range r.events {
		out = append(out, e.Job+":"+e.Status)
	}
	return out
}

func setupScheduler() (*Scheduler, *recordedEvents) {
	log := zerolog.Nop()
	bus := events.NewBus(log)
	recorded := &recordedEvents{}

	record := func(event *events.Event) {
		if data, ok := event.GetTypedData().(*events.JobStatusData); ok {
			recorded.mu.Lock()
			recorded.events = append(recorded.events, *data)
			recorded.mu.Unlock()
		}
	}
	bus.Subscribe(events.JobStarted, record)
	bus.Subscribe(events.JobCompleted, record)
	bus.Subscribe(events.JobFailed, record)

	return New(events.NewManager(bus, log), log), recorded
}

func TestScheduler_AddJob(t *testing.T) {
	s, _ := setupScheduler()

	require.NoError(t, s.AddJob("0 0 0 * * *", &funcJob{name: "daily"}))
	assert.Error(t, s.AddJob("0 0 0 * * *", &funcJob{name: "daily"}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("every tuesday", &funcJob{name: "bad"}))
	assert.Error(t, s.AddJob("0 0 * * *", &funcJob{name: "five-fields"}), "schedules need a seconds field")

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "daily", jobs[0].Name)
	assert.Equal(t, "0 0 0 * * *", jobs[0].Schedule)
}

func TestScheduler_RunNow(t *testing.T) {
	s, recorded := setupScheduler()
	job := &funcJob{name: "refresh"}
	require.NoError(t, s.AddJob("@hourly", job))

	require.NoError(t, s.RunNow("refresh"))
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, []string{"refresh:started", "refresh:completed"}, recorded.statuses())

	status := s.Jobs()[0]
	assert.Equal(t, 1, status.Runs)
	assert.Zero(t, status.Failures)
	assert.False(t, status.LastRun.IsZero())

	assert.True(t, s.HasJob("refresh"))
	assert.False(t, s.HasJob("missing"))

	err := s.RunNow("missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_FailingJobs(t *testing.T) {
	s, recorded := setupScheduler()
	require.NoError(t, s.AddJob("@hourly", &funcJob{name: "broken", fn: func() error {
		return errors.New("bucket unreachable")
	}}))
	require.NoError(t, s.AddJob("@hourly", &funcJob{name: "panicky", fn: func() error {
		panic("nil map")
	}}))

	assert.EqualError(t, s.RunNow("broken"), "bucket unreachable")

	err := s.RunNow("panicky")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in job panicky")

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "broken", jobs[0].Name)
	assert.Equal(t, 1, jobs[0].Failures)
	assert.Equal(t, "bucket unreachable", jobs[0].LastError)
	assert.Equal(t, 1, jobs[1].Failures)

	assert.Equal(t, []string{
		"broken:started", "broken:failed",
		"panicky:started", "panicky:failed",
	}, recorded.statuses())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s, _ := setupScheduler()
	job := &funcJob{name: "tick"}
	require.NoError(t, s.AddJob("* * * * * *", job))

	s.Start()
	defer s.Stop()

	assert.False(t, s.Jobs()[0].NextRun.IsZero())
	assert.Eventually(t, func() bool {
		return job.runs.Load() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
