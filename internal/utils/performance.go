package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Timer measures one operation and logs its duration on Stop
type Timer struct {
	start     time.Time
	name      string
	threshold time.Duration
	log       zerolog.Logger
}

// NewTimer starts a timer. Durations above threshold are logged at warn
// level; a zero threshold never warns.
func NewTimer(name string, threshold time.Duration, log zerolog.Logger) *Timer {
	return &Timer{
		start:     time.Now(),
		name:      name,
		threshold: threshold,
		log:       log,
	}
}

// Stop logs the elapsed time and returns it
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)

	event := t.log.Debug()
	if t.threshold > 0 && duration > t.threshold {
		event = t.log.Warn().Dur("threshold", t.threshold)
	}
	event.
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Operation timed")

	return duration
}
