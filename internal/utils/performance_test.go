package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	tests := []struct {
		name      string
		threshold time.Duration
		wantLevel string
	}{
		{"no threshold logs debug", 0, `"level":"debug"`},
		{"under threshold logs debug", time.Hour, `"level":"debug"`},
		{"over threshold warns", time.Nanosecond, `"level":"warn"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf).Level(zerolog.DebugLevel)

			timer := NewTimer("dashboard_build", tt.threshold, log)
			time.Sleep(time.Millisecond)
			duration := timer.Stop()

			assert.GreaterOrEqual(t, duration, time.Millisecond)
			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), `"operation":"dashboard_build"`)
		})
	}
}
