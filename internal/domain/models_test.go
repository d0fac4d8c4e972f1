package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllStages_Order(t *testing.T) {
	stages := AllStages()

	assert.Equal(t, []Stage{
		StageLead,
		StageQualification,
		StageProposal,
		StageNegotiation,
		StageClosedWon,
		StageClosedLost,
	}, stages)

	// Mutating the copy must not affect later callers
	stages[0] = StageClosedLost
	assert.Equal(t, StageLead, AllStages()[0])
}

func TestStage_IsTerminal(t *testing.T) {
	tests := []struct {
		stage    Stage
		terminal bool
	}{
		{StageLead, false},
		{StageQualification, false},
		{StageProposal, false},
		{StageNegotiation, false},
		{StageClosedWon, true},
		{StageClosedLost, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.stage.IsTerminal())
			assert.Equal(t, !tt.terminal, Opportunity{Stage: tt.stage}.IsOpen())
			assert.True(t, tt.stage.IsValid())
		})
	}

	assert.False(t, Stage("won").IsValid())
	assert.Equal(t, "Closed Won", StageClosedWon.Label())
	assert.Equal(t, "mystery", Stage("mystery").Label())
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusCancelled.IsTerminal())
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusInProgress.IsTerminal())
	assert.False(t, TaskStatusOnHold.IsTerminal())

	assert.True(t, Task{Status: TaskStatusOnHold}.IsOpen())
	assert.False(t, Task{}.IsAssigned())
	assert.True(t, Task{AssignedTo: "m1"}.IsAssigned())
}

func TestInsightPriority_Weight(t *testing.T) {
	assert.Equal(t, 3, InsightPriorityHigh.Weight())
	assert.Equal(t, 2, InsightPriorityMedium.Weight())
	assert.Equal(t, 1, InsightPriorityLow.Weight())
	assert.Equal(t, 0, InsightPriority("critical").Weight())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{"calendar date", "2026-03-15", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"rfc3339 truncated", "2026-03-15T18:30:00Z", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"surrounding spaces", " 2026-03-15 ", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "next tuesday", time.Time{}, false},
		{"impossible day", "2026-02-31", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 10, 16, 15, 45, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysUntil(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 3, DaysUntil(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, -1, DaysUntil(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), now))
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, OpportunityStatusOnHold.IsValid())
	assert.False(t, OpportunityStatus("archived").IsValid())
	assert.True(t, TaskPriorityUrgent.IsValid())
	assert.False(t, TaskPriority("asap").IsValid())
	assert.True(t, TaskStatusOnHold.IsValid())
	assert.False(t, TaskStatus("done").IsValid())
}

func TestStartOfDay_UsesLocalCalendarDay(t *testing.T) {
	athens := time.FixedZone("EEST", 3*60*60)
	lateEvening := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 10, 17, 1, 15, 0, 0, athens)

	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), StartOfDay(lateEvening))
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), StartOfDay(earlyMorning))
	assert.Equal(t, time.UTC, StartOfDay(earlyMorning).Location())
}
