package testing

import (
	"time"

	"github.com/aristath/dealdesk/internal/domain"
)

// FixedNow is the evaluation instant shared by fixture-based tests
var FixedNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// Day formats the calendar date offset days from FixedNow
func Day(offset int) string {
	return FixedNow.AddDate(0, 0, offset).Format(domain.DateLayout)
}

// NewTeamFixtures returns a two-person team
func NewTeamFixtures() []domain.TeamMember {
	return []domain.TeamMember{
		{ID: "member-ada", Name: "Ada"},
		{ID: "member-bo", Name: "Bo"},
	}
}

// NewOpportunityFixtures returns a small pipeline touching every stage.
// At FixedNow it fires stuck-opportunities, high-value-deals and
// overdue-opportunities.
func NewOpportunityFixtures() []domain.Opportunity {
	active := domain.OpportunityStatusActive
	recent := FixedNow.AddDate(0, 0, -2)

	return []domain.Opportunity{
		{ID: "opp-lead", Title: "Inbound lead", CustomerID: "cust-1", Stage: domain.StageLead, Status: active, Value: 10000, Probability: 10, ExpectedCloseDate: Day(30), LastActivityAt: recent, CreatedAt: recent, UpdatedAt: recent},
		{ID: "opp-qual", Title: "Qualified pilot", CustomerID: "cust-2", Stage: domain.StageQualification, Status: active, Value: 20000, Probability: 30, ExpectedCloseDate: Day(20), LastActivityAt: recent, CreatedAt: recent, UpdatedAt: recent},
		{ID: "opp-stale", Title: "Stale proposal", CustomerID: "cust-3", Stage: domain.StageProposal, Status: active, Value: 30000, Probability: 50, ExpectedCloseDate: Day(10), LastActivityAt: FixedNow.AddDate(0, 0, -20), CreatedAt: recent, UpdatedAt: recent},
		{ID: "opp-big", Title: "Enterprise deal", CustomerID: "cust-4", Stage: domain.StageNegotiation, Status: active, Value: 80000, Probability: 80, ExpectedCloseDate: Day(-2), LastActivityAt: recent, CreatedAt: recent, UpdatedAt: recent, Tags: []string{"enterprise"}},
		{ID: "opp-won", Title: "Renewal", CustomerID: "cust-5", Stage: domain.StageClosedWon, Status: active, Value: 25000, Probability: 100, ExpectedCloseDate: Day(-10), LastActivityAt: recent, CreatedAt: recent, UpdatedAt: recent},
		{ID: "opp-lost", Title: "Lost bid", CustomerID: "cust-6", Stage: domain.StageClosedLost, Status: domain.OpportunityStatusCancelled, Value: 10000, Probability: 0, ExpectedCloseDate: Day(-5), LastActivityAt: recent, CreatedAt: recent, UpdatedAt: recent},
	}
}

// NewTaskFixtures returns tasks for NewTeamFixtures. At FixedNow they fire
// overdue-tasks, unassigned-high-priority and upcoming-deadlines.
func NewTaskFixtures() []domain.Task {
	return []domain.Task{
		{ID: "task-late", Title: "Send quote", Priority: domain.TaskPriorityMedium, Status: domain.TaskStatusPending, DueDate: Day(-1), AssignedTo: "member-ada", CreatedAt: FixedNow},
		{ID: "task-orphan", Title: "Call back", Priority: domain.TaskPriorityHigh, Status: domain.TaskStatusPending, DueDate: Day(5), CreatedAt: FixedNow},
		{ID: "task-soon", Title: "Prepare demo", Priority: domain.TaskPriorityLow, Status: domain.TaskStatusInProgress, DueDate: Day(2), AssignedTo: "member-bo", CreatedAt: FixedNow},
		{ID: "task-done", Title: "Update notes", Priority: domain.TaskPriorityLow, Status: domain.TaskStatusCompleted, DueDate: Day(-3), AssignedTo: "member-bo", CreatedAt: FixedNow},
	}
}

// NewSnapshotFixture bundles the fixtures into one snapshot
func NewSnapshotFixture() domain.Snapshot {
	return domain.Snapshot{
		Opportunities: NewOpportunityFixtures(),
		Tasks:         NewTaskFixtures(),
		TeamMembers:   NewTeamFixtures(),
	}
}
