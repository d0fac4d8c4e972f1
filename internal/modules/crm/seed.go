package crm

import (
	"context"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/google/uuid"
)

type demoOpportunity struct {
	customer    string
	title       string
	stage       domain.Stage
	status      domain.OpportunityStatus
	value       float64
	probability int
	closeIn     int // days from today
	idleDays    int // days since last activity
	tags        []string
}

type demoTask struct {
	title    string
	priority domain.TaskPriority
	status   domain.TaskStatus
	dueIn    *int
	assignee int // index into demoTeam, -1 for unassigned
}

var demoTeam = []string{"Maria Lopez", "James Carter", "Aiko Tanaka", "Samuel Okoye"}

var demoOpportunities = []demoOpportunity{
	{"northwind", "Northwind ERP rollout", domain.StageNegotiation, domain.OpportunityStatusActive, 120000, 70, 12, 2, []string{"enterprise"}},
	{"contoso", "Contoso support renewal", domain.StageProposal, domain.OpportunityStatusActive, 45000, 60, -4, 21, []string{"renewal"}},
	{"fabrikam", "Fabrikam analytics pilot", domain.StageQualification, domain.OpportunityStatusActive, 18000, 25, 30, 3, nil},
	{"tailspin", "Tailspin fleet tracking", domain.StageLead, domain.OpportunityStatusActive, 9000, 10, 45, 16, []string{"inbound"}},
	{"adatum", "Adatum security audit", domain.StageLead, domain.OpportunityStatusOnHold, 6500, 15, 60, 5, nil},
	{"litware", "Litware data migration", domain.StageProposal, domain.OpportunityStatusActive, 72000, 45, -1, 1, []string{"enterprise"}},
	{"proseware", "Proseware onboarding", domain.StageQualification, domain.OpportunityStatusActive, 12000, 20, 20, 8, nil},
	{"wingtip", "Wingtip POS upgrade", domain.StageClosedWon, domain.OpportunityStatusActive, 34000, 100, -20, 20, nil},
	{"woodgrove", "Woodgrove compliance suite", domain.StageClosedWon, domain.OpportunityStatusActive, 58000, 100, -35, 35, []string{"enterprise"}},
	{"alpine", "Alpine ski rental portal", domain.StageClosedLost, domain.OpportunityStatusCancelled, 15000, 0, -15, 15, nil},
	{"coho", "Coho winery e-commerce", domain.StageClosedWon, domain.OpportunityStatusActive, 22000, 100, -8, 8, nil},
	{"lucerne", "Lucerne publishing CMS", domain.StageClosedLost, domain.OpportunityStatusActive, 27000, 0, -40, 40, nil},
}

func days(n int) *int { return &n }

var demoTasks = []demoTask{
	{"Send revised Northwind quote", domain.TaskPriorityHigh, domain.TaskStatusInProgress, days(1), 0},
	{"Follow up with Contoso procurement", domain.TaskPriorityUrgent, domain.TaskStatusPending, days(-2), 0},
	{"Prepare Litware migration plan", domain.TaskPriorityHigh, domain.TaskStatusPending, days(3), -1},
	{"Qualify Tailspin inbound lead", domain.TaskPriorityMedium, domain.TaskStatusPending, days(6), 1},
	{"Schedule Fabrikam demo", domain.TaskPriorityMedium, domain.TaskStatusPending, days(2), 0},
	{"Update CRM hygiene report", domain.TaskPriorityLow, domain.TaskStatusCompleted, days(-3), 2},
	{"Onboarding checklist for Coho", domain.TaskPriorityMedium, domain.TaskStatusCompleted, days(-6), 2},
	{"Draft Proseware SOW", domain.TaskPriorityMedium, domain.TaskStatusOnHold, nil, 0},
	{"Collect Wingtip testimonial", domain.TaskPriorityLow, domain.TaskStatusCompleted, days(-10), 1},
	{"Lucerne loss review", domain.TaskPriorityLow, domain.TaskStatusCancelled, days(-12), 3},
	{"Renewal forecast for Q4", domain.TaskPriorityHigh, domain.TaskStatusPending, days(9), 0},
	{"Woodgrove expansion call", domain.TaskPriorityMedium, domain.TaskStatusCompleted, days(-1), 3},
}

// SeedDemoData fills an empty record store with a demo pipeline relative to
// the current date. It does nothing when any opportunity exists and returns
// the number of records written.
func (s *Service) SeedDemoData(ctx context.Context) (int, error) {
	existing, err := s.opportunities.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		s.log.Debug().Int("opportunities", existing).Msg("Record store not empty, skipping demo seed")
		return 0, nil
	}

	now := s.now().UTC()
	today := domain.StartOfDay(now)
	written := 0

	memberIDs := make([]string, len(demoTeam))
	for i, name := range demoTeam {
		memberIDs[i] = uuid.NewString()
		if err := s.team.Insert(ctx, domain.TeamMember{ID: memberIDs[i], Name: name}, now); err != nil {
			return written, err
		}
		written++
	}

	for i, d := range demoOpportunities {
		activity := now.AddDate(0, 0, -d.idleDays)
		o := domain.Opportunity{
			ID:                uuid.NewString(),
			CustomerID:        d.customer,
			Title:             d.title,
			Stage:             d.stage,
			Status:            d.status,
			Value:             d.value,
			Probability:       d.probability,
			ExpectedCloseDate: today.AddDate(0, 0, d.closeIn).Format(domain.DateLayout),
			Tags:              d.tags,
			LastActivityAt:    activity,
			CreatedAt:         now.AddDate(0, 0, -60).Add(time.Duration(i) * time.Minute),
			UpdatedAt:         activity,
		}
		if err := s.opportunities.Insert(ctx, o); err != nil {
			return written, err
		}
		written++
	}

	for i, d := range demoTasks {
		t := domain.Task{
			ID:        uuid.NewString(),
			Title:     d.title,
			Priority:  d.priority,
			Status:    d.status,
			CreatedAt: now.AddDate(0, 0, -14).Add(time.Duration(i) * time.Minute),
		}
		if d.dueIn != nil {
			t.DueDate = today.AddDate(0, 0, *d.dueIn).Format(domain.DateLayout)
		}
		if d.assignee >= 0 {
			t.AssignedTo = memberIDs[d.assignee]
		}
		if err := s.tasks.Insert(ctx, t); err != nil {
			return written, err
		}
		written++
	}

	s.log.Info().Int("records", written).Msg("Seeded demo data")

	if s.eventManager != nil {
		s.eventManager.EmitTyped("crm", &events.RecordsChangedData{
			Kind:   events.KindOpportunity,
			Action: events.ActionSeeded,
			Count:  written,
		})
	}
	return written, nil
}
