package insights

import "github.com/aristath/dealdesk/internal/domain"

// WinRate is the closed-cohort win statistic
type WinRate struct {
	Won    int     `json:"won"`
	Lost   int     `json:"lost"`
	Closed int     `json:"closed"`
	Rate   float64 `json:"rate"` // Percent of closed deals that were won
}

// ClosedCohortWinRate computes won / (won + lost) in percent.
//
// This is deliberately not the pipeline ConversionRate, which divides by all
// records. Both numbers are shown in the UI.
func ClosedCohortWinRate(records []domain.Opportunity) WinRate {
	var wr WinRate
	for _, o := range records {
		switch o.Stage {
		case domain.StageClosedWon:
			wr.Won++
		case domain.StageClosedLost:
			wr.Lost++
		}
	}

	wr.Closed = wr.Won + wr.Lost
	if wr.Closed > 0 {
		wr.Rate = 100 * float64(wr.Won) / float64(wr.Closed)
	}
	return wr
}

// CompletionRate is the task completion statistic
type CompletionRate struct {
	Completed int     `json:"completed"`
	Total     int     `json:"total"` // Non-cancelled tasks
	Rate      float64 `json:"rate"`
}

// TaskCompletionRate computes completed / non-cancelled tasks in percent
func TaskCompletionRate(tasks []domain.Task) CompletionRate {
	var cr CompletionRate
	for _, t := range tasks {
		if !CountsTowardCompletion(t) {
			continue
		}
		cr.Total++
		if t.Status == domain.TaskStatusCompleted {
			cr.Completed++
		}
	}

	if cr.Total > 0 {
		cr.Rate = 100 * float64(cr.Completed) / float64(cr.Total)
	}
	return cr
}

// MemberLoad is the number of open tasks assigned to one team member
type MemberLoad struct {
	Member    domain.TeamMember `json:"member"`
	OpenTasks int               `json:"open_tasks"`
}

// MemberWorkloads counts open tasks per team member, in member order.
// Tasks assigned to someone outside members are ignored.
func MemberWorkloads(members []domain.TeamMember, tasks []domain.Task) []MemberLoad {
	counts := make(map[string]int, len(members))
	for _, t := range tasks {
		if IsAssignedOpen(t) {
			counts[t.AssignedTo]++
		}
	}

	loads := make([]MemberLoad, 0, len(members))
	for _, m := range members {
		loads = append(loads, MemberLoad{Member: m, OpenTasks: counts[m.ID]})
	}
	return loads
}

// WorkloadSpread returns the most and least loaded members. ok is false when
// fewer than two members are known. Ties resolve to the first member in order.
func WorkloadSpread(loads []MemberLoad) (busiest, idlest MemberLoad, ok bool) {
	if len(loads) < 2 {
		return MemberLoad{}, MemberLoad{}, false
	}

	busiest, idlest = loads[0], loads[0]
	for _, l := range loads[1:] {
		if l.OpenTasks > busiest.OpenTasks {
			busiest = l
		}
		if l.OpenTasks < idlest.OpenTasks {
			idlest = l
		}
	}
	return busiest, idlest, true
}
