package insights

import (
	"fmt"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
)

// testNow is the fixed evaluation instant used across the package tests
var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func dateIn(days int) string {
	return testNow.AddDate(0, 0, days).Format(domain.DateLayout)
}

// newOpportunity returns an open, recently touched opportunity that triggers no rule
func newOpportunity(id string, stage domain.Stage) domain.Opportunity {
	return domain.Opportunity{
		ID:                id,
		Title:             "Opportunity " + id,
		Stage:             stage,
		Status:            domain.OpportunityStatusActive,
		Value:             10000,
		Probability:       50,
		ExpectedCloseDate: dateIn(30),
		LastActivityAt:    daysAgo(1),
		CreatedAt:         daysAgo(40),
		UpdatedAt:         daysAgo(1),
	}
}

func closedDeals(won, lost int) []domain.Opportunity {
	records := []domain.Opportunity{}
	for i := 0; i < won; i++ {
		records = append(records, newOpportunity(fmt.Sprintf("won-%d", i), domain.StageClosedWon))
	}
	for i := 0; i < lost; i++ {
		records = append(records, newOpportunity(fmt.Sprintf("lost-%d", i), domain.StageClosedLost))
	}
	return records
}

// newTask returns an open, assigned, medium priority task due in a week
func newTask(id string, status domain.TaskStatus) domain.Task {
	return domain.Task{
		ID:         id,
		Title:      "Task " + id,
		Priority:   domain.TaskPriorityMedium,
		Status:     status,
		DueDate:    dateIn(7),
		AssignedTo: "alice",
		CreatedAt:  daysAgo(3),
	}
}

func tasksWithStatus(prefix string, status domain.TaskStatus, n int) []domain.Task {
	tasks := make([]domain.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, newTask(fmt.Sprintf("%s-%d", prefix, i), status))
	}
	return tasks
}

func insightIDs(insights []domain.Insight) []string {
	ids := make([]string, 0, len(insights))
	for _, i := range insights {
		ids = append(ids, i.ID)
	}
	return ids
}

func findInsight(insights []domain.Insight, id string) *domain.Insight {
	for i := range insights {
		if insights[i].ID == id {
			return &insights[i]
		}
	}
	return nil
}
