package insights

import (
	"fmt"
	"testing"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluateTasks(tasks []domain.Task, members []domain.TeamMember) []domain.Insight {
	registry := NewTaskRegistry(zerolog.Nop())
	return registry.Evaluate(&EvaluationContext{Now: testNow, Tasks: tasks, TeamMembers: members})
}

func TestTaskRules_QuietBoard(t *testing.T) {
	tasks := tasksWithStatus("t", domain.TaskStatusPending, 3)
	members := []domain.TeamMember{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}

	assert.Empty(t, evaluateTasks(tasks, members))
	assert.Empty(t, evaluateTasks(nil, nil))
}

func TestOverdueTasksRule(t *testing.T) {
	late := newTask("late", domain.TaskStatusInProgress)
	late.DueDate = dateIn(-1)
	dueToday := newTask("today", domain.TaskStatusPending)
	dueToday.DueDate = dateIn(0)
	doneLate := newTask("done", domain.TaskStatusCompleted)
	doneLate.DueDate = dateIn(-5)
	cancelledLate := newTask("cancelled", domain.TaskStatusCancelled)
	cancelledLate.DueDate = dateIn(-5)
	garbage := newTask("garbage", domain.TaskStatusPending)
	garbage.DueDate = "31/12/2020"

	rule := NewOverdueTasksRule(zerolog.Nop())
	insight, err := rule.Evaluate(&EvaluationContext{
		Now:   testNow,
		Tasks: []domain.Task{late, dueToday, doneLate, cancelledLate, garbage},
	})
	require.NoError(t, err)
	require.NotNil(t, insight)

	assert.Equal(t, RuleOverdueTasks, insight.ID)
	assert.Equal(t, 1, insight.Count)
	assert.Equal(t, 95, insight.Confidence)
	assert.Equal(t, domain.InsightPriorityHigh, insight.Priority)
	assert.Equal(t, domain.InsightCategoryTaskManagement, insight.Category)
}

func TestUnassignedHighPriorityRule(t *testing.T) {
	tests := []struct {
		name     string
		priority domain.TaskPriority
		status   domain.TaskStatus
		assignee string
		fires    bool
	}{
		{"unassigned high", domain.TaskPriorityHigh, domain.TaskStatusPending, "", true},
		{"unassigned urgent", domain.TaskPriorityUrgent, domain.TaskStatusOnHold, "", true},
		{"unassigned medium", domain.TaskPriorityMedium, domain.TaskStatusPending, "", false},
		{"assigned high", domain.TaskPriorityHigh, domain.TaskStatusPending, "bob", false},
		{"completed unassigned high", domain.TaskPriorityHigh, domain.TaskStatusCompleted, "", false},
	}

	rule := NewUnassignedHighPriorityRule(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTask("1", tt.status)
			task.Priority = tt.priority
			task.AssignedTo = tt.assignee

			insight, err := rule.Evaluate(&EvaluationContext{Now: testNow, Tasks: []domain.Task{task}})
			require.NoError(t, err)
			assert.Equal(t, tt.fires, insight != nil)
			if insight != nil {
				assert.Equal(t, 90, insight.Confidence)
				assert.Equal(t, 1, insight.Count)
			}
		})
	}
}

func TestCompletionRateRules(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		pending   int
		cancelled int
		wantLow   bool
		wantHigh  bool
		substr    string
	}{
		{name: "ten tasks is below the minimum", completed: 0, pending: 10},
		{name: "cancelled tasks do not reach the minimum", completed: 0, pending: 10, cancelled: 5},
		{name: "low completion", completed: 2, pending: 10, wantLow: true, substr: "Only 16.7% of 12 tasks"},
		{name: "high completion", completed: 10, pending: 1, wantHigh: true, substr: "90.9% of 11 tasks"},
		{name: "exactly 60 percent is not low", completed: 12, pending: 8},
		{name: "exactly 80 percent is not high", completed: 12, pending: 3},
		{name: "cancelled tasks leave the denominator", completed: 10, pending: 1, cancelled: 20, wantHigh: true, substr: "of 11 tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := tasksWithStatus("done", domain.TaskStatusCompleted, tt.completed)
			tasks = append(tasks, tasksWithStatus("open", domain.TaskStatusPending, tt.pending)...)
			tasks = append(tasks, tasksWithStatus("gone", domain.TaskStatusCancelled, tt.cancelled)...)

			insights := evaluateTasks(tasks, nil)
			low := findInsight(insights, RuleLowCompletionRate)
			high := findInsight(insights, RuleHighCompletionRate)

			assert.Equal(t, tt.wantLow, low != nil)
			assert.Equal(t, tt.wantHigh, high != nil)

			if low != nil {
				assert.Equal(t, 85, low.Confidence)
				assert.Equal(t, domain.InsightPriorityMedium, low.Priority)
				assert.Contains(t, low.Description, tt.substr)
			}
			if high != nil {
				assert.Equal(t, 90, high.Confidence)
				assert.Equal(t, domain.InsightTypeSuccess, high.Type)
				assert.Contains(t, high.Description, tt.substr)
			}
		})
	}
}

func TestWorkloadImbalanceRule(t *testing.T) {
	assign := func(member string, n int) []domain.Task {
		tasks := make([]domain.Task, 0, n)
		for i := 0; i < n; i++ {
			task := newTask(fmt.Sprintf("%s-%d", member, i), domain.TaskStatusInProgress)
			task.AssignedTo = member
			tasks = append(tasks, task)
		}
		return tasks
	}
	members := []domain.TeamMember{
		{ID: "alice", Name: "Alice"},
		{ID: "bob", Name: "Bob"},
		{ID: "carol"},
	}
	rule := NewWorkloadImbalanceRule(zerolog.Nop())

	t.Run("spread above five fires", func(t *testing.T) {
		tasks := append(assign("alice", 7), assign("bob", 2)...)

		insight, err := rule.Evaluate(&EvaluationContext{Now: testNow, Tasks: tasks, TeamMembers: members})
		require.NoError(t, err)
		require.NotNil(t, insight)

		assert.Equal(t, 7, insight.Count)
		assert.Equal(t, 88, insight.Confidence)
		assert.Equal(t, domain.InsightTypeRecommendation, insight.Type)
		assert.Equal(t, "Alice has 7 open tasks while carol has 0. Consider rebalancing assignments.", insight.Description)
	})

	t.Run("spread of exactly five does not fire", func(t *testing.T) {
		tasks := append(assign("alice", 6), assign("bob", 1)...)
		tasks = append(tasks, assign("carol", 1)...)

		insight, err := rule.Evaluate(&EvaluationContext{Now: testNow, Tasks: tasks, TeamMembers: members})
		require.NoError(t, err)
		assert.Nil(t, insight)
	})

	t.Run("closed tasks do not count", func(t *testing.T) {
		tasks := assign("alice", 9)
		for i := range tasks {
			tasks[i].Status = domain.TaskStatusCompleted
		}

		insight, err := rule.Evaluate(&EvaluationContext{Now: testNow, Tasks: tasks, TeamMembers: members})
		require.NoError(t, err)
		assert.Nil(t, insight)
	})

	t.Run("single member cannot be imbalanced", func(t *testing.T) {
		insight, err := rule.Evaluate(&EvaluationContext{
			Now:         testNow,
			Tasks:       assign("alice", 20),
			TeamMembers: members[:1],
		})
		require.NoError(t, err)
		assert.Nil(t, insight)
	})
}

func TestUpcomingDeadlinesRule(t *testing.T) {
	dueIn := func(id string, days int, status domain.TaskStatus) domain.Task {
		task := newTask(id, status)
		task.DueDate = dateIn(days)
		return task
	}
	tasks := []domain.Task{
		dueIn("today", 0, domain.TaskStatusPending),
		dueIn("tomorrow", 1, domain.TaskStatusInProgress),
		dueIn("edge", 3, domain.TaskStatusPending),
		dueIn("later", 4, domain.TaskStatusPending),
		dueIn("late", -1, domain.TaskStatusPending),
		dueIn("done", 1, domain.TaskStatusCompleted),
	}

	rule := NewUpcomingDeadlinesRule(zerolog.Nop())
	insight, err := rule.Evaluate(&EvaluationContext{Now: testNow, Tasks: tasks})
	require.NoError(t, err)
	require.NotNil(t, insight)

	assert.Equal(t, 3, insight.Count)
	assert.Equal(t, domain.InsightTypeInfo, insight.Type)
	assert.Equal(t, 92, insight.Confidence)
	assert.Equal(t, "3 tasks are due within the next 3 days.", insight.Description)
}

func TestTaskRules_EvaluationOrder(t *testing.T) {
	late := newTask("late", domain.TaskStatusPending)
	late.DueDate = dateIn(-2)
	orphan := newTask("orphan", domain.TaskStatusPending)
	orphan.Priority = domain.TaskPriorityUrgent
	orphan.AssignedTo = ""
	soon := newTask("soon", domain.TaskStatusPending)
	soon.DueDate = dateIn(1)

	insights := evaluateTasks([]domain.Task{late, orphan, soon}, nil)

	assert.Equal(t, []string{
		RuleOverdueTasks,
		RuleUnassignedHighPriority,
		RuleUpcomingDeadlines,
	}, insightIDs(insights))
}
