package domain

import "time"

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// IsValid reports whether p is a known task priority
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
	TaskStatusOnHold     TaskStatus = "on_hold"
)

// IsValid reports whether s is a known task status
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled, TaskStatusOnHold:
		return true
	}
	return false
}

// IsTerminal reports whether the task is completed or cancelled
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// Task represents a follow-up item owned by a team member
type Task struct {
	CreatedAt   time.Time    `json:"created_at" msgpack:"created_at"`
	ID          string       `json:"id" msgpack:"id"`
	Title       string       `json:"title" msgpack:"title"`
	Description string       `json:"description,omitempty" msgpack:"description"`
	Priority    TaskPriority `json:"priority" msgpack:"priority"`
	Status      TaskStatus   `json:"status" msgpack:"status"`
	DueDate     string       `json:"due_date,omitempty" msgpack:"due_date"`       // Optional, YYYY-MM-DD
	AssignedTo  string       `json:"assigned_to,omitempty" msgpack:"assigned_to"` // Optional team member ID
}

// IsOpen reports whether the task is neither completed nor cancelled
func (t Task) IsOpen() bool {
	return !t.Status.IsTerminal()
}

// IsAssigned reports whether the task has an owner
func (t Task) IsAssigned() bool {
	return t.AssignedTo != ""
}
