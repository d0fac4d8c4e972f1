// Package domain provides core domain models and types.
package domain

import "time"

// OpportunityStatus is orthogonal to Stage. It is not used to exclude
// records from aggregation.
type OpportunityStatus string

const (
	OpportunityStatusActive    OpportunityStatus = "active"
	OpportunityStatusOnHold    OpportunityStatus = "on_hold"
	OpportunityStatusCancelled OpportunityStatus = "cancelled"
)

// IsValid reports whether s is a known opportunity status
func (s OpportunityStatus) IsValid() bool {
	switch s {
	case OpportunityStatusActive, OpportunityStatusOnHold, OpportunityStatusCancelled:
		return true
	}
	return false
}

// Opportunity represents a sales opportunity (deal) in the pipeline
type Opportunity struct {
	LastActivityAt    time.Time         `json:"last_activity_at" msgpack:"last_activity_at"`
	CreatedAt         time.Time         `json:"created_at" msgpack:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" msgpack:"updated_at"`
	ID                string            `json:"id" msgpack:"id"`
	CustomerID        string            `json:"customer_id" msgpack:"customer_id"` // Weak reference, not owned
	Title             string            `json:"title" msgpack:"title"`
	Description       string            `json:"description" msgpack:"description"`
	Stage             Stage             `json:"stage" msgpack:"stage"`
	Status            OpportunityStatus `json:"status" msgpack:"status"`
	ExpectedCloseDate string            `json:"expected_close_date" msgpack:"expected_close_date"` // YYYY-MM-DD
	Tags              []string          `json:"tags,omitempty" msgpack:"tags"`
	Value             float64           `json:"value" msgpack:"value"`
	Probability       int               `json:"probability" msgpack:"probability"` // 0..100
}

// IsOpen reports whether the opportunity is still in a non-terminal stage
func (o Opportunity) IsOpen() bool {
	return !o.Stage.IsTerminal()
}

// TeamMember represents a person tasks can be assigned to
type TeamMember struct {
	ID             string `json:"id" msgpack:"id"`
	Name           string `json:"name" msgpack:"name"`
	TasksAssigned  int    `json:"tasks_assigned" msgpack:"tasks_assigned"`
	TasksCompleted int    `json:"tasks_completed" msgpack:"tasks_completed"`
}

// Snapshot is an immutable view of the records the host hands to the engine
// for a single recomputation.
type Snapshot struct {
	Opportunities []Opportunity `json:"opportunities" msgpack:"opportunities"`
	Tasks         []Task        `json:"tasks" msgpack:"tasks"`
	TeamMembers   []TeamMember  `json:"team_members" msgpack:"team_members"`
}
