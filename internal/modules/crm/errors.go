// Package crm is the record store for opportunities, tasks and team members.
package crm

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrTerminalStage is returned when moving an opportunity out of closed_won or closed_lost
	ErrTerminalStage = errors.New("opportunity is already closed")
	// ErrInvalidOpportunity wraps opportunity validation failures
	ErrInvalidOpportunity = errors.New("invalid opportunity")
	// ErrInvalidTask wraps task validation failures
	ErrInvalidTask = errors.New("invalid task")
	// ErrInvalidTeamMember wraps team member validation failures
	ErrInvalidTeamMember = errors.New("invalid team member")
)
