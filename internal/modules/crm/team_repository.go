package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

// TeamRepository handles team member persistence.
// Task counters are not stored; they are derived from the task table on read.
type TeamRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTeamRepository creates a new team repository
func NewTeamRepository(db *sql.DB, log zerolog.Logger) *TeamRepository {
	return &TeamRepository{
		db:  db,
		log: log.With().Str("repository", "team").Logger(),
	}
}

// List returns team members in creation order with their task counters
func (r *TeamRepository) List(ctx context.Context) ([]domain.TeamMember, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.name,
			COUNT(t.id) AS assigned,
			COALESCE(SUM(CASE WHEN t.status = 'completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM team_members m
		LEFT JOIN tasks t ON t.assigned_to = m.id
		GROUP BY m.id, m.name
		ORDER BY m.created_at, m.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	members := []domain.TeamMember{}
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.ID, &m.Name, &m.TasksAssigned, &m.TasksCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team members: %w", err)
	}

	return members, nil
}

// Exists reports whether a team member with id is stored
func (r *TeamRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM team_members WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up team member %s: %w", id, err)
	}
	return true, nil
}

// Insert stores a new team member
func (r *TeamRepository) Insert(ctx context.Context, m domain.TeamMember, createdAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO team_members (id, name, created_at) VALUES (?, ?, ?)",
		m.ID, m.Name, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert team member %s: %w", m.ID, err)
	}
	return nil
}

// Delete removes a team member inside tx
func (r *TeamRepository) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	result, err := tx.ExecContext(ctx, "DELETE FROM team_members WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete team member %s: %w", id, err)
	}
	return requireAffected(result, "team member", id)
}
