package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

const taskColumns = `id, title, description, priority, status, due_date, assigned_to, created_at`

// TaskRepository handles task persistence
type TaskRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sql.DB, log zerolog.Logger) *TaskRepository {
	return &TaskRepository{
		db:  db,
		log: log.With().Str("repository", "tasks").Logger(),
	}
}

// List returns every task in creation order
func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Get returns one task or ErrNotFound
func (r *TaskRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert stores a new task
func (r *TaskRepository) Insert(ctx context.Context, t domain.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Priority), string(t.Status),
		t.DueDate, t.AssignedTo, formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
	}

	r.log.Debug().Str("id", t.ID).Str("status", string(t.Status)).Msg("Inserted task")
	return nil
}

// Update overwrites an existing task
func (r *TaskRepository) Update(ctx context.Context, t domain.Task) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?, due_date = ?, assigned_to = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Priority), string(t.Status), t.DueDate, t.AssignedTo, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	return requireAffected(result, "task", t.ID)
}

// Delete removes a task
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	return requireAffected(result, "task", id)
}

// Unassign clears the owner of every task assigned to memberID inside tx and
// returns how many changed
func (r *TaskRepository) Unassign(ctx context.Context, tx *sql.Tx, memberID string) (int64, error) {
	result, err := tx.ExecContext(ctx, "UPDATE tasks SET assigned_to = '' WHERE assigned_to = ?", memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign tasks of %s: %w", memberID, err)
	}
	return result.RowsAffected()
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var priority, status, created string

	err := row.Scan(&t.ID, &t.Title, &t.Description, &priority, &status, &t.DueDate, &t.AssignedTo, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Priority = domain.TaskPriority(priority)
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = parseTime(created)
	return t, nil
}
