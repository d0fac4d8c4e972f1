package crm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/rs/zerolog"
)

const opportunityColumns = `id, customer_id, title, description, stage, status, value, probability,
	expected_close_date, tags, last_activity_at, created_at, updated_at`

// OpportunityRepository handles opportunity persistence
type OpportunityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOpportunityRepository creates a new opportunity repository
func NewOpportunityRepository(db *sql.DB, log zerolog.Logger) *OpportunityRepository {
	return &OpportunityRepository{
		db:  db,
		log: log.With().Str("repository", "opportunities").Logger(),
	}
}

// List returns every opportunity in creation order
func (r *OpportunityRepository) List(ctx context.Context) ([]domain.Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+opportunityColumns+" FROM opportunities ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	records := []domain.Opportunity{}
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}

	return records, nil
}

// Get returns one opportunity or ErrNotFound
func (r *OpportunityRepository) Get(ctx context.Context, id string) (*domain.Opportunity, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+opportunityColumns+" FROM opportunities WHERE id = ?", id)

	o, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("opportunity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Insert stores a new opportunity
func (r *OpportunityRepository) Insert(ctx context.Context, o domain.Opportunity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO opportunities (`+opportunityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerID, o.Title, o.Description, string(o.Stage), string(o.Status),
		o.Value, o.Probability, o.ExpectedCloseDate, encodeTags(o.Tags),
		formatTime(o.LastActivityAt), formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity %s: %w", o.ID, err)
	}

	r.log.Debug().Str("id", o.ID).Str("stage", string(o.Stage)).Msg("Inserted opportunity")
	return nil
}

// Update overwrites an existing opportunity
func (r *OpportunityRepository) Update(ctx context.Context, o domain.Opportunity) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE opportunities SET
			customer_id = ?, title = ?, description = ?, stage = ?, status = ?, value = ?,
			probability = ?, expected_close_date = ?, tags = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		o.CustomerID, o.Title, o.Description, string(o.Stage), string(o.Status), o.Value,
		o.Probability, o.ExpectedCloseDate, encodeTags(o.Tags),
		formatTime(o.LastActivityAt), formatTime(o.UpdatedAt), o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update opportunity %s: %w", o.ID, err)
	}

	return requireAffected(result, "opportunity", o.ID)
}

// Delete removes an opportunity
func (r *OpportunityRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM opportunities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete opportunity %s: %w", id, err)
	}
	return requireAffected(result, "opportunity", id)
}

// Count returns the number of stored opportunities
func (r *OpportunityRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

func scanOpportunity(row rowScanner) (domain.Opportunity, error) {
	var o domain.Opportunity
	var stage, status, tags, lastActivity, created, updated string

	err := row.Scan(
		&o.ID, &o.CustomerID, &o.Title, &o.Description, &stage, &status,
		&o.Value, &o.Probability, &o.ExpectedCloseDate, &tags,
		&lastActivity, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return o, err
	}
	if err != nil {
		return o, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	o.Stage = domain.Stage(stage)
	o.Status = domain.OpportunityStatus(status)
	o.Tags = decodeTags(tags)
	o.LastActivityAt = parseTime(lastActivity)
	o.CreatedAt = parseTime(created)
	o.UpdatedAt = parseTime(updated)
	return o, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
