package crm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/dealdesk/internal/database"
	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OpportunityInput is the writable part of an opportunity
type OpportunityInput struct {
	CustomerID        string                   `json:"customer_id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	Stage             domain.Stage             `json:"stage"`
	Status            domain.OpportunityStatus `json:"status"`
	ExpectedCloseDate string                   `json:"expected_close_date"`
	Tags              []string                 `json:"tags"`
	Value             float64                  `json:"value"`
	Probability       int                      `json:"probability"`
}

// TaskInput is the writable part of a task
type TaskInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status"`
	DueDate     string              `json:"due_date"`
	AssignedTo  string              `json:"assigned_to"`
}

// TeamMemberInput is the writable part of a team member
type TeamMemberInput struct {
	Name string `json:"name"`
}

// Service is the record store: validated CRUD over opportunities, tasks and the
// team. Every mutation emits a RecordsChanged event.
type Service struct {
	db            *sql.DB
	opportunities *OpportunityRepository
	tasks         *TaskRepository
	team          *TeamRepository
	eventManager  *events.Manager
	now           func() time.Time
	log           zerolog.Logger
}

// NewService creates the record store over db. eventManager may be nil.
func NewService(db *sql.DB, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		db:            db,
		opportunities: NewOpportunityRepository(db, log),
		tasks:         NewTaskRepository(db, log),
		team:          NewTeamRepository(db, log),
		eventManager:  eventManager,
		now:           time.Now,
		log:           log.With().Str("module", "crm").Logger(),
	}
}

// SetClock overrides the clock used for timestamps
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Snapshot reads all records for one recomputation
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	opportunities, err := s.opportunities.List(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	members, err := s.team.List(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	return domain.Snapshot{
		Opportunities: opportunities,
		Tasks:         tasks,
		TeamMembers:   members,
	}, nil
}

// ListOpportunities returns all opportunities
func (s *Service) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	return s.opportunities.List(ctx)
}

// GetOpportunity returns one opportunity
func (s *Service) GetOpportunity(ctx context.Context, id string) (*domain.Opportunity, error) {
	return s.opportunities.Get(ctx, id)
}

// CreateOpportunity validates and stores a new opportunity. Stage defaults to
// lead and status to active.
func (s *Service) CreateOpportunity(ctx context.Context, in OpportunityInput) (*domain.Opportunity, error) {
	in = normalizeOpportunityInput(in)
	if err := validateOpportunity(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := domain.Opportunity{
		ID:             uuid.NewString(),
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyOpportunityInput(&o, in)

	if err := s.opportunities.Insert(ctx, o); err != nil {
		return nil, err
	}

	s.emitChanged(events.KindOpportunity, events.ActionCreated, o.ID)
	return &o, nil
}

// UpdateOpportunity replaces the writable fields of an opportunity. Moving a
// closed opportunity to another stage returns ErrTerminalStage.
func (s *Service) UpdateOpportunity(ctx context.Context, id string, in OpportunityInput) (*domain.Opportunity, error) {
	existing, err := s.opportunities.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in = normalizeOpportunityInput(in)
	if err := validateOpportunity(in); err != nil {
		return nil, err
	}
	if err := checkTransition(existing.Stage, in.Stage); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	applyOpportunityInput(existing, in)
	existing.LastActivityAt = now
	existing.UpdatedAt = now

	if err := s.opportunities.Update(ctx, *existing); err != nil {
		return nil, err
	}

	s.emitChanged(events.KindOpportunity, events.ActionUpdated, id)
	return existing, nil
}

// MarkWon moves an open opportunity to closed_won with 100% probability
func (s *Service) MarkWon(ctx context.Context, id string) (*domain.Opportunity, error) {
	return s.close(ctx, id, domain.StageClosedWon, 100)
}

// MarkLost moves an open opportunity to closed_lost with 0% probability
func (s *Service) MarkLost(ctx context.Context, id string) (*domain.Opportunity, error) {
	return s.close(ctx, id, domain.StageClosedLost, 0)
}

func (s *Service) close(ctx context.Context, id string, stage domain.Stage, probability int) (*domain.Opportunity, error) {
	existing, err := s.opportunities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Stage == stage {
		return existing, nil
	}
	if err := checkTransition(existing.Stage, stage); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	existing.Stage = stage
	existing.Probability = probability
	existing.LastActivityAt = now
	existing.UpdatedAt = now

	if err := s.opportunities.Update(ctx, *existing); err != nil {
		return nil, err
	}

	s.log.Info().Str("id", id).Str("stage", string(stage)).Msg("Opportunity closed")
	s.emitChanged(events.KindOpportunity, events.ActionUpdated, id)
	return existing, nil
}

// DeleteOpportunity removes an opportunity
func (s *Service) DeleteOpportunity(ctx context.Context, id string) error {
	if err := s.opportunities.Delete(ctx, id); err != nil {
		return err
	}
	s.emitChanged(events.KindOpportunity, events.ActionDeleted, id)
	return nil
}

// ListTasks returns all tasks
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.tasks.List(ctx)
}

// GetTask returns one task
func (s *Service) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.Get(ctx, id)
}

// CreateTask validates and stores a new task. Priority defaults to medium and
// status to pending.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*domain.Task, error) {
	in = normalizeTaskInput(in)
	if err := s.validateTask(ctx, in); err != nil {
		return nil, err
	}

	t := domain.Task{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}
	applyTaskInput(&t, in)

	if err := s.tasks.Insert(ctx, t); err != nil {
		return nil, err
	}

	s.emitChanged(events.KindTask, events.ActionCreated, t.ID)
	return &t, nil
}

// UpdateTask replaces the writable fields of a task
func (s *Service) UpdateTask(ctx context.Context, id string, in TaskInput) (*domain.Task, error) {
	existing, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in = normalizeTaskInput(in)
	if err := s.validateTask(ctx, in); err != nil {
		return nil, err
	}

	applyTaskInput(existing, in)
	if err := s.tasks.Update(ctx, *existing); err != nil {
		return nil, err
	}

	s.emitChanged(events.KindTask, events.ActionUpdated, id)
	return existing, nil
}

// DeleteTask removes a task
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.emitChanged(events.KindTask, events.ActionDeleted, id)
	return nil
}

// ListTeamMembers returns the team with derived task counters
func (s *Service) ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	return s.team.List(ctx)
}

// CreateTeamMember stores a new team member
func (s *Service) CreateTeamMember(ctx context.Context, in TeamMemberInput) (*domain.TeamMember, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTeamMember)
	}

	m := domain.TeamMember{ID: uuid.NewString(), Name: name}
	if err := s.team.Insert(ctx, m, s.now().UTC()); err != nil {
		return nil, err
	}

	s.emitChanged(events.KindTeamMember, events.ActionCreated, m.ID)
	return &m, nil
}

// DeleteTeamMember removes a team member and unassigns their tasks in one
// transaction
func (s *Service) DeleteTeamMember(ctx context.Context, id string) error {
	var n int64
	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if err := s.team.Delete(ctx, tx, id); err != nil {
			return err
		}
		var err error
		n, err = s.tasks.Unassign(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("id", id).Int64("unassigned_tasks", n).Msg("Team member removed")
	s.emitChanged(events.KindTeamMember, events.ActionDeleted, id)
	return nil
}

func (s *Service) emitChanged(kind, action, id string) {
	if s.eventManager == nil {
		return
	}
	s.eventManager.EmitTyped("crm", &events.RecordsChangedData{
		Kind:     kind,
		Action:   action,
		RecordID: id,
	})
}

// checkTransition allows any move between stages except leaving a terminal one
func checkTransition(from, to domain.Stage) error {
	if from.IsTerminal() && to != from {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrTerminalStage, from, to)
	}
	return nil
}

func normalizeOpportunityInput(in OpportunityInput) OpportunityInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ExpectedCloseDate = strings.TrimSpace(in.ExpectedCloseDate)
	if in.Stage == "" {
		in.Stage = domain.StageLead
	}
	if in.Status == "" {
		in.Status = domain.OpportunityStatusActive
	}
	return in
}

func validateOpportunity(in OpportunityInput) error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidOpportunity)
	case !in.Stage.IsValid():
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidOpportunity, in.Stage)
	case !in.Status.IsValid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidOpportunity, in.Status)
	case in.Value < 0:
		return fmt.Errorf("%w: value must not be negative", ErrInvalidOpportunity)
	case in.Probability < 0 || in.Probability > 100:
		return fmt.Errorf("%w: probability must be between 0 and 100", ErrInvalidOpportunity)
	}

	if in.ExpectedCloseDate != "" {
		if _, ok := domain.ParseDate(in.ExpectedCloseDate); !ok {
			return fmt.Errorf("%w: expected_close_date must be YYYY-MM-DD", ErrInvalidOpportunity)
		}
	}
	return nil
}

func applyOpportunityInput(o *domain.Opportunity, in OpportunityInput) {
	o.CustomerID = in.CustomerID
	o.Title = in.Title
	o.Description = in.Description
	o.Stage = in.Stage
	o.Status = in.Status
	o.Value = in.Value
	o.Probability = in.Probability
	o.ExpectedCloseDate = in.ExpectedCloseDate
	o.Tags = in.Tags
}

func normalizeTaskInput(in TaskInput) TaskInput {
	in.Title = strings.TrimSpace(in.Title)
	in.DueDate = strings.TrimSpace(in.DueDate)
	in.AssignedTo = strings.TrimSpace(in.AssignedTo)
	if in.Priority == "" {
		in.Priority = domain.TaskPriorityMedium
	}
	if in.Status == "" {
		in.Status = domain.TaskStatusPending
	}
	return in
}

func (s *Service) validateTask(ctx context.Context, in TaskInput) error {
	switch {
	case in.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	case !in.Priority.IsValid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, in.Priority)
	case !in.Status.IsValid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, in.Status)
	}

	if in.DueDate != "" {
		if _, ok := domain.ParseDate(in.DueDate); !ok {
			return fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidTask)
		}
	}

	if in.AssignedTo != "" {
		exists, err := s.team.Exists(ctx, in.AssignedTo)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: unknown team member %q", ErrInvalidTask, in.AssignedTo)
		}
	}
	return nil
}

func applyTaskInput(t *domain.Task, in TaskInput) {
	t.Title = in.Title
	t.Description = in.Description
	t.Priority = in.Priority
	t.Status = in.Status
	t.DueDate = in.DueDate
	t.AssignedTo = in.AssignedTo
}
