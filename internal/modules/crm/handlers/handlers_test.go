package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/dealdesk/internal/domain"
	"github.com/aristath/dealdesk/internal/events"
	"github.com/aristath/dealdesk/internal/modules/crm"
	"github.com/aristath/dealdesk/internal/modules/insights"
	testutil "github.com/aristath/dealdesk/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRecordStore is a mock implementation of RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) GetOpportunity(ctx context.Context, id string) (*domain.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) CreateOpportunity(ctx context.Context, in crm.OpportunityInput) (*domain.Opportunity, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) UpdateOpportunity(ctx context.Context, id string, in crm.OpportunityInput) (*domain.Opportunity, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) MarkWon(ctx context.Context, id string) (*domain.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) MarkLost(ctx context.Context, id string) (*domain.Opportunity, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Opportunity), args.Error(1)
}

func (m *MockRecordStore) DeleteOpportunity(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecordStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Task), args.Error(1)
}

func (m *MockRecordStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockRecordStore) CreateTask(ctx context.Context, in crm.TaskInput) (*domain.Task, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockRecordStore) UpdateTask(ctx context.Context, id string, in crm.TaskInput) (*domain.Task, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockRecordStore) DeleteTask(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecordStore) ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.TeamMember), args.Error(1)
}

func (m *MockRecordStore) CreateTeamMember(ctx context.Context, in crm.TeamMemberInput) (*domain.TeamMember, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TeamMember), args.Error(1)
}

func (m *MockRecordStore) DeleteTeamMember(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newRouter(store RecordStore) http.Handler {
	handler := NewHandler(store, zerolog.Nop())
	handler.now = func() time.Time { return testutil.FixedNow }

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func listIDs(t *testing.T, response map[string]interface{}, key string) []string {
	t.Helper()
	data := response["data"].(map[string]interface{})
	ids := []string{}
	for _, item := range data[key].([]interface{}) {
		ids = append(ids, item.(map[string]interface{})["id"].(string))
	}
	return ids
}

func TestHandleListOpportunities(t *testing.T) {
	store := new(MockRecordStore)
	store.On("ListOpportunities", mock.Anything).Return(testutil.NewOpportunityFixtures(), nil)
	router := newRouter(store)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all", "/opportunities", []string{"opp-lead", "opp-qual", "opp-stale", "opp-big", "opp-won", "opp-lost"}},
		{"stage", "/opportunities?stage=proposal", []string{"opp-stale"}},
		{"search tag", "/opportunities?search=ENTERPRISE", []string{"opp-big"}},
		{"value range", "/opportunities?min_value=20000&max_value=30000", []string{"opp-qual", "opp-stale", "opp-won"}},
		{"insight", "/opportunities?insight=" + insights.RuleOverdueOpportunities, []string{"opp-big"}},
		{"insight with fields", "/opportunities?insight=" + insights.RuleStuckOpportunities + "&stage=lead", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "GET", tt.target, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			response := decode(t, w)
			assert.Contains(t, response, "metadata")
			assert.Equal(t, tt.want, listIDs(t, response, "opportunities"))
		})
	}
}

func TestHandleListOpportunities_BadRequests(t *testing.T) {
	store := new(MockRecordStore)
	store.On("ListOpportunities", mock.Anything).Return(testutil.NewOpportunityFixtures(), nil)
	router := newRouter(store)

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"unknown insight", "/opportunities?insight=nope", "UNKNOWN_INSIGHT"},
		{"task insight", "/opportunities?insight=" + insights.RuleOverdueTasks, "UNKNOWN_INSIGHT"},
		{"bad stage", "/opportunities?stage=won", "INVALID_QUERY"},
		{"bad value", "/opportunities?min_value=abc", "INVALID_QUERY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "GET", tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			errorData := decode(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tt.code, errorData["code"])
		})
	}
}

func TestHandleListOpportunities_StoreError(t *testing.T) {
	store := new(MockRecordStore)
	store.On("ListOpportunities", mock.Anything).Return([]domain.Opportunity(nil), errors.New("database is locked"))

	w := serve(newRouter(store), "GET", "/opportunities", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errorData := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_ERROR", errorData["code"])
	assert.NotContains(t, errorData["message"], "locked")
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("%w: opportunity x", crm.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"terminal", fmt.Errorf("%w: closed", crm.ErrTerminalStage), http.StatusConflict, "TERMINAL_STAGE"},
		{"invalid", fmt.Errorf("%w: title is required", crm.ErrInvalidOpportunity), http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRecordStore)
			store.On("MarkWon", mock.Anything, "opp-1").Return(nil, tt.err)

			w := serve(newRouter(store), "POST", "/opportunities/opp-1/won", "")

			assert.Equal(t, tt.status, w.Code)
			errorData := decode(t, w)["error"].(map[string]interface{})
			assert.Equal(t, tt.code, errorData["code"])
			store.AssertExpectations(t)
		})
	}
}

func TestHandleCreateOpportunity(t *testing.T) {
	store := new(MockRecordStore)
	input := crm.OpportunityInput{Title: "Pilot", Value: 1200, Probability: 20, Tags: []string{"smb"}}
	store.On("CreateOpportunity", mock.Anything, input).
		Return(&domain.Opportunity{ID: "new-id", Title: "Pilot", Stage: domain.StageLead}, nil)
	router := newRouter(store)

	w := serve(router, "POST", "/opportunities", `{"title":"Pilot","value":1200,"probability":20,"tags":["smb"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "new-id", data["id"])
	assert.Equal(t, "lead", data["stage"])
	store.AssertExpectations(t)

	w = serve(router, "POST", "/opportunities", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpdateAndDeleteOpportunity(t *testing.T) {
	store := new(MockRecordStore)
	input := crm.OpportunityInput{Title: "Renamed", Stage: domain.StageProposal}
	store.On("UpdateOpportunity", mock.Anything, "opp-1", input).
		Return(&domain.Opportunity{ID: "opp-1", Title: "Renamed", Stage: domain.StageProposal}, nil)
	store.On("DeleteOpportunity", mock.Anything, "opp-1").Return(nil)
	store.On("MarkLost", mock.Anything, "opp-1").
		Return(&domain.Opportunity{ID: "opp-1", Stage: domain.StageClosedLost}, nil)
	router := newRouter(store)

	w := serve(router, "PUT", "/opportunities/opp-1", `{"title":"Renamed","stage":"proposal"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renamed", decode(t, w)["data"].(map[string]interface{})["title"])

	w = serve(router, "POST", "/opportunities/opp-1/lost", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "closed_lost", decode(t, w)["data"].(map[string]interface{})["stage"])

	w = serve(router, "DELETE", "/opportunities/opp-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "opp-1", decode(t, w)["data"].(map[string]interface{})["deleted"])

	store.AssertExpectations(t)
}

func TestHandleListTasks(t *testing.T) {
	store := new(MockRecordStore)
	store.On("ListTasks", mock.Anything).Return(testutil.NewTaskFixtures(), nil)
	store.On("ListTeamMembers", mock.Anything).Return(testutil.NewTeamFixtures(), nil)
	router := newRouter(store)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all", "/tasks", []string{"task-late", "task-orphan", "task-soon", "task-done"}},
		{"assignee", "/tasks?assigned_to=member-bo", []string{"task-soon", "task-done"}},
		{"priority", "/tasks?priority=high", []string{"task-orphan"}},
		{"insight", "/tasks?insight=" + insights.RuleUnassignedHighPriority, []string{"task-orphan"}},
		{"overdue insight", "/tasks?insight=" + insights.RuleOverdueTasks, []string{"task-late"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, "GET", tt.target, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, listIDs(t, decode(t, w), "tasks"))
		})
	}

	w := serve(router, "GET", "/tasks?insight="+insights.RuleHighValueDeals, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTaskCRUD(t *testing.T) {
	store := new(MockRecordStore)
	input := crm.TaskInput{Title: "Call", AssignedTo: "ghost"}
	store.On("CreateTask", mock.Anything, input).
		Return(nil, fmt.Errorf("%w: unknown team member %q", crm.ErrInvalidTask, "ghost"))
	store.On("GetTask", mock.Anything, "missing").Return(nil, fmt.Errorf("%w: task missing", crm.ErrNotFound))
	store.On("UpdateTask", mock.Anything, "t-1", crm.TaskInput{Title: "Call", Status: domain.TaskStatusCompleted}).
		Return(&domain.Task{ID: "t-1", Title: "Call", Status: domain.TaskStatusCompleted}, nil)
	store.On("DeleteTask", mock.Anything, "t-1").Return(nil)
	router := newRouter(store)

	w := serve(router, "POST", "/tasks", `{"title":"Call","assigned_to":"ghost"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, "GET", "/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, "PUT", "/tasks/t-1", `{"title":"Call","status":"completed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["data"].(map[string]interface{})["status"])

	w = serve(router, "DELETE", "/tasks/t-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	store.AssertExpectations(t)
}

func TestHandleTeam(t *testing.T) {
	store := new(MockRecordStore)
	store.On("ListTeamMembers", mock.Anything).Return(testutil.NewTeamFixtures(), nil)
	store.On("CreateTeamMember", mock.Anything, crm.TeamMemberInput{Name: "Cy"}).
		Return(&domain.TeamMember{ID: "member-cy", Name: "Cy"}, nil)
	store.On("DeleteTeamMember", mock.Anything, "member-bo").Return(nil)
	router := newRouter(store)

	w := serve(router, "GET", "/team", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])

	w = serve(router, "POST", "/team", `{"name":"Cy"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, "DELETE", "/team/member-bo", "")
	assert.Equal(t, http.StatusOK, w.Code)

	store.AssertExpectations(t)
}

// TestHandlers_WithRecordStore runs the handlers against the SQLite-backed service
func TestHandlers_WithRecordStore(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "crm")
	defer cleanup()

	log := zerolog.Nop()
	service := crm.NewService(db.Conn(), events.NewManager(events.NewBus(log), log), log)
	service.SetClock(func() time.Time { return testutil.FixedNow })
	router := newRouter(service)

	w := serve(router, "POST", "/opportunities", `{"title":"Warehouse deal","value":60000,"probability":40,"stage":"negotiation","expected_close_date":"2026-11-01"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["data"].(map[string]interface{})["id"].(string)

	w = serve(router, "GET", "/opportunities?insight="+insights.RuleHighValueDeals, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{id}, listIDs(t, decode(t, w), "opportunities"))

	w = serve(router, "POST", "/opportunities/"+id+"/won", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(router, "PUT", "/opportunities/"+id, `{"title":"Warehouse deal","stage":"proposal"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(router, "GET", "/opportunities/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
