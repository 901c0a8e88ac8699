package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskify/taskify-api/internal/api/shared"
	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/mocks"
	"github.com/taskify/taskify-api/internal/store"
)

// newTaskHandlerForTest wires the handler to a mock store and bypasses the
// real database transaction runner.
func newTaskHandlerForTest(taskStore *mocks.MockTaskStore, now time.Time) *TaskHandler {
	h := NewTaskHandler(taskStore, nil)
	h.timeFunc = func() time.Time { return now }
	h.runInTx = func(ctx context.Context, db *sql.DB, fn store.TxFn) error {
		return fn(ctx, nil)
	}
	return h
}

// authedRequest builds a request carrying an authenticated user ID and,
// optionally, a chi {id} path parameter.
func authedRequest(t *testing.T, method, target string, body interface{}, userID uuid.UUID, pathID string) *http.Request {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, target, reader)
	r.Header.Set("Content-Type", "application/json")

	ctx := shared.WithUserID(r.Context(), userID)
	if pathID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", pathID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return r.WithContext(ctx)
}

func decodeTaskData(t *testing.T, w *httptest.ResponseRecorder, target interface{}) shared.Envelope {
	t.Helper()
	envelope := decodeEnvelope(t, w)
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
	return envelope
}

func seedTask(t *testing.T, taskStore *mocks.MockTaskStore, userID uuid.UUID, opts ...domain.TaskOption) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(userID, "Seed task", opts...)
	require.NoError(t, err)
	require.NoError(t, taskStore.Create(context.Background(), task))
	return task
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("empty body gets creation defaults", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPost, "/api/tasks", map[string]interface{}{}, userID, "")
		w := httptest.NewRecorder()
		h.Create(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp TaskResponse
		envelope := decodeTaskData(t, w, &resp)
		assert.True(t, envelope.Success)
		assert.Equal(t, "Task created successfully", envelope.Message)
		assert.Equal(t, domain.DefaultTaskName, resp.Name)
		assert.Equal(t, string(domain.TaskStatusPending), resp.Status)
		assert.Equal(t, string(domain.TaskPriorityMedium), resp.Priority)
		assert.Equal(t, userID, resp.UserID)
		require.NotNil(t, resp.Tags)
		assert.Empty(t, resp.Tags)
		assert.Len(t, taskStore.Tasks, 1)
	})

	t.Run("all fields honored", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		h := newTaskHandlerForTest(taskStore, now)

		due := now.Add(72 * time.Hour)
		r := authedRequest(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"name":           "Ship release",
			"description":    "Cut the release branch",
			"priority":       "high",
			"dueDate":        due.Format(time.RFC3339),
			"tags":           []string{"release", "ops"},
			"estimatedHours": 2.5,
		}, userID, "")
		w := httptest.NewRecorder()
		h.Create(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		assert.Equal(t, "Ship release", resp.Name)
		assert.Equal(t, "high", resp.Priority)
		assert.Equal(t, []string{"release", "ops"}, resp.Tags)
		require.NotNil(t, resp.EstimatedHours)
		assert.InDelta(t, 2.5, *resp.EstimatedHours, 0.001)
		require.NotNil(t, resp.DaysUntilDue)
		assert.Equal(t, 3, *resp.DaysUntilDue)
		assert.False(t, resp.IsOverdue)
	})

	t.Run("invalid priority rejected", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(mocks.NewMockTaskStore(), now)

		r := authedRequest(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"name":     "Bad priority",
			"priority": "critical",
		}, userID, "")
		w := httptest.NewRecorder()
		h.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		envelope := decodeEnvelope(t, w)
		assert.False(t, envelope.Success)
		assert.NotEmpty(t, envelope.Errors)
	})

	t.Run("missing authentication", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(mocks.NewMockTaskStore(), now)

		body, err := json.Marshal(map[string]interface{}{"name": "X"})
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.Create(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("owned task", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/"+task.ID.String(), nil, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Get(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		envelope := decodeTaskData(t, w, &resp)
		assert.Equal(t, "Task retrieved successfully", envelope.Message)
		assert.Equal(t, task.ID, resp.ID)
	})

	t.Run("another user's task reads as not found", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, uuid.New())
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/"+task.ID.String(), nil, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		envelope := decodeEnvelope(t, w)
		assert.Equal(t, "Task not found", envelope.Message)
	})

	t.Run("malformed task ID", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(mocks.NewMockTaskStore(), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/not-a-uuid", nil, userID, "not-a-uuid")
		w := httptest.NewRecorder()
		h.Get(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("completing stamps completedAt", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"status": "completed"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		assert.Equal(t, string(domain.TaskStatusCompleted), resp.Status)
		require.NotNil(t, resp.CompletedAt)
		assert.True(t, resp.CompletedAt.Equal(now))
	})

	t.Run("re-completing keeps the original timestamp", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		earlier := now.Add(-48 * time.Hour)
		require.NoError(t, task.ApplyStatus(domain.TaskStatusCompleted, earlier))
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"status": "completed"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		require.NotNil(t, resp.CompletedAt)
		assert.True(t, resp.CompletedAt.Equal(earlier))
	})

	t.Run("reopening clears completedAt", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		require.NoError(t, task.ApplyStatus(domain.TaskStatusCompleted, now.Add(-time.Hour)))
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"status": "in-progress"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		assert.Equal(t, string(domain.TaskStatusInProgress), resp.Status)
		assert.Nil(t, resp.CompletedAt)
	})

	t.Run("archiving", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"isArchived": true}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		assert.True(t, resp.Archived)
	})

	t.Run("partial patch leaves other fields alone", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID,
			domain.WithDescription("keep me"), domain.WithPriority(domain.TaskPriorityHigh))
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"name": "Renamed"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		decodeTaskData(t, w, &resp)
		assert.Equal(t, "Renamed", resp.Name)
		assert.Equal(t, "keep me", resp.Description)
		assert.Equal(t, "high", resp.Priority)
	})

	t.Run("invalid status enum rejected", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"status": "done"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("another user's task reads as not found", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, uuid.New())
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodPatch, "/api/tasks/"+task.ID.String(),
			map[string]interface{}{"name": "hijack"}, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Update(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("deleted record is echoed back", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		task := seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodDelete, "/api/tasks/"+task.ID.String(), nil, userID, task.ID.String())
		w := httptest.NewRecorder()
		h.Delete(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskResponse
		envelope := decodeTaskData(t, w, &resp)
		assert.Equal(t, "Task deleted successfully", envelope.Message)
		assert.Equal(t, task.ID, resp.ID)
		assert.Equal(t, task.Name, resp.Name)
		assert.Empty(t, taskStore.Tasks)
	})

	t.Run("already deleted", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(mocks.NewMockTaskStore(), now)

		id := uuid.New()
		r := authedRequest(t, http.MethodDelete, "/api/tasks/"+id.String(), nil, userID, id.String())
		w := httptest.NewRecorder()
		h.Delete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	seed := func(t *testing.T) *mocks.MockTaskStore {
		t.Helper()
		taskStore := mocks.NewMockTaskStore()

		pastDue := now.Add(-24 * time.Hour)
		overdue := seedTask(t, taskStore, userID, domain.WithDueDate(pastDue))

		inProgress := seedTask(t, taskStore, userID)
		require.NoError(t, inProgress.ApplyStatus(domain.TaskStatusInProgress, now))

		done := seedTask(t, taskStore, userID)
		require.NoError(t, done.ApplyStatus(domain.TaskStatusCompleted, now.Add(-time.Hour)))

		archived := seedTask(t, taskStore, userID)
		archived.Archived = true

		// Another user's task must never surface
		seedTask(t, taskStore, uuid.New())

		_ = overdue
		return taskStore
	}

	t.Run("default listing excludes archived", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(seed(t), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks", nil, userID, "")
		w := httptest.NewRecorder()
		h.List(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskListResponse
		envelope := decodeTaskData(t, w, &resp)
		assert.Equal(t, "Tasks retrieved successfully", envelope.Message)
		assert.Len(t, resp.Tasks, 3)
		assert.Equal(t, 3, resp.Pagination.Total)
		assert.Equal(t, 1, resp.Pagination.Page)
		assert.Equal(t, 100, resp.Pagination.Limit)
	})

	t.Run("stats cover the whole set regardless of pagination", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(seed(t), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks?page=1&limit=1", nil, userID, "")
		w := httptest.NewRecorder()
		h.List(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskListResponse
		decodeTaskData(t, w, &resp)
		assert.Len(t, resp.Tasks, 1)
		assert.Equal(t, 3, resp.Pagination.Total)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
		assert.Equal(t, 1, resp.Stats.Pending)
		assert.Equal(t, 1, resp.Stats.InProgress)
		assert.Equal(t, 1, resp.Stats.Completed)
		assert.Equal(t, 1, resp.OverdueCount)
	})

	t.Run("status filter narrows tasks but not stats", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(seed(t), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks?status=completed", nil, userID, "")
		w := httptest.NewRecorder()
		h.List(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TaskListResponse
		decodeTaskData(t, w, &resp)
		assert.Len(t, resp.Tasks, 1)
		assert.Equal(t, 1, resp.Pagination.Total)
		assert.Equal(t, 1, resp.Stats.Pending)
		assert.Equal(t, 1, resp.Stats.InProgress)
	})

	t.Run("invalid status filter rejected", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(seed(t), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks?status=done", nil, userID, "")
		w := httptest.NewRecorder()
		h.List(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid page rejected", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(seed(t), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks?page=0", nil, userID, "")
		w := httptest.NewRecorder()
		h.List(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStatsOverview(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("empty account", func(t *testing.T) {
		t.Parallel()
		h := newTaskHandlerForTest(mocks.NewMockTaskStore(), now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/stats/overview", nil, userID, "")
		w := httptest.NewRecorder()
		h.StatsOverview(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsOverviewResponse
		envelope := decodeTaskData(t, w, &resp)
		assert.Equal(t, "Stats retrieved successfully", envelope.Message)
		assert.Equal(t, 0, resp.TotalTasks)
		assert.Equal(t, 0, resp.CompletionRate)
		require.Len(t, resp.ProductivityTrend, 7)
		for _, day := range resp.ProductivityTrend {
			assert.Zero(t, day.Count)
		}
	})

	t.Run("completion rate is rounded", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		for i := 0; i < 2; i++ {
			task := seedTask(t, taskStore, userID)
			require.NoError(t, task.ApplyStatus(domain.TaskStatusCompleted, now.Add(-time.Hour)))
		}
		seedTask(t, taskStore, userID)
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/stats/overview", nil, userID, "")
		w := httptest.NewRecorder()
		h.StatsOverview(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsOverviewResponse
		decodeTaskData(t, w, &resp)
		assert.Equal(t, 67, resp.CompletionRate)
		assert.Equal(t, 3, resp.TotalTasks)
		assert.Equal(t, 2, resp.TaskStats.Completed)
	})

	t.Run("trend is zero-filled and oldest first", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()

		today := seedTask(t, taskStore, userID)
		require.NoError(t, today.ApplyStatus(domain.TaskStatusCompleted, now))
		twoDaysAgo := seedTask(t, taskStore, userID)
		require.NoError(t, twoDaysAgo.ApplyStatus(domain.TaskStatusCompleted, now.AddDate(0, 0, -2)))
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/stats/overview", nil, userID, "")
		w := httptest.NewRecorder()
		h.StatsOverview(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp StatsOverviewResponse
		decodeTaskData(t, w, &resp)
		require.Len(t, resp.ProductivityTrend, 7)

		assert.Equal(t, now.AddDate(0, 0, -6).Format("2006-01-02"), resp.ProductivityTrend[0].Date)
		assert.Equal(t, now.Format("2006-01-02"), resp.ProductivityTrend[6].Date)
		assert.Equal(t, 1, resp.ProductivityTrend[6].Count)
		assert.Equal(t, 1, resp.ProductivityTrend[4].Count)
		assert.Equal(t, 0, resp.ProductivityTrend[5].Count)
	})

	t.Run("store failure surfaces as internal error", func(t *testing.T) {
		t.Parallel()
		taskStore := mocks.NewMockTaskStore()
		taskStore.Err = sql.ErrConnDone
		h := newTaskHandlerForTest(taskStore, now)

		r := authedRequest(t, http.MethodGet, "/api/tasks/stats/overview", nil, userID, "")
		w := httptest.NewRecorder()
		h.StatsOverview(w, r)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
