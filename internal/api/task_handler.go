package api

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/taskify/taskify-api/internal/api/shared"
	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/platform/logger"
	"github.com/taskify/taskify-api/internal/store"
)

// Stats windows for the overview endpoint.
const (
	completionRateWindow    = 30 * 24 * time.Hour
	productivityTrendWindow = 7
)

// TaskHandler handles task-related API requests.
type TaskHandler struct {
	taskStore store.TaskStore
	db        *sql.DB
	timeFunc  func() time.Time
	runInTx   func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskStore store.TaskStore, db *sql.DB) *TaskHandler {
	return &TaskHandler{
		taskStore: taskStore,
		db:        db,
		timeFunc:  time.Now,
		runInTx:   store.RunInTransaction,
	}
}

// Create handles POST /api/tasks.
// Missing fields get creation defaults (untitled name, pending status,
// medium priority).
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed",
			shared.WithFieldErrors(shared.FieldErrorsFrom(err)))
		return
	}

	opts := []domain.TaskOption{}
	if req.Description != "" {
		opts = append(opts, domain.WithDescription(req.Description))
	}
	if req.Priority != "" {
		opts = append(opts, domain.WithPriority(domain.TaskPriority(req.Priority)))
	}
	if req.DueDate != nil {
		opts = append(opts, domain.WithDueDate(*req.DueDate))
	}
	if len(req.Tags) > 0 {
		opts = append(opts, domain.WithTags(req.Tags))
	}
	if req.EstimatedHours != nil {
		opts = append(opts, domain.WithEstimatedHours(*req.EstimatedHours))
	}

	task, err := domain.NewTask(userID, req.Name, opts...)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskStore.Create(r.Context(), task); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusCreated, "Task created successfully",
		NewTaskResponse(task, h.timeFunc()))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", nil)
	if !ok {
		return
	}

	task, err := h.taskStore.GetForUser(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task retrieved successfully",
		NewTaskResponse(task, h.timeFunc()))
}

// Update handles PATCH /api/tasks/{id}.
// The read-modify-write runs in a transaction so concurrent patches to the
// same task cannot interleave. Status transitions maintain the completedAt
// invariant: completed stamps it (idempotently), anything else clears it.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", nil)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed",
			shared.WithFieldErrors(shared.FieldErrorsFrom(err)))
		return
	}

	var updated *domain.Task
	err := h.runInTx(r.Context(), h.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := h.taskStore.WithTx(tx)

		task, err := txStore.GetForUser(ctx, userID, taskID)
		if err != nil {
			return err
		}

		if err := h.applyPatch(task, &req); err != nil {
			return err
		}

		if err := txStore.Update(ctx, task); err != nil {
			return err
		}

		updated = task
		return nil
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task updated successfully",
		NewTaskResponse(updated, h.timeFunc()))
}

// applyPatch copies the request's set fields onto the task.
func (h *TaskHandler) applyPatch(task *domain.Task, req *UpdateTaskRequest) error {
	if req.Name != nil {
		task.Name = *req.Name
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = domain.TaskPriority(*req.Priority)
	}
	if req.DueDate != nil {
		due := *req.DueDate
		task.DueDate = &due
	}
	if req.Tags != nil {
		task.Tags = req.Tags
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = req.EstimatedHours
	}
	if req.ActualHours != nil {
		task.ActualHours = req.ActualHours
	}
	if req.Archived != nil {
		task.Archived = *req.Archived
	}
	if req.Status != nil {
		if err := task.ApplyStatus(domain.TaskStatus(*req.Status), h.timeFunc().UTC()); err != nil {
			return err
		}
	}
	return task.Validate()
}

// Delete handles DELETE /api/tasks/{id}.
// The deleted record is echoed back so clients can reconcile.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", nil)
	if !ok {
		return
	}

	task, err := h.taskStore.Delete(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Task deleted successfully",
		NewTaskResponse(task, h.timeFunc()))
}

// List handles GET /api/tasks.
// The stats and overdue count cover the whole owned non-archived set,
// independent of the filters and pagination window.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	filters, err := parseTaskListFilters(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	now := h.timeFunc()

	page, err := h.taskStore.List(r.Context(), userID, filters)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	counts, err := h.taskStore.CountByStatus(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	overdue, err := h.taskStore.CountOverdue(r.Context(), userID, now)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks := make([]TaskResponse, 0, len(page.Tasks))
	for _, task := range page.Tasks {
		tasks = append(tasks, NewTaskResponse(task, now))
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	pageNum := filters.Page
	if pageNum < 1 {
		pageNum = 1
	}
	totalPages := 0
	if page.Total > 0 {
		totalPages = (page.Total + limit - 1) / limit
	}

	shared.RespondWithData(w, r, http.StatusOK, "Tasks retrieved successfully", TaskListResponse{
		Tasks: tasks,
		Pagination: PaginationResponse{
			Page:       pageNum,
			Limit:      limit,
			Total:      page.Total,
			TotalPages: totalPages,
		},
		Stats:        NewTaskStatsResponse(counts),
		OverdueCount: overdue,
	})
}

// StatsOverview handles GET /api/tasks/stats/overview.
// Completion rate covers a trailing 30-day window; the productivity trend is
// one entry per day for the trailing 7 days, zero-filled.
func (h *TaskHandler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	now := h.timeFunc().UTC()

	counts, err := h.taskStore.CountByStatus(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	overdue, err := h.taskStore.CountOverdue(r.Context(), userID, now)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	completion, err := h.taskStore.CompletionStats(r.Context(), userID, now.Add(-completionRateWindow))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	trendStart := now.AddDate(0, 0, -(productivityTrendWindow - 1)).Truncate(24 * time.Hour)
	daily, err := h.taskStore.DailyCompletions(r.Context(), userID, trendStart)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	completionRate := 0
	if completion.Total > 0 {
		completionRate = int(math.Round(float64(completion.Completed) / float64(completion.Total) * 100))
	}

	stats := NewTaskStatsResponse(counts)
	shared.RespondWithData(w, r, http.StatusOK, "Stats retrieved successfully", StatsOverviewResponse{
		TaskStats:         stats,
		TotalTasks:        stats.Total(),
		OverdueCount:      overdue,
		CompletionRate:    completionRate,
		ProductivityTrend: fillDailyTrend(daily, now, productivityTrendWindow),
	})
}

// fillDailyTrend expands sparse per-day counts into one entry per day over
// the window, oldest first, with zeros for silent days.
func fillDailyTrend(daily []store.DailyCount, now time.Time, days int) []store.DailyCount {
	byDay := make(map[string]int, len(daily))
	for _, dc := range daily {
		byDay[dc.Date] = dc.Count
	}

	trend := make([]store.DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		trend = append(trend, store.DailyCount{Date: day, Count: byDay[day]})
	}
	return trend
}

// parseTaskListFilters extracts listing filters from the query string.
// Unknown sort keys fall back to creation time; invalid enum values are
// rejected.
func parseTaskListFilters(r *http.Request) (store.TaskListFilters, error) {
	q := r.URL.Query()
	filters := store.TaskListFilters{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	if status := q.Get("status"); status != "" {
		s := domain.TaskStatus(status)
		if !s.IsValid() {
			return filters, domain.NewValidationError("status", "has invalid value", domain.ErrValidation)
		}
		filters.Status = s
	}

	if priority := q.Get("priority"); priority != "" {
		p := domain.TaskPriority(priority)
		if !p.IsValid() {
			return filters, domain.NewValidationError("priority", "has invalid value", domain.ErrValidation)
		}
		filters.Priority = p
	}

	if v := q.Get("dueBefore"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, domain.NewValidationError("dueBefore", "has invalid format", domain.ErrInvalidFormat)
		}
		filters.DueBefore = &t
	}

	if v := q.Get("dueAfter"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, domain.NewValidationError("dueAfter", "has invalid format", domain.ErrInvalidFormat)
		}
		filters.DueAfter = &t
	}

	if v := q.Get("includeArchived"); v != "" {
		filters.IncludeArchived = v == "true"
	}

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filters, domain.NewValidationError("page", "must be a positive integer", domain.ErrValidation)
		}
		filters.Page = page
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filters, domain.NewValidationError("limit", "must be a positive integer", domain.ErrValidation)
		}
		filters.Limit = limit
	}

	return filters, nil
}
