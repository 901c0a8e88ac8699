package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/api"
)

// apiDoer is the slice of Session the task list needs.
type apiDoer interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// TaskFilters mirror the listing endpoint's query parameters. Zero values
// are omitted from the query string.
type TaskFilters struct {
	Search          string
	Status          string
	Priority        string
	DueBefore       *time.Time
	DueAfter        *time.Time
	IncludeArchived bool
	Page            int
	Limit           int
	SortBy          string
	SortOrder       string
}

func (f TaskFilters) encode() string {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.DueBefore != nil {
		q.Set("dueBefore", f.DueBefore.Format(time.RFC3339))
	}
	if f.DueAfter != nil {
		q.Set("dueAfter", f.DueAfter.Format(time.RFC3339))
	}
	if f.IncludeArchived {
		q.Set("includeArchived", "true")
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SortBy != "" {
		q.Set("sortBy", f.SortBy)
	}
	if f.SortOrder != "" {
		q.Set("sortOrder", f.SortOrder)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// TaskList keeps a local mirror of the user's tasks that stays responsive
// under network latency. Mutations apply to the mirror immediately and are
// reconciled against the server's authoritative response.
//
// Responses to updates of the same task are resolved by logical mutation
// sequence, not network arrival order: a stale response never overwrites the
// effect of a later mutation.
type TaskList struct {
	api    apiDoer
	logger *slog.Logger

	mu           sync.Mutex
	tasks        []api.TaskResponse
	stats        api.TaskStatsResponse
	overdueCount int
	lastFilters  TaskFilters

	nextSeq uint64
	// latest pending mutation sequence per task id
	pending map[uuid.UUID]uint64
}

// NewTaskList creates an empty task list bound to an API session.
func NewTaskList(session apiDoer, logger *slog.Logger) *TaskList {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskList{
		api:     session,
		logger:  logger,
		pending: make(map[uuid.UUID]uint64),
	}
}

// Tasks returns a snapshot of the visible list.
func (l *TaskList) Tasks() []api.TaskResponse {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]api.TaskResponse, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Stats returns the last fetched whole-set status counts.
func (l *TaskList) Stats() api.TaskStatsResponse {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// OverdueCount returns the last fetched whole-set overdue count.
func (l *TaskList) OverdueCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overdueCount
}

// Fetch replaces the visible list and aggregates with the server's
// authoritative snapshot. It is the only operation that can shrink
// inconsistency introduced by the optimistic paths; its errors are returned
// to the caller.
func (l *TaskList) Fetch(ctx context.Context, filters TaskFilters) error {
	var resp api.TaskListResponse
	if err := l.api.Do(ctx, http.MethodGet, "/tasks"+filters.encode(), nil, &resp); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = resp.Tasks
	l.stats = resp.Stats
	l.overdueCount = resp.OverdueCount
	l.lastFilters = filters
	return nil
}

// Create optimistically prepends a provisional record, issues the create
// call, and on success replaces the provisional entry in place with the
// authoritative one. On failure the provisional record is retained as a
// local-only entry until the next Fetch; create errors are not surfaced.
// The returned record is whichever version the list currently holds.
func (l *TaskList) Create(ctx context.Context, req api.CreateTaskRequest) api.TaskResponse {
	provisional := newProvisionalTask(req)

	l.mu.Lock()
	l.tasks = append([]api.TaskResponse{provisional}, l.tasks...)
	l.mu.Unlock()

	var created api.TaskResponse
	if err := l.api.Do(ctx, http.MethodPost, "/tasks", req, &created); err != nil {
		l.logger.Debug("task create not confirmed, keeping provisional entry",
			"provisionalId", provisional.ID, "error", err)
		return provisional
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tasks {
		if l.tasks[i].ID == provisional.ID {
			l.tasks[i] = created
			break
		}
	}
	return created
}

// Update applies the patch to the matching entry immediately and issues the
// call. The authoritative response is applied only if it resolves this
// task's latest mutation; on failure (of the latest mutation) the optimistic
// entry is kept and a full refetch forces reconciliation. Update errors are
// absorbed, per the protocol.
func (l *TaskList) Update(ctx context.Context, id uuid.UUID, patch api.UpdateTaskRequest) {
	l.mu.Lock()
	l.nextSeq++
	seq := l.nextSeq
	l.pending[id] = seq
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			applyTaskPatch(&l.tasks[i], patch)
			break
		}
	}
	l.mu.Unlock()

	var updated api.TaskResponse
	err := l.api.Do(ctx, http.MethodPatch, "/tasks/"+id.String(), patch, &updated)

	l.mu.Lock()
	latest := l.pending[id] == seq
	if latest {
		delete(l.pending, id)
	}
	if err == nil && latest {
		for i := range l.tasks {
			if l.tasks[i].ID == id {
				l.tasks[i] = updated
				break
			}
		}
	}
	filters := l.lastFilters
	l.mu.Unlock()

	if err != nil && latest {
		l.logger.Debug("task update not confirmed, refetching", "taskId", id, "error", err)
		if ferr := l.Fetch(ctx, filters); ferr != nil {
			l.logger.Warn("reconciliation refetch failed", "error", ferr)
		}
	}
}

// Delete removes the entry immediately and issues the call. On failure a
// full refetch restores whatever the server still holds.
func (l *TaskList) Delete(ctx context.Context, id uuid.UUID) {
	l.mu.Lock()
	for i := range l.tasks {
		if l.tasks[i].ID == id {
			l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			break
		}
	}
	filters := l.lastFilters
	l.mu.Unlock()

	if err := l.api.Do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil, nil); err != nil {
		l.logger.Debug("task delete not confirmed, refetching", "taskId", id, "error", err)
		if ferr := l.Fetch(ctx, filters); ferr != nil {
			l.logger.Warn("reconciliation refetch failed", "error", ferr)
		}
	}
}

// newProvisionalTask synthesizes a fully-formed local record with the same
// creation defaults the server applies.
func newProvisionalTask(req api.CreateTaskRequest) api.TaskResponse {
	now := time.Now().UTC()

	name := req.Name
	if name == "" {
		name = "Untitled Task"
	}
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	return api.TaskResponse{
		ID:             uuid.New(),
		Name:           name,
		Description:    req.Description,
		Status:         "pending",
		Priority:       priority,
		DueDate:        req.DueDate,
		Tags:           tags,
		EstimatedHours: req.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// applyTaskPatch mirrors the server's partial-update semantics on the local
// record, including the completedAt invariant.
func applyTaskPatch(task *api.TaskResponse, patch api.UpdateTaskRequest) {
	now := time.Now().UTC()

	if patch.Name != nil {
		task.Name = *patch.Name
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.Tags != nil {
		task.Tags = patch.Tags
	}
	if patch.EstimatedHours != nil {
		task.EstimatedHours = patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		task.ActualHours = patch.ActualHours
	}
	if patch.Archived != nil {
		task.Archived = *patch.Archived
	}
	if patch.Status != nil {
		switch {
		case *patch.Status == "completed" && task.Status != "completed":
			completed := now
			task.CompletedAt = &completed
		case *patch.Status != "completed":
			task.CompletedAt = nil
		}
		task.Status = *patch.Status
	}
	task.UpdatedAt = now
}
