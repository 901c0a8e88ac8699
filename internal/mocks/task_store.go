package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
// The default implementation keeps tasks in memory and honors owner scoping;
// function fields override individual methods when set.
type MockTaskStore struct {
	mu sync.Mutex

	// Function fields for customizable behavior
	CreateFn           func(ctx context.Context, task *domain.Task) error
	GetForUserFn       func(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)
	UpdateFn           func(ctx context.Context, task *domain.Task) error
	DeleteFn           func(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)
	ListFn             func(ctx context.Context, userID uuid.UUID, filters store.TaskListFilters) (*store.TaskPage, error)
	CountByStatusFn    func(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error)
	CountOverdueFn     func(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	CompletionStatsFn  func(ctx context.Context, userID uuid.UUID, since time.Time) (*store.CompletionStats, error)
	DailyCompletionsFn func(ctx context.Context, userID uuid.UUID, since time.Time) ([]store.DailyCount, error)

	// Data for default implementation
	Tasks map[uuid.UUID]*domain.Task
	Err   error
}

// NewMockTaskStore creates a new mock store with initialized defaults
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		Tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks[task.ID] = task
	return nil
}

// GetForUser implements the TaskStore interface
func (m *MockTaskStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	if m.GetForUserFn != nil {
		return m.GetForUserFn(ctx, userID, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.Tasks[id]
	if !ok || task.UserID != userID {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return store.ErrTaskNotFound
	}
	m.Tasks[task.ID] = task
	return nil
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, userID, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.Tasks[id]
	if !ok || task.UserID != userID {
		return nil, store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return task, nil
}

// List implements the TaskStore interface
func (m *MockTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filters store.TaskListFilters,
) (*store.TaskPage, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, filters)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*domain.Task{}
	for _, task := range m.Tasks {
		if task.UserID != userID {
			continue
		}
		if task.Archived && !filters.IncludeArchived {
			continue
		}
		if filters.Status != "" && task.Status != filters.Status {
			continue
		}
		if filters.Priority != "" && task.Priority != filters.Priority {
			continue
		}
		if filters.Search != "" {
			needle := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(task.Name), needle) &&
				!strings.Contains(strings.ToLower(task.Description), needle) {
				continue
			}
		}
		matched = append(matched, task)
	}

	// Newest first, matching the default sort
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &store.TaskPage{Tasks: matched[start:end], Total: total}, nil
}

// CountByStatus implements the TaskStore interface
func (m *MockTaskStore) CountByStatus(
	ctx context.Context,
	userID uuid.UUID,
) (map[domain.TaskStatus]int, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx, userID)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.TaskStatus]int)
	for _, task := range m.Tasks {
		if task.UserID == userID && !task.Archived {
			counts[task.Status]++
		}
	}
	return counts, nil
}

// CountOverdue implements the TaskStore interface
func (m *MockTaskStore) CountOverdue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int, error) {
	if m.CountOverdueFn != nil {
		return m.CountOverdueFn(ctx, userID, now)
	}
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, task := range m.Tasks {
		if task.UserID == userID && task.IsOverdue(now) {
			count++
		}
	}
	return count, nil
}

// CompletionStats implements the TaskStore interface
func (m *MockTaskStore) CompletionStats(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (*store.CompletionStats, error) {
	if m.CompletionStatsFn != nil {
		return m.CompletionStatsFn(ctx, userID, since)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &store.CompletionStats{}
	for _, task := range m.Tasks {
		if task.UserID != userID || task.Archived || task.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		if task.Status == domain.TaskStatusCompleted {
			stats.Completed++
		}
	}
	return stats, nil
}

// DailyCompletions implements the TaskStore interface
func (m *MockTaskStore) DailyCompletions(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([]store.DailyCount, error) {
	if m.DailyCompletionsFn != nil {
		return m.DailyCompletionsFn(ctx, userID, since)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := make(map[string]int)
	for _, task := range m.Tasks {
		if task.UserID != userID || task.Archived ||
			task.Status != domain.TaskStatusCompleted || task.CompletedAt == nil {
			continue
		}
		if task.CompletedAt.Before(since) {
			continue
		}
		byDay[task.CompletedAt.UTC().Format("2006-01-02")]++
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	counts := make([]store.DailyCount, 0, len(days))
	for _, day := range days {
		counts = append(counts, store.DailyCount{Date: day, Count: byDay[day]})
	}
	return counts, nil
}

// WithTx implements the TaskStore interface for transaction support
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	// For mock purposes, just return the same mock
	return m
}
