package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskify/taskify-api/internal/domain"
)

// Sort directions accepted by TaskListFilters.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// TaskListFilters describes the filtering, sorting and pagination options of
// a task listing. Zero values mean "no filter".
type TaskListFilters struct {
	// Search is matched as a case-insensitive substring against both the
	// task name and description.
	Search string

	// Status restricts results to a single lifecycle state.
	Status domain.TaskStatus

	// Priority restricts results to a single priority.
	Priority domain.TaskPriority

	// DueBefore / DueAfter bound the due date (inclusive).
	DueBefore *time.Time
	DueAfter  *time.Time

	// IncludeArchived widens the listing to archived tasks. The default
	// hides them.
	IncludeArchived bool

	// Page is 1-based. Limit caps the page size.
	Page  int
	Limit int

	// SortBy names a whitelisted column (createdAt, updatedAt, dueDate,
	// name, priority, status). SortOrder is SortAsc or SortDesc.
	SortBy    string
	SortOrder string
}

// TaskPage is one page of a task listing plus the total match count the
// pagination block is derived from.
type TaskPage struct {
	Tasks []*domain.Task
	Total int
}

// DailyCount is the number of tasks completed on a single day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CompletionStats summarizes completion over a trailing window.
type CompletionStats struct {
	Total     int
	Completed int
}

// TaskStore defines the interface for task data persistence. Every read and
// write is scoped by the owning user's ID; a task is only reachable through
// the id+owner compound key, never by id alone.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	// Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetForUser retrieves a task by ID, scoped to the given owner.
	// Returns ErrTaskNotFound if the task does not exist or belongs to a
	// different user; callers cannot distinguish the two cases.
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)

	// Update persists the task's current field values, scoped to its owner.
	// Returns ErrTaskNotFound if the task does not exist or is not owned by
	// task.UserID.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task, scoped to the owner, and returns the deleted
	// record. Returns ErrTaskNotFound if it does not exist or is not owned.
	Delete(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error)

	// List returns one page of the owner's tasks matching the filters,
	// along with the total number of matches.
	List(ctx context.Context, userID uuid.UUID, filters TaskListFilters) (*TaskPage, error)

	// CountByStatus aggregates the owner's non-archived tasks by status
	// over the entire owned set, independent of any pagination window.
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[domain.TaskStatus]int, error)

	// CountOverdue counts the owner's non-archived, non-completed tasks
	// whose due date is strictly before now.
	CountOverdue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)

	// CompletionStats reports how many of the owner's non-archived tasks
	// created since the given time are completed.
	CompletionStats(ctx context.Context, userID uuid.UUID, since time.Time) (*CompletionStats, error)

	// DailyCompletions returns per-day completion counts for non-archived
	// tasks completed since the given time, ordered by day ascending.
	DailyCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]DailyCount, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
