package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/platform/logger"
	"github.com/taskify/taskify-api/internal/store"
)

// sortColumns whitelists the API-level sort keys and maps them to the
// underlying column names. Anything outside this map falls back to created_at,
// which also keeps user input out of the ORDER BY clause.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"dueDate":   "due_date",
	"name":      "name",
	"priority":  "priority",
	"status":    "status",
}

const (
	defaultTaskPageLimit = 100
	maxTaskPageLimit     = 100
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed
// by the caller. If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, user_id, name, description, status, priority, due_date,
	completed_at, tags, estimated_hours, actual_hours, archived, created_at, updated_at`

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		tags,
		task.EstimatedHours,
		task.ActualHours,
		task.Archived,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, task.UserID)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetForUser implements store.TaskStore.GetForUser
// A task is only reachable through the id+owner pair. Returns
// store.ErrTaskNotFound whether the task is missing or owned by someone else.
func (s *PostgresTaskStore) GetForUser(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found",
				slog.String("task_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// Update implements store.TaskStore.Update
// It persists the task's current field values, scoped to its owner.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET name = $1, description = $2, status = $3, priority = $4,
			due_date = $5, completed_at = $6, tags = $7,
			estimated_hours = $8, actual_hours = $9, archived = $10,
			updated_at = $11
		WHERE id = $12 AND user_id = $13
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Name,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		tags,
		task.EstimatedHours,
		task.ActualHours,
		task.Archived,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)

	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		log.Debug("task not found for update",
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return err
	}

	log.Info("task updated successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// Delete implements store.TaskStore.Delete
// It removes the task and returns the deleted record so callers can echo it
// back in the response.
func (s *PostgresTaskStore) Delete(ctx context.Context, userID, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns + `
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for delete",
				slog.String("task_id", id.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	log.Info("task deleted successfully",
		slog.String("task_id", id.String()),
		slog.String("user_id", userID.String()))
	return task, nil
}

// List implements store.TaskStore.List
// It returns one page of the owner's tasks matching the filters plus the
// total match count. The total is computed over the same WHERE clause so the
// pagination block stays consistent with the page contents.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filters store.TaskListFilters,
) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskFilter(userID, filters)

	page := filters.Page
	if page < 1 {
		page = 1
	}
	limit := filters.Limit
	if limit <= 0 || limit > maxTaskPageLimit {
		limit = defaultTaskPageLimit
	}
	offset := (page - 1) * limit

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	column, ok := sortColumns[filters.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filters.SortOrder == store.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT `+taskColumns+`
		FROM tasks
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("listed tasks",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(tasks)),
		slog.Int("total", total))
	return &store.TaskPage{Tasks: tasks, Total: total}, nil
}

// CountByStatus implements store.TaskStore.CountByStatus
// The aggregation runs over the whole non-archived owned set, independent of
// any pagination window.
func (s *PostgresTaskStore) CountByStatus(
	ctx context.Context,
	userID uuid.UUID,
) (map[domain.TaskStatus]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND archived = FALSE
		GROUP BY status
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to count tasks by status",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, MapError(err)
		}
		counts[domain.TaskStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// CountOverdue implements store.TaskStore.CountOverdue
// Only non-archived, non-completed tasks with a due date strictly in the past
// count as overdue.
func (s *PostgresTaskStore) CountOverdue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*)
		FROM tasks
		WHERE user_id = $1
			AND archived = FALSE
			AND status <> $2
			AND due_date IS NOT NULL
			AND due_date < $3
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, userID, domain.TaskStatusCompleted, now.UTC()).Scan(&count)
	if err != nil {
		log.Error("failed to count overdue tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err)
	}

	return count, nil
}

// CompletionStats implements store.TaskStore.CompletionStats
func (s *PostgresTaskStore) CompletionStats(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (*store.CompletionStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $3)
		FROM tasks
		WHERE user_id = $1 AND archived = FALSE AND created_at >= $2
	`

	var stats store.CompletionStats
	err := s.db.QueryRowContext(ctx, query, userID, since.UTC(), domain.TaskStatusCompleted).
		Scan(&stats.Total, &stats.Completed)
	if err != nil {
		log.Error("failed to compute completion stats",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return &stats, nil
}

// DailyCompletions implements store.TaskStore.DailyCompletions
// Days with no completions are absent from the result; the caller fills gaps.
func (s *PostgresTaskStore) DailyCompletions(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) ([]store.DailyCount, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT TO_CHAR(completed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM tasks
		WHERE user_id = $1
			AND archived = FALSE
			AND status = $2
			AND completed_at IS NOT NULL
			AND completed_at >= $3
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, domain.TaskStatusCompleted, since.UTC())
	if err != nil {
		log.Error("failed to query daily completions",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	counts := []store.DailyCount{}
	for rows.Next() {
		var dc store.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, MapError(err)
		}
		counts = append(counts, dc)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// WithTx implements store.TaskStore.WithTx
// It returns a new store instance bound to the given transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// buildTaskFilter translates list filters into a WHERE clause and its
// positional arguments. The owner scope is always the first condition.
func buildTaskFilter(userID uuid.UUID, filters store.TaskListFilters) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if !filters.IncludeArchived {
		conditions = append(conditions, "archived = FALSE")
	}

	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filters.Priority != "" {
		args = append(args, filters.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		conditions = append(conditions,
			fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if filters.DueAfter != nil {
		args = append(args, filters.DueAfter.UTC())
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}

	if filters.DueBefore != nil {
		args = append(args, filters.DueBefore.UTC())
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTask reads a single task row. Tags are stored as a JSONB array.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status, priority string
	var dueDate, completedAt sql.NullTime
	var tags []byte
	var estimatedHours, actualHours sql.NullFloat64

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Name,
		&task.Description,
		&status,
		&priority,
		&dueDate,
		&completedAt,
		&tags,
		&estimatedHours,
		&actualHours,
		&task.Archived,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Priority = domain.TaskPriority(priority)
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if estimatedHours.Valid {
		v := estimatedHours.Float64
		task.EstimatedHours = &v
	}
	if actualHours.Valid {
		v := actualHours.Float64
		task.ActualHours = &v
	}

	task.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode task tags: %w", err)
		}
	}

	return &task, nil
}

// encodeTags serializes the tag list for the JSONB column. A nil slice is
// stored as an empty array so reads never see SQL NULL.
func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task tags: %w", err)
	}
	return data, nil
}
