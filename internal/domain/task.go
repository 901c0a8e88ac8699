package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common task validation errors
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwner     = errors.New("task owner cannot be empty")
	ErrTaskNameTooLong    = errors.New("task name must be at most 200 characters long")
	ErrEmptyTaskName      = errors.New("task name cannot be empty")
	ErrDescriptionTooLong = errors.New("task description must be at most 1000 characters long")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrInvalidPriority    = errors.New("invalid task priority")
	ErrNegativeHours      = errors.New("hours cannot be negative")
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid reports whether the status is one of the known values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// IsValid reports whether the priority is one of the known values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return true
	}
	return false
}

// DefaultTaskName is used when a task is created without a name.
const DefaultTaskName = "Untitled Task"

// Task represents a single task owned by a user.
// A task always belongs to exactly one owner; every store query is scoped by
// the owner's ID so tasks are never visible across accounts.
type Task struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"userId"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"dueDate,omitempty"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	Tags           []string     `json:"tags"`
	EstimatedHours *float64     `json:"estimatedHours,omitempty"`
	ActualHours    *float64     `json:"actualHours,omitempty"`
	Archived       bool         `json:"isArchived"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// NewTask creates a task owned by the given user, applying creation defaults:
// name falls back to DefaultTaskName, status to pending and priority to
// medium. Returns an error if validation fails.
func NewTask(userID uuid.UUID, name string, opts ...TaskOption) (*Task, error) {
	now := time.Now().UTC()

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTaskName
	}

	task := &Task{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Status:    TaskStatusPending,
		Priority:  TaskPriorityMedium,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, opt := range opts {
		opt(task)
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// TaskOption customizes a task at creation time.
type TaskOption func(*Task)

// WithDescription sets the task description.
func WithDescription(description string) TaskOption {
	return func(t *Task) { t.Description = strings.TrimSpace(description) }
}

// WithPriority overrides the default medium priority.
func WithPriority(priority TaskPriority) TaskOption {
	return func(t *Task) { t.Priority = priority }
}

// WithDueDate sets the due date.
func WithDueDate(due time.Time) TaskOption {
	return func(t *Task) { t.DueDate = &due }
}

// WithTags sets the tag list.
func WithTags(tags []string) TaskOption {
	return func(t *Task) {
		if tags == nil {
			tags = []string{}
		}
		t.Tags = tags
	}
}

// WithEstimatedHours sets the estimated effort.
func WithEstimatedHours(hours float64) TaskOption {
	return func(t *Task) { t.EstimatedHours = &hours }
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.UserID == uuid.Nil {
		return ErrEmptyTaskOwner
	}
	if t.Name == "" {
		return ErrEmptyTaskName
	}
	if len([]rune(t.Name)) > 200 {
		return ErrTaskNameTooLong
	}
	if len([]rune(t.Description)) > 1000 {
		return ErrDescriptionTooLong
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}
	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if t.EstimatedHours != nil && *t.EstimatedHours < 0 {
		return ErrNegativeHours
	}
	if t.ActualHours != nil && *t.ActualHours < 0 {
		return ErrNegativeHours
	}
	return nil
}

// ApplyStatus transitions the task to the given status and maintains the
// completion timestamp invariant: CompletedAt is set exactly when the status
// becomes completed and cleared on any transition away from it. The
// operation is idempotent; re-applying completed keeps the original
// timestamp.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidTaskStatus
	}

	switch {
	case status == TaskStatusCompleted && t.Status != TaskStatusCompleted:
		completed := now.UTC()
		t.CompletedAt = &completed
	case status != TaskStatusCompleted:
		t.CompletedAt = nil
	}

	t.Status = status
	return nil
}

// IsOverdue reports whether the task is past due at the given instant.
// Completed and archived tasks are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted || t.Archived {
		return false
	}
	return t.DueDate.Before(now)
}

// DaysUntilDue returns the number of whole days until the due date, rounded
// up, or nil when the task has no due date. Past-due tasks yield negative
// values.
func (t *Task) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	days := int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))
	return &days
}
