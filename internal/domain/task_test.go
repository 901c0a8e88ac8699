package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	userID := uuid.New()

	task, err := NewTask(userID, "Buy milk", WithPriority(TaskPriorityLow))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if task.UserID != userID {
		t.Errorf("Expected owner %s, got %s", userID, task.UserID)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("Expected default status pending, got %s", task.Status)
	}
	if task.Priority != TaskPriorityLow {
		t.Errorf("Expected priority low, got %s", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Error("Expected CompletedAt to be unset on creation")
	}
	if task.Tags == nil {
		t.Error("Expected empty tag slice, got nil")
	}

	// Name falls back to the default when blank
	task, err = NewTask(userID, "   ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.Name != DefaultTaskName {
		t.Errorf("Expected default name %q, got %q", DefaultTaskName, task.Name)
	}
	if task.Priority != TaskPriorityMedium {
		t.Errorf("Expected default priority medium, got %s", task.Priority)
	}

	// Missing owner
	_, err = NewTask(uuid.Nil, "Buy milk")
	if err != ErrEmptyTaskOwner {
		t.Errorf("Expected error %v, got %v", ErrEmptyTaskOwner, err)
	}

	// Overlong name
	_, err = NewTask(userID, strings.Repeat("x", 201))
	if err != ErrTaskNameTooLong {
		t.Errorf("Expected error %v, got %v", ErrTaskNameTooLong, err)
	}

	// Overlong description
	_, err = NewTask(userID, "ok", WithDescription(strings.Repeat("y", 1001)))
	if err != ErrDescriptionTooLong {
		t.Errorf("Expected error %v, got %v", ErrDescriptionTooLong, err)
	}

	// Negative estimate
	_, err = NewTask(userID, "ok", WithEstimatedHours(-1))
	if err != ErrNegativeHours {
		t.Errorf("Expected error %v, got %v", ErrNegativeHours, err)
	}
}

func TestApplyStatusCompletionInvariant(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	task, err := NewTask(uuid.New(), "Finish report")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// pending -> completed stamps CompletedAt
	if err := task.ApplyStatus(TaskStatusCompleted, now); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Errorf("Expected CompletedAt %v, got %v", now, task.CompletedAt)
	}

	// re-applying completed keeps the original timestamp
	later := now.Add(time.Hour)
	if err := task.ApplyStatus(TaskStatusCompleted, later); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !task.CompletedAt.Equal(now) {
		t.Errorf("Expected CompletedAt to stay %v, got %v", now, task.CompletedAt)
	}

	// completed -> pending clears CompletedAt
	if err := task.ApplyStatus(TaskStatusPending, later); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.CompletedAt != nil {
		t.Errorf("Expected CompletedAt cleared, got %v", task.CompletedAt)
	}

	// any non-completed transition keeps it cleared
	if err := task.ApplyStatus(TaskStatusCancelled, later); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.CompletedAt != nil {
		t.Errorf("Expected CompletedAt cleared, got %v", task.CompletedAt)
	}

	// unknown status is rejected
	if err := task.ApplyStatus(TaskStatus("paused"), later); err != ErrInvalidTaskStatus {
		t.Errorf("Expected error %v, got %v", ErrInvalidTaskStatus, err)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	cases := []struct {
		name    string
		due     *time.Time
		status  TaskStatus
		archive bool
		want    bool
	}{
		{"no due date", nil, TaskStatusPending, false, false},
		{"due in the future", &future, TaskStatusPending, false, false},
		{"past due, pending", &past, TaskStatusPending, false, true},
		{"past due, in progress", &past, TaskStatusInProgress, false, true},
		{"past due, completed", &past, TaskStatusCompleted, false, false},
		{"past due, archived", &past, TaskStatusPending, true, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			task := Task{
				ID:       uuid.New(),
				UserID:   uuid.New(),
				Name:     "t",
				Status:   c.status,
				Priority: TaskPriorityMedium,
				DueDate:  c.due,
				Archived: c.archive,
			}
			if got := task.IsOverdue(now); got != c.want {
				t.Errorf("IsOverdue() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDaysUntilDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	task := Task{ID: uuid.New(), UserID: uuid.New(), Name: "t", Status: TaskStatusPending, Priority: TaskPriorityLow}
	if task.DaysUntilDue(now) != nil {
		t.Error("Expected nil for task without a due date")
	}

	due := now.Add(36 * time.Hour)
	task.DueDate = &due
	if got := task.DaysUntilDue(now); got == nil || *got != 2 {
		t.Errorf("Expected 2 days until due, got %v", got)
	}

	overdue := now.Add(-36 * time.Hour)
	task.DueDate = &overdue
	if got := task.DaysUntilDue(now); got == nil || *got != -1 {
		t.Errorf("Expected -1 days until due, got %v", got)
	}
}
