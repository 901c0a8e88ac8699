package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/store"
)

// Common request/response structures

// SignupRequest defines the payload for the user registration endpoint.
type SignupRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UpdateProfileRequest defines the payload for profile updates.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"  validate:"omitempty,min=2,max=50"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateTaskRequest defines the payload for task creation.
type CreateTaskRequest struct {
	Name           string     `json:"name"           validate:"max=200"`
	Description    string     `json:"description"    validate:"max=1000"`
	Priority       string     `json:"priority"       validate:"omitempty,oneof=low medium high urgent"`
	DueDate        *time.Time `json:"dueDate"`
	Tags           []string   `json:"tags"`
	EstimatedHours *float64   `json:"estimatedHours" validate:"omitempty,gte=0"`
}

// UpdateTaskRequest defines the payload for partial task updates.
// Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Name           *string    `json:"name,omitempty"           validate:"omitempty,min=1,max=200"`
	Description    *string    `json:"description,omitempty"    validate:"omitempty,max=1000"`
	Status         *string    `json:"status,omitempty"         validate:"omitempty,oneof=pending in-progress completed cancelled"`
	Priority       *string    `json:"priority,omitempty"       validate:"omitempty,oneof=low medium high urgent"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty" validate:"omitempty,gte=0"`
	ActualHours    *float64   `json:"actualHours,omitempty"    validate:"omitempty,gte=0"`
	Archived       *bool      `json:"isArchived,omitempty"`
}

// UserResponse is the wire representation of a user. The password hash never
// appears here.
type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewUserResponse converts a domain user into its wire representation.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		LastLogin: user.LastLoginAt,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// AuthResponse is the data payload of successful signup, login and refresh
// responses.
type AuthResponse struct {
	User         *UserResponse `json:"user,omitempty"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	ExpiresAt    string        `json:"expiresAt,omitempty"`
}

// TaskResponse is the wire representation of a task, extended with the
// derived isOverdue and daysUntilDue fields.
type TaskResponse struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"userId"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Tags           []string   `json:"tags"`
	EstimatedHours *float64   `json:"estimatedHours,omitempty"`
	ActualHours    *float64   `json:"actualHours,omitempty"`
	Archived       bool       `json:"isArchived"`
	IsOverdue      bool       `json:"isOverdue"`
	DaysUntilDue   *int       `json:"daysUntilDue,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// NewTaskResponse converts a domain task into its wire representation,
// computing the derived fields relative to now.
func NewTaskResponse(task *domain.Task, now time.Time) TaskResponse {
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskResponse{
		ID:             task.ID,
		UserID:         task.UserID,
		Name:           task.Name,
		Description:    task.Description,
		Status:         string(task.Status),
		Priority:       string(task.Priority),
		DueDate:        task.DueDate,
		CompletedAt:    task.CompletedAt,
		Tags:           tags,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Archived:       task.Archived,
		IsOverdue:      task.IsOverdue(now),
		DaysUntilDue:   task.DaysUntilDue(now),
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
}

// TaskStatsResponse aggregates the owner's non-archived tasks by status.
type TaskStatsResponse struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// NewTaskStatsResponse converts a status-count map into the wire shape.
func NewTaskStatsResponse(counts map[domain.TaskStatus]int) TaskStatsResponse {
	return TaskStatsResponse{
		Pending:    counts[domain.TaskStatusPending],
		InProgress: counts[domain.TaskStatusInProgress],
		Completed:  counts[domain.TaskStatusCompleted],
		Cancelled:  counts[domain.TaskStatusCancelled],
	}
}

// Total sums the per-status counts.
func (s TaskStatsResponse) Total() int {
	return s.Pending + s.InProgress + s.Completed + s.Cancelled
}

// PaginationResponse describes the window a task listing returned.
type PaginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// TaskListResponse is the data payload of the task listing endpoint. Stats
// and OverdueCount cover the whole owned non-archived set, not just the page.
type TaskListResponse struct {
	Tasks        []TaskResponse     `json:"tasks"`
	Pagination   PaginationResponse `json:"pagination"`
	Stats        TaskStatsResponse  `json:"stats"`
	OverdueCount int                `json:"overdueCount"`
}

// StatsOverviewResponse is the data payload of the stats overview endpoint.
type StatsOverviewResponse struct {
	TaskStats         TaskStatsResponse  `json:"taskStats"`
	TotalTasks        int                `json:"totalTasks"`
	OverdueCount      int                `json:"overdueCount"`
	CompletionRate    int                `json:"completionRate"`
	ProductivityTrend []store.DailyCount `json:"productivityTrend"`
}

// MemoryStats reports process memory usage in the health response.
type MemoryStats struct {
	AllocMB      uint64 `json:"allocMB"`
	TotalAllocMB uint64 `json:"totalAllocMB"`
	SysMB        uint64 `json:"sysMB"`
	NumGC        uint32 `json:"numGC"`
}

// HealthResponse is the data payload of the health endpoint.
type HealthResponse struct {
	Status    string      `json:"status"`
	Database  string      `json:"database"`
	Uptime    string      `json:"uptime"`
	Memory    MemoryStats `json:"memory"`
	GoVersion string      `json:"goVersion"`
	Timestamp time.Time   `json:"timestamp"`
}
