package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn         func(ctx context.Context, user *domain.User) error
	GetByEmailFn     func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn        func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateFn         func(ctx context.Context, user *domain.User) error
	TouchLastLoginFn func(ctx context.Context, id uuid.UUID, at time.Time) error

	// Data for default implementation, keyed by normalized email
	Users           map[string]*domain.User
	LastUserID      uuid.UUID
	CreateError     error
	GetByEmailError error
}

// NewMockUserStore creates a new mock store with initialized defaults
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		Users: make(map[string]*domain.User),
	}
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}

	if m.CreateError != nil {
		return m.CreateError
	}

	if _, exists := m.Users[user.Email]; exists {
		return store.ErrEmailExists
	}

	m.Users[user.Email] = user
	m.LastUserID = user.ID
	return nil
}

// GetByEmail implements the UserStore interface
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}

	if m.GetByEmailError != nil {
		return nil, m.GetByEmailError
	}

	user, exists := m.Users[domain.NormalizeEmail(email)]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return user, nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	for _, user := range m.Users {
		if user.ID == id {
			return user, nil
		}
	}

	return nil, store.ErrUserNotFound
}

// Update implements the UserStore interface
func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}

	for email, existingUser := range m.Users {
		if existingUser.ID == user.ID {
			// If email changed, check it's not taken
			if email != user.Email {
				if _, exists := m.Users[user.Email]; exists {
					return store.ErrEmailExists
				}
				delete(m.Users, email)
			}

			m.Users[user.Email] = user
			return nil
		}
	}

	return store.ErrUserNotFound
}

// TouchLastLogin implements the UserStore interface
func (m *MockUserStore) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.TouchLastLoginFn != nil {
		return m.TouchLastLoginFn(ctx, id, at)
	}

	for _, user := range m.Users {
		if user.ID == id {
			t := at
			user.LastLoginAt = &t
			return nil
		}
	}

	return store.ErrUserNotFound
}

// WithTx implements the UserStore interface for transaction support
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	// For mock purposes, just return the same mock
	return m
}
