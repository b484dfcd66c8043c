package repository

import (
	"context"

	"booking/internal/domain"
)

// UserRepository defines the persistence operations for owner and member accounts.
type UserRepository interface {
	// Create adds a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// ListMembers retrieves all members of an owner, newest first.
	ListMembers(ctx context.Context, ownerID string) ([]*domain.User, error)

	// UpdateStatus updates the status of a user.
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error

	// Delete removes a user.
	Delete(ctx context.Context, id string) error
}
