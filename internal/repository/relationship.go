package repository

import (
	"context"

	"booking/internal/domain"
)

// RelationshipRepository defines the persistence operations for owner/member links.
type RelationshipRepository interface {
	// Create persists a new relationship.
	Create(ctx context.Context, rel *domain.UserRelationship) error

	// GetByMemberID retrieves the relationship naming memberID.
	GetByMemberID(ctx context.Context, memberID string) (*domain.UserRelationship, error)

	// DeleteByMemberID removes every relationship naming memberID and
	// returns how many were removed.
	DeleteByMemberID(ctx context.Context, memberID string) (int64, error)
}
