package repository

import (
	"context"
	"time"

	"booking/internal/domain"
)

// InvitationRepository defines the persistence operations for invitations.
type InvitationRepository interface {
	// Create persists a new invitation.
	Create(ctx context.Context, inv *domain.Invitation) error

	// GetByID retrieves an invitation by ID.
	GetByID(ctx context.Context, id string) (*domain.Invitation, error)

	// GetInvitedByToken retrieves an invitation by token, only while it is
	// still in the invited status.
	GetInvitedByToken(ctx context.Context, token string) (*domain.Invitation, error)

	// ListInvited retrieves an owner's invitations still in the invited
	// status and not yet past expiry at now, newest first.
	ListInvited(ctx context.Context, ownerID string, now time.Time) ([]*domain.Invitation, error)

	// MarkAccepted claims an invited, unexpired invitation for memberID.
	// Returns ErrConflict if it is no longer redeemable.
	MarkAccepted(ctx context.Context, id, memberID string, acceptedAt time.Time) error

	// ExpireIfOverdue flips an invited invitation past expiry to expired.
	// Returns whether a row changed; repeating the call is a no-op.
	ExpireIfOverdue(ctx context.Context, id string, now time.Time) (bool, error)

	// ExpireAllOverdue flips every invited invitation past expiry to expired.
	ExpireAllOverdue(ctx context.Context, now time.Time) (int64, error)

	// SetExpired forces an invitation to expired regardless of its expiry.
	SetExpired(ctx context.Context, id string, now time.Time) error
}
