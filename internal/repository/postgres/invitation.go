package postgres

import (
	"context"
	"database/sql"
	"time"

	"booking/internal/domain"
	"booking/internal/repository"
)

// InvitationRepository is a PostgreSQL implementation of repository.InvitationRepository.
type InvitationRepository struct {
	q Querier
}

// NewInvitationRepository creates a new PostgreSQL invitation repository.
func NewInvitationRepository(db *sql.DB) *InvitationRepository {
	return &InvitationRepository{q: db}
}

// NewInvitationRepositoryWithTx creates an invitation repository using a transaction.
func NewInvitationRepositoryWithTx(tx *sql.Tx) *InvitationRepository {
	return &InvitationRepository{q: tx}
}

const invitationColumns = `id, owner_user_id, first_name, last_name, phone_number, status, invite_token, expires_at, accepted_at, accepted_user_id, created_at, updated_at`

func scanInvitation(s scanner) (*domain.Invitation, error) {
	var (
		inv            domain.Invitation
		acceptedAt     sql.NullTime
		acceptedUserID sql.NullString
	)
	err := s.Scan(
		&inv.ID,
		&inv.OwnerUserID,
		&inv.FirstName,
		&inv.LastName,
		&inv.PhoneNumber,
		&inv.Status,
		&inv.InviteToken,
		&inv.ExpiresAt,
		&acceptedAt,
		&acceptedUserID,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if acceptedUserID.Valid {
		inv.AcceptedUserID = acceptedUserID.String
	}
	return &inv, nil
}

// Create persists a new invitation.
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `INSERT INTO invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var acceptedAt sql.NullTime
	if inv.AcceptedAt != nil {
		acceptedAt = sql.NullTime{Time: *inv.AcceptedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		inv.ID,
		inv.OwnerUserID,
		inv.FirstName,
		inv.LastName,
		inv.PhoneNumber,
		inv.Status,
		inv.InviteToken,
		inv.ExpiresAt,
		acceptedAt,
		nullString(inv.AcceptedUserID),
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an invitation by ID.
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

// GetInvitedByToken retrieves an invitation by token while it is still invited.
func (r *InvitationRepository) GetInvitedByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE invite_token = $1 AND status = $2`
	inv, err := scanInvitation(r.q.QueryRowContext(ctx, query, token, domain.InvitationStatusInvited))
	if err != nil {
		return nil, mapError(err)
	}
	return inv, nil
}

// ListInvited retrieves an owner's unexpired invited invitations, newest first.
func (r *InvitationRepository) ListInvited(ctx context.Context, ownerID string, now time.Time) ([]*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations
		WHERE owner_user_id = $1 AND status = $2 AND expires_at >= $3
		ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, ownerID, domain.InvitationStatusInvited, now)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	invitations := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// MarkAccepted claims an invited, unexpired invitation. Concurrent callers
// serialize on the row lock; only the first sees a matching row.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id, memberID string, acceptedAt time.Time) error {
	query := `
		UPDATE invitations
		SET status = $1, accepted_at = $2, accepted_user_id = $3, updated_at = $2
		WHERE id = $4 AND status = $5 AND expires_at >= $2
	`
	result, err := r.q.ExecContext(ctx, query,
		domain.InvitationStatusAccepted,
		acceptedAt,
		memberID,
		id,
		domain.InvitationStatusInvited,
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrConflict
	}
	return nil
}

// ExpireIfOverdue flips an overdue invited invitation to expired.
func (r *InvitationRepository) ExpireIfOverdue(ctx context.Context, id string, now time.Time) (bool, error) {
	query := `
		UPDATE invitations
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND expires_at < $2
	`
	result, err := r.q.ExecContext(ctx, query, domain.InvitationStatusExpired, now, id, domain.InvitationStatusInvited)
	if err != nil {
		return false, mapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ExpireAllOverdue flips every overdue invited invitation to expired.
func (r *InvitationRepository) ExpireAllOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE invitations
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $2
	`
	result, err := r.q.ExecContext(ctx, query, domain.InvitationStatusExpired, now, domain.InvitationStatusInvited)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

// SetExpired forces an invitation to expired.
func (r *InvitationRepository) SetExpired(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE invitations SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.q.ExecContext(ctx, query, domain.InvitationStatusExpired, now, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// Ensure InvitationRepository implements repository.InvitationRepository.
var _ repository.InvitationRepository = (*InvitationRepository)(nil)
