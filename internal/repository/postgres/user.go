package postgres

import (
	"context"
	"database/sql"

	"booking/internal/domain"
	"booking/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{q: db}
}

// NewUserRepositoryWithTx creates a user repository using a transaction.
func NewUserRepositoryWithTx(tx *sql.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, role, owner_id, first_name, last_name, phone_number, email, status, created_at, updated_at`

func scanUser(s scanner) (*domain.User, error) {
	var (
		user    domain.User
		ownerID sql.NullString
		email   sql.NullString
	)
	err := s.Scan(
		&user.ID,
		&user.Role,
		&ownerID,
		&user.FirstName,
		&user.LastName,
		&user.PhoneNumber,
		&email,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		user.OwnerID = ownerID.String
	}
	if email.Valid {
		user.Email = email.String
	}
	return &user, nil
}

// Create adds a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Role,
		nullString(user.OwnerID),
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		nullString(user.Email),
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// ListMembers retrieves all members of an owner, newest first.
func (r *UserRepository) ListMembers(ctx context.Context, ownerID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE owner_id = $1 AND role = $2 ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, query, ownerID, domain.UserRoleMember)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateStatus updates the status of a user.
func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	query := `UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// Ensure UserRepository implements repository.UserRepository.
var _ repository.UserRepository = (*UserRepository)(nil)
