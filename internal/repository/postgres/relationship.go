package postgres

import (
	"context"
	"database/sql"

	"booking/internal/domain"
	"booking/internal/repository"
)

// RelationshipRepository is a PostgreSQL implementation of repository.RelationshipRepository.
type RelationshipRepository struct {
	q Querier
}

// NewRelationshipRepository creates a new PostgreSQL relationship repository.
func NewRelationshipRepository(db *sql.DB) *RelationshipRepository {
	return &RelationshipRepository{q: db}
}

// NewRelationshipRepositoryWithTx creates a relationship repository using a transaction.
func NewRelationshipRepositoryWithTx(tx *sql.Tx) *RelationshipRepository {
	return &RelationshipRepository{q: tx}
}

// Create persists a new relationship.
func (r *RelationshipRepository) Create(ctx context.Context, rel *domain.UserRelationship) error {
	query := `INSERT INTO user_relationships (id, owner_id, member_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.q.ExecContext(ctx, query, rel.ID, rel.OwnerID, rel.MemberID, rel.CreatedAt)
	return mapError(err)
}

// GetByMemberID retrieves the relationship naming memberID.
func (r *RelationshipRepository) GetByMemberID(ctx context.Context, memberID string) (*domain.UserRelationship, error) {
	query := `SELECT id, owner_id, member_id, created_at FROM user_relationships WHERE member_id = $1`

	var rel domain.UserRelationship
	err := r.q.QueryRowContext(ctx, query, memberID).Scan(&rel.ID, &rel.OwnerID, &rel.MemberID, &rel.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &rel, nil
}

// DeleteByMemberID removes every relationship naming memberID.
func (r *RelationshipRepository) DeleteByMemberID(ctx context.Context, memberID string) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM user_relationships WHERE member_id = $1`, memberID)
	if err != nil {
		return 0, mapError(err)
	}
	return result.RowsAffected()
}

// Ensure RelationshipRepository implements repository.RelationshipRepository.
var _ repository.RelationshipRepository = (*RelationshipRepository)(nil)
