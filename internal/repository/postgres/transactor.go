package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"booking/internal/repository"
)

// Transactor implements repository.Transactor on top of database/sql.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a new Transactor.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

type txStore struct {
	tx *sql.Tx
}

func (s txStore) Users() repository.UserRepository { return NewUserRepositoryWithTx(s.tx) }
func (s txStore) Relationships() repository.RelationshipRepository {
	return NewRelationshipRepositoryWithTx(s.tx)
}
func (s txStore) Invitations() repository.InvitationRepository {
	return NewInvitationRepositoryWithTx(s.tx)
}

// WithinTx runs fn inside a transaction, committing only if fn succeeds. A
// panic in fn rolls back before it propagates.
func (t *Transactor) WithinTx(ctx context.Context, fn func(store repository.AccountStore) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(txStore{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ensure Transactor implements repository.Transactor.
var _ repository.Transactor = (*Transactor)(nil)
