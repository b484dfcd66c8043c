package repository

import "context"

// AccountStore groups the repositories an account flow writes to.
type AccountStore interface {
	Users() UserRepository
	Relationships() RelationshipRepository
	Invitations() InvitationRepository
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits if fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(store AccountStore) error) error
}
