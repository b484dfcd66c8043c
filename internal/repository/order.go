package repository

import (
	"context"
	"time"

	"booking/internal/domain"
)

// Page bounds a listing query.
type Page struct {
	Limit  int
	Offset int
}

const (
	// DefaultPageLimit applies when a listing is requested without a limit.
	DefaultPageLimit = 100
	// MaxPageLimit caps any listing.
	MaxPageLimit = 500
)

// Normalize clamps the page to the allowed range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// OrderFilter narrows an order listing by billing attribution.
// Empty fields are not constrained; at least one must be set.
type OrderFilter struct {
	BilledToUserID string
	PlacedByUserID string
}

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching filter, newest first.
	List(ctx context.Context, filter OrderFilter, page Page) ([]*domain.Order, error)

	// Update overwrites the mutable fields of an order, excluding status and
	// history, provided the stored updatedAt still equals readAt. Returns
	// ErrConflict when the order changed since it was read.
	Update(ctx context.Context, order *domain.Order, readAt time.Time) error

	// TransitionStatus moves an order from `from` to entry.Status, appending entry to its
	// history. Returns ErrConflict if the order is no longer in `from`.
	TransitionStatus(ctx context.Context, id string, from domain.OrderStatus, entry domain.StatusEntry, updatedAt time.Time) error
}
