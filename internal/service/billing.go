package service

import (
	"context"
	"errors"

	"booking/internal/domain"
	"booking/internal/repository"
)

// BillingResolver answers who pays for an order and which orders a user
// may see as an owner or as a member.
type BillingResolver struct {
	orders repository.OrderRepository
	users  repository.UserRepository
}

// NewBillingResolver creates a new BillingResolver.
func NewBillingResolver(orders repository.OrderRepository, users repository.UserRepository) *BillingResolver {
	return &BillingResolver{
		orders: orders,
		users:  users,
	}
}

// OrdersForOwner returns orders billed to ownerID, newest first.
func (r *BillingResolver) OrdersForOwner(ctx context.Context, ownerID string, page repository.Page) ([]*domain.Order, error) {
	if ownerID == "" {
		return nil, validationError("owner id is required")
	}
	orders, err := r.orders.List(ctx, repository.OrderFilter{BilledToUserID: ownerID}, page)
	return orders, storeError("list owner orders", err)
}

// OrdersForMember returns orders placed by memberID, newest first.
func (r *BillingResolver) OrdersForMember(ctx context.Context, memberID string, page repository.Page) ([]*domain.Order, error) {
	if memberID == "" {
		return nil, validationError("member id is required")
	}
	orders, err := r.orders.List(ctx, repository.OrderFilter{PlacedByUserID: memberID}, page)
	return orders, storeError("list member orders", err)
}

// OrdersByMemberForOwner returns orders placed by memberID and billed to
// ownerID, newest first.
func (r *BillingResolver) OrdersByMemberForOwner(ctx context.Context, ownerID, memberID string, page repository.Page) ([]*domain.Order, error) {
	if ownerID == "" || memberID == "" {
		return nil, validationError("owner id and member id are required")
	}
	orders, err := r.orders.List(ctx, repository.OrderFilter{
		BilledToUserID: ownerID,
		PlacedByUserID: memberID,
	}, page)
	return orders, storeError("list member orders for owner", err)
}

// IsOwner reports whether userID names an owner account. An unknown user
// is not an owner.
func (r *BillingResolver) IsOwner(ctx context.Context, userID string) (bool, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, storeError("get user", err)
	}
	return user.IsOwner(), nil
}

// OwnerOfMember returns the owner of memberID, or nil when the user has no
// owner.
func (r *BillingResolver) OwnerOfMember(ctx context.Context, memberID string) (*domain.User, error) {
	member, err := r.users.GetByID(ctx, memberID)
	if err != nil {
		return nil, storeError("get member", err)
	}
	if member.OwnerID == "" {
		return nil, nil
	}
	owner, err := r.users.GetByID(ctx, member.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, storeError("get owner", err)
	}
	return owner, nil
}

// Attribute returns the user an order placed by userID is billed to:
// a member's owner, or the user itself.
func (r *BillingResolver) Attribute(ctx context.Context, userID string) (string, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", validationError("unknown user %q", userID)
		}
		return "", storeError("get user", err)
	}
	if user.Role == domain.UserRoleMember && user.OwnerID != "" {
		return user.OwnerID, nil
	}
	return user.ID, nil
}
