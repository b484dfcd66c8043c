package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking/internal/domain"
	"booking/internal/logger"
	"booking/internal/repository"
)

// MemberService manages owner accounts and the members attached to them.
type MemberService struct {
	users  repository.UserRepository
	tx     repository.Transactor
	logger *zap.Logger
	clock  func() time.Time
}

// NewMemberService creates a new MemberService.
func NewMemberService(users repository.UserRepository, tx repository.Transactor, log *zap.Logger) *MemberService {
	return &MemberService{
		users:  users,
		tx:     tx,
		logger: logger.OrNop(log),
		clock:  time.Now,
	}
}

// WithClock replaces the time source.
func (s *MemberService) WithClock(clock func() time.Time) *MemberService {
	s.clock = clock
	return s
}

// RegisterOwnerRequest contains the parameters for registering an owner.
type RegisterOwnerRequest struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
}

// RegisterOwner creates a new owner account.
func (s *MemberService) RegisterOwner(ctx context.Context, req RegisterOwnerRequest) (*domain.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Email = strings.TrimSpace(req.Email)
	if req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" {
		return nil, validationError("firstName, lastName and phoneNumber are required")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, validationError("email %q is malformed", req.Email)
		}
	}

	now := s.clock().UTC()
	owner := &domain.User{
		ID:          uuid.New().String(),
		Role:        domain.UserRoleOwner,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Status:      domain.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, owner); err != nil {
		return nil, storeError("create owner", err)
	}
	s.logger.Info("owner registered", zap.String("user_id", owner.ID))
	return owner, nil
}

// ListMembers returns the members of an owner, newest first.
func (s *MemberService) ListMembers(ctx context.Context, ownerID string) ([]*domain.User, error) {
	if ownerID == "" {
		return nil, validationError("owner id is required")
	}
	members, err := s.users.ListMembers(ctx, ownerID)
	if err != nil {
		return nil, storeError("list members", err)
	}
	return members, nil
}

// UpdateMemberStatus freezes or reactivates a member.
func (s *MemberService) UpdateMemberStatus(ctx context.Context, memberID string, status domain.UserStatus) error {
	if memberID == "" {
		return validationError("member id is required")
	}
	if !domain.ValidUserStatus(status) {
		return validationError("unknown member status %q", status)
	}

	member, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return storeError("get member", err)
	}
	if member.Role != domain.UserRoleMember {
		return validationError("user %s is not a member", memberID)
	}

	if err := s.users.UpdateStatus(ctx, memberID, status); err != nil {
		return storeError("update member status", err)
	}
	s.logger.Info("member status updated",
		zap.String("member_id", memberID),
		zap.String("status", string(status)),
	)
	return nil
}

// RemoveMember deletes a member account and its owner relationship in one
// transaction. Invitations and orders referencing the member are kept.
func (s *MemberService) RemoveMember(ctx context.Context, memberID string) error {
	if memberID == "" {
		return validationError("member id is required")
	}

	err := s.tx.WithinTx(ctx, func(store repository.AccountStore) error {
		member, err := store.Users().GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if member.Role != domain.UserRoleMember {
			return validationError("user %s is not a member", memberID)
		}
		if _, err := store.Relationships().DeleteByMemberID(ctx, memberID); err != nil {
			return err
		}
		return store.Users().Delete(ctx, memberID)
	})
	if err != nil {
		return storeError("remove member", err)
	}

	s.logger.Info("member removed", zap.String("member_id", memberID))
	return nil
}
