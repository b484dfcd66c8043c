package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking/internal/domain"
	"booking/internal/logger"
	"booking/internal/metrics"
	"booking/internal/repository"
)

// inviteTokenBytes is the amount of randomness in an invitation token.
const inviteTokenBytes = 32

// InvitationService handles issuing and redeeming member invitations.
type InvitationService struct {
	invitations repository.InvitationRepository
	users       repository.UserRepository
	tx          repository.Transactor
	logger      *zap.Logger
	clock       func() time.Time
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(
	invitations repository.InvitationRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	log *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		users:       users,
		tx:          tx,
		logger:      logger.OrNop(log),
		clock:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *InvitationService) WithClock(clock func() time.Time) *InvitationService {
	s.clock = clock
	return s
}

// CreateInvitationRequest contains the parameters for inviting a member.
type CreateInvitationRequest struct {
	OwnerID     string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// CreateInvitation issues a new invitation on behalf of an owner.
func (s *InvitationService) CreateInvitation(ctx context.Context, req CreateInvitationRequest) (*domain.Invitation, error) {
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.OwnerID == "" || req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" {
		return nil, validationError("ownerId, firstName, lastName and phoneNumber are required")
	}

	owner, err := s.users.GetByID(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, storeError("get owner", err)
	}
	if !owner.IsOwner() {
		return nil, fmt.Errorf("%w: user %s is not an owner", ErrOwnerNotFound, owner.ID)
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, fmt.Errorf("%w: generate invite token: %v", ErrPersistence, err)
	}

	now := s.clock().UTC()
	inv := &domain.Invitation{
		ID:          uuid.New().String(),
		OwnerUserID: owner.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Status:      domain.InvitationStatusInvited,
		InviteToken: token,
		ExpiresAt:   now.Add(domain.InvitationTTL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, storeError("create invitation", err)
	}

	metrics.InvitationEvent(metrics.InvitationCreated, 1)
	s.logger.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("owner_id", owner.ID),
	)
	return inv, nil
}

// GetInvitation looks up a redeemable invitation by token. An invitation
// found past its expiry is marked expired and reported as not found.
func (s *InvitationService) GetInvitation(ctx context.Context, token string) (*domain.Invitation, error) {
	if token == "" {
		return nil, validationError("token is required")
	}

	inv, err := s.invitations.GetInvitedByToken(ctx, token)
	if err != nil {
		return nil, storeError("get invitation", err)
	}

	now := s.clock().UTC()
	if inv.ExpiredAt(now) {
		s.expire(ctx, inv.ID, now)
		return nil, fmt.Errorf("%w: invitation expired", repository.ErrNotFound)
	}
	return inv, nil
}

// AcceptInvitationRequest contains the parameters for redeeming an invitation.
type AcceptInvitationRequest struct {
	InviteToken string
	Email       string
}

// AcceptInvitation redeems an invitation: the claim, the member account and
// the owner relationship are written in one transaction. Returns the new
// member's user id.
func (s *InvitationService) AcceptInvitation(ctx context.Context, req AcceptInvitationRequest) (string, error) {
	if req.InviteToken == "" {
		return "", validationError("inviteToken is required")
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return "", validationError("email %q is malformed", email)
		}
	}

	inv, err := s.invitations.GetInvitedByToken(ctx, req.InviteToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.InvitationEvent(metrics.InvitationRejected, 1)
			return "", ErrInvalidInvitation
		}
		return "", storeError("get invitation", err)
	}

	now := s.clock().UTC()
	if !inv.Redeemable(now) {
		s.expire(ctx, inv.ID, now)
		metrics.InvitationEvent(metrics.InvitationRejected, 1)
		return "", ErrInvalidInvitation
	}

	memberID := uuid.New().String()
	err = s.tx.WithinTx(ctx, func(store repository.AccountStore) error {
		if err := store.Invitations().MarkAccepted(ctx, inv.ID, memberID, now); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrInvalidInvitation
			}
			return err
		}

		owner, err := store.Users().GetByID(ctx, inv.OwnerUserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrOwnerNotFound
			}
			return err
		}
		if !owner.IsOwner() {
			return fmt.Errorf("%w: user %s is not an owner", ErrOwnerNotFound, owner.ID)
		}

		member := &domain.User{
			ID:          memberID,
			Role:        domain.UserRoleMember,
			OwnerID:     owner.ID,
			FirstName:   inv.FirstName,
			LastName:    inv.LastName,
			PhoneNumber: inv.PhoneNumber,
			Email:       email,
			Status:      domain.UserStatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.Users().Create(ctx, member); err != nil {
			return err
		}

		return store.Relationships().Create(ctx, &domain.UserRelationship{
			ID:        uuid.New().String(),
			OwnerID:   owner.ID,
			MemberID:  memberID,
			CreatedAt: now,
		})
	})
	if err != nil {
		metrics.InvitationEvent(metrics.InvitationRejected, 1)
		return "", storeError("accept invitation", err)
	}

	metrics.InvitationEvent(metrics.InvitationAccepted, 1)
	s.logger.Info("invitation accepted",
		zap.String("invitation_id", inv.ID),
		zap.String("owner_id", inv.OwnerUserID),
		zap.String("member_id", memberID),
	)
	return memberID, nil
}

// GetPendingInvitations returns an owner's invitations that can still be
// accepted, newest first.
func (s *InvitationService) GetPendingInvitations(ctx context.Context, ownerID string) ([]*domain.Invitation, error) {
	if ownerID == "" {
		return nil, validationError("owner id is required")
	}
	invitations, err := s.invitations.ListInvited(ctx, ownerID, s.clock().UTC())
	if err != nil {
		return nil, storeError("list invitations", err)
	}
	return invitations, nil
}

// CancelInvitation expires an invitation regardless of its expiry time.
func (s *InvitationService) CancelInvitation(ctx context.Context, invitationID string) error {
	if invitationID == "" {
		return validationError("invitation id is required")
	}
	if err := s.invitations.SetExpired(ctx, invitationID, s.clock().UTC()); err != nil {
		return storeError("cancel invitation", err)
	}
	metrics.InvitationEvent(metrics.InvitationCancelled, 1)
	return nil
}

// ExpireStale expires every invited invitation past its expiry and returns
// how many changed.
func (s *InvitationService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.invitations.ExpireAllOverdue(ctx, s.clock().UTC())
	if err != nil {
		return 0, storeError("expire invitations", err)
	}
	if n > 0 {
		metrics.InvitationEvent(metrics.InvitationExpired, int(n))
	}
	return n, nil
}

// expire flips an overdue invitation to expired. Failures are logged; the
// next sweep retries.
func (s *InvitationService) expire(ctx context.Context, id string, now time.Time) {
	changed, err := s.invitations.ExpireIfOverdue(ctx, id, now)
	if err != nil {
		s.logger.Warn("invitation expiry failed", zap.String("invitation_id", id), zap.Error(err))
		return
	}
	if changed {
		metrics.InvitationEvent(metrics.InvitationExpired, 1)
	}
}

func newInviteToken() (string, error) {
	b := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
