package tests

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"booking/internal/domain"
	"booking/internal/repository"
	"booking/internal/service"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func inviteRequest() service.CreateInvitationRequest {
	return service.CreateInvitationRequest{
		OwnerID:     "owner-1",
		FirstName:   "Ivy",
		LastName:    "Invitee",
		PhoneNumber: "+15550000009",
	}
}

func mustInvite(t *testing.T, f *invitationFixture) *domain.Invitation {
	t.Helper()
	inv, err := f.service.CreateInvitation(context.Background(), inviteRequest())
	if err != nil {
		t.Fatalf("create invitation failed: %v", err)
	}
	return inv
}

// ──────────────────────────────────────────────
// 1. ISSUING
// ──────────────────────────────────────────────

func TestCreateInvitation_Success(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()

	inv := mustInvite(t, f)

	if inv.Status != domain.InvitationStatusInvited {
		t.Errorf("expected invited, got %s", inv.Status)
	}
	if !hexToken.MatchString(inv.InviteToken) {
		t.Errorf("expected 64 hex chars, got %q", inv.InviteToken)
	}
	if !inv.ExpiresAt.Equal(testNow.Add(7 * 24 * time.Hour)) {
		t.Errorf("expected expiry 7 days out, got %s", inv.ExpiresAt)
	}
	if stored := f.invitations.GetInvitation(inv.ID); stored == nil || stored.OwnerUserID != "owner-1" {
		t.Errorf("expected stored invitation, got %+v", stored)
	}
}

func TestCreateInvitation_TokensAreUnique(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		inv := mustInvite(t, f)
		if seen[inv.InviteToken] {
			t.Fatalf("duplicate token %s", inv.InviteToken)
		}
		seen[inv.InviteToken] = true
	}
}

func TestCreateInvitation_Rejections(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*service.CreateInvitationRequest)
		want   error
	}{
		{name: "blank first name", mutate: func(r *service.CreateInvitationRequest) { r.FirstName = "   " }, want: service.ErrValidation},
		{name: "missing phone", mutate: func(r *service.CreateInvitationRequest) { r.PhoneNumber = "" }, want: service.ErrValidation},
		{name: "unknown owner", mutate: func(r *service.CreateInvitationRequest) { r.OwnerID = "ghost" }, want: service.ErrOwnerNotFound},
		{name: "member as owner", mutate: func(r *service.CreateInvitationRequest) { r.OwnerID = "member-x" }, want: service.ErrOwnerNotFound},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newInvitationFixture()
			f.users.AddUser(newMember("member-x", "owner-1", testNow))

			req := inviteRequest()
			tc.mutate(&req)

			if _, err := f.service.CreateInvitation(context.Background(), req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got: %v", tc.want, err)
			}
		})
	}
}

func TestCreateInvitation_StoreFailure_Persistence(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	f.invitations.CreateError = errors.New("disk full")

	if _, err := f.service.CreateInvitation(context.Background(), inviteRequest()); !errors.Is(err, service.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got: %v", err)
	}
}

// ──────────────────────────────────────────────
// 2. LOOKUP
// ──────────────────────────────────────────────

func TestGetInvitation_Redeemable(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)

	got, err := f.service.GetInvitation(context.Background(), inv.InviteToken)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got.ID != inv.ID {
		t.Errorf("expected %s, got %s", inv.ID, got.ID)
	}
}

func TestGetInvitation_Expired_FlipsStatusAndReportsNotFound(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)

	f.clock.Advance(domain.InvitationTTL + time.Second)

	_, err := f.service.GetInvitation(context.Background(), inv.InviteToken)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if got := f.invitations.GetInvitation(inv.ID).Status; got != domain.InvitationStatusExpired {
		t.Errorf("expected expired, got %s", got)
	}

	_, err = f.service.GetInvitation(context.Background(), inv.InviteToken)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second lookup: expected ErrNotFound, got: %v", err)
	}
	if got := f.invitations.GetInvitation(inv.ID).Status; got != domain.InvitationStatusExpired {
		t.Errorf("second lookup: expected expired, got %s", got)
	}
}

func TestGetInvitation_UnknownToken_NotFound(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()

	if _, err := f.service.GetInvitation(context.Background(), "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. ACCEPTANCE
// ──────────────────────────────────────────────

func TestAcceptInvitation_CreatesLinkedMember(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)
	f.clock.Advance(time.Hour)

	memberID, err := f.service.AcceptInvitation(context.Background(), service.AcceptInvitationRequest{
		InviteToken: inv.InviteToken,
		Email:       "ivy@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	member := f.users.GetUser(memberID)
	if member == nil {
		t.Fatal("expected member to be created")
	}
	if member.Role != domain.UserRoleMember || member.OwnerID != "owner-1" || member.Status != domain.UserStatusActive {
		t.Errorf("unexpected member %+v", member)
	}
	if member.FirstName != "Ivy" || member.PhoneNumber != "+15550000009" || member.Email != "ivy@example.com" {
		t.Errorf("expected invitation details copied, got %+v", member)
	}
	if f.relationships.CountRelationships() != 1 {
		t.Errorf("expected 1 relationship, got %d", f.relationships.CountRelationships())
	}

	stored := f.invitations.GetInvitation(inv.ID)
	if stored.Status != domain.InvitationStatusAccepted || stored.AcceptedUserID != memberID {
		t.Errorf("expected accepted invitation linked to member, got %+v", stored)
	}
	if stored.AcceptedAt == nil || !stored.AcceptedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("expected acceptedAt from clock, got %v", stored.AcceptedAt)
	}
}

func TestAcceptInvitation_SecondAccept_Rejected(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)
	ctx := context.Background()

	if _, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken}); err != nil {
		t.Fatalf("first accept failed: %v", err)
	}
	_, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
	if !errors.Is(err, service.ErrInvalidInvitation) {
		t.Fatalf("expected ErrInvalidInvitation, got: %v", err)
	}
	if f.users.CountUsers() != 2 {
		t.Errorf("expected owner plus one member, got %d users", f.users.CountUsers())
	}
}

func TestAcceptInvitation_Expired_Rejected(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)
	f.clock.Advance(domain.InvitationTTL + time.Minute)

	_, err := f.service.AcceptInvitation(context.Background(), service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
	if !errors.Is(err, service.ErrInvalidInvitation) {
		t.Fatalf("expected ErrInvalidInvitation, got: %v", err)
	}
	if got := f.invitations.GetInvitation(inv.ID).Status; got != domain.InvitationStatusExpired {
		t.Errorf("expected expired, got %s", got)
	}
	if f.users.CountUsers() != 1 {
		t.Error("expected no member created")
	}
}

func TestAcceptInvitation_BadInput(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)
	ctx := context.Background()

	if _, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{}); !errors.Is(err, service.ErrValidation) {
		t.Errorf("missing token: expected ErrValidation, got %v", err)
	}
	if _, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken, Email: "not-an-email"}); !errors.Is(err, service.ErrValidation) {
		t.Errorf("bad email: expected ErrValidation, got %v", err)
	}
	if _, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: "unknown"}); !errors.Is(err, service.ErrInvalidInvitation) {
		t.Errorf("unknown token: expected ErrInvalidInvitation, got %v", err)
	}
	if got := f.invitations.GetInvitation(inv.ID).Status; got != domain.InvitationStatusInvited {
		t.Errorf("expected invitation untouched, got %s", got)
	}
}

func TestAcceptInvitation_Failures_RollBack(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		setup func(f *invitationFixture)
		want  error
	}{
		{
			name: "owner deleted",
			setup: func(f *invitationFixture) {
				if err := f.users.Delete(context.Background(), "owner-1"); err != nil {
					t.Fatalf("delete owner: %v", err)
				}
			},
			want: service.ErrOwnerNotFound,
		},
		{
			name:  "relationship write fails",
			setup: func(f *invitationFixture) { f.relationships.CreateError = errors.New("connection lost") },
			want:  service.ErrPersistence,
		},
		{
			name:  "member write fails",
			setup: func(f *invitationFixture) { f.users.CreateError = repository.ErrConstraint },
			want:  service.ErrValidation,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := newInvitationFixture()
			inv := mustInvite(t, f)
			tc.setup(f)
			usersBefore := f.users.CountUsers()

			_, err := f.service.AcceptInvitation(context.Background(), service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got: %v", tc.want, err)
			}

			if f.users.CountUsers() != usersBefore {
				t.Errorf("expected no member after rollback, got %d users", f.users.CountUsers())
			}
			if f.relationships.CountRelationships() != 0 {
				t.Error("expected no relationship after rollback")
			}
			if stored := f.invitations.GetInvitation(inv.ID); stored.Status != domain.InvitationStatusInvited || stored.AcceptedUserID != "" {
				t.Errorf("expected invitation still invited, got %+v", stored)
			}
			if atomic.LoadInt32(&f.tx.RollbackCount) != 1 {
				t.Errorf("expected 1 rollback, got %d", f.tx.RollbackCount)
			}
		})
	}
}

func TestAcceptInvitation_Concurrent_ExactlyOneMember(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	inv := mustInvite(t, f)

	const numGoroutines = 10
	var (
		wg        sync.WaitGroup
		successes int32
		start     = make(chan struct{})
	)
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.service.AcceptInvitation(context.Background(), service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
			if err == nil {
				atomic.AddInt32(&successes, 1)
			} else if !errors.Is(err, service.ErrInvalidInvitation) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 accept, got %d", successes)
	}
	if f.users.CountUsers() != 2 || f.relationships.CountRelationships() != 1 {
		t.Errorf("expected one member and one relationship, got %d users, %d relationships",
			f.users.CountUsers(), f.relationships.CountRelationships())
	}
}

// ──────────────────────────────────────────────
// 4. OWNER-SIDE MANAGEMENT
// ──────────────────────────────────────────────

func TestGetPendingInvitations_OnlyRedeemable_NewestFirst(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()

	stale := mustInvite(t, f)
	f.clock.Advance(8 * 24 * time.Hour)
	older := mustInvite(t, f)
	f.clock.Advance(time.Minute)
	newer := mustInvite(t, f)
	f.clock.Advance(time.Minute)
	accepted := mustInvite(t, f)
	if _, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: accepted.InviteToken}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	pending, err := f.service.GetPendingInvitations(ctx, "owner-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != newer.ID || pending[1].ID != older.ID {
		t.Errorf("expected [newer, older], got %+v", pending)
	}
	for _, inv := range pending {
		if inv.ID == stale.ID {
			t.Error("expected overdue invitation excluded")
		}
	}
}

func TestCancelInvitation(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()
	inv := mustInvite(t, f)

	if err := f.service.CancelInvitation(ctx, inv.ID); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := f.invitations.GetInvitation(inv.ID).Status; got != domain.InvitationStatusExpired {
		t.Errorf("expected expired, got %s", got)
	}

	_, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
	if !errors.Is(err, service.ErrInvalidInvitation) {
		t.Errorf("expected cancelled token rejected, got %v", err)
	}

	if err := f.service.CancelInvitation(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExpireStale_SweepsOnlyOverdue(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()

	first := mustInvite(t, f)
	second := mustInvite(t, f)
	f.clock.Advance(6 * 24 * time.Hour)
	fresh := mustInvite(t, f)
	f.clock.Advance(2 * 24 * time.Hour)

	n, err := f.service.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 expired, got %d", n)
	}
	for _, id := range []string{first.ID, second.ID} {
		if got := f.invitations.GetInvitation(id).Status; got != domain.InvitationStatusExpired {
			t.Errorf("%s: expected expired, got %s", id, got)
		}
	}
	if got := f.invitations.GetInvitation(fresh.ID).Status; got != domain.InvitationStatusInvited {
		t.Errorf("expected fresh invitation untouched, got %s", got)
	}

	if n, _ := f.service.ExpireStale(ctx); n != 0 {
		t.Errorf("expected second sweep to be a no-op, got %d", n)
	}
}
