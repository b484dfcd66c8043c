package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"booking/internal/domain"
	"booking/internal/repository"
	"booking/internal/service"
)

func TestRegisterOwner(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()

	owner, err := f.members.RegisterOwner(context.Background(), service.RegisterOwnerRequest{
		FirstName:   " Rae ",
		LastName:    "Owner",
		PhoneNumber: "+15550001111",
		Email:       "rae@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if owner.Role != domain.UserRoleOwner || owner.OwnerID != "" || owner.FirstName != "Rae" {
		t.Errorf("unexpected owner %+v", owner)
	}
	if f.users.GetUser(owner.ID) == nil {
		t.Error("expected owner stored")
	}
}

func TestRegisterOwner_Invalid(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()

	if _, err := f.members.RegisterOwner(ctx, service.RegisterOwnerRequest{FirstName: "A", LastName: "B"}); !errors.Is(err, service.ErrValidation) {
		t.Errorf("missing phone: expected ErrValidation, got %v", err)
	}
	if _, err := f.members.RegisterOwner(ctx, service.RegisterOwnerRequest{
		FirstName: "A", LastName: "B", PhoneNumber: "1", Email: "@@",
	}); !errors.Is(err, service.ErrValidation) {
		t.Errorf("bad email: expected ErrValidation, got %v", err)
	}
}

func TestListMembers_NewestFirst(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	f.users.AddUser(newMember("m-old", "owner-1", testNow))
	f.users.AddUser(newMember("m-new", "owner-1", testNow.Add(time.Hour)))
	f.users.AddUser(newOwner("owner-2"))
	f.users.AddUser(newMember("m-other", "owner-2", testNow))

	members, err := f.members.ListMembers(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(members) != 2 || members[0].ID != "m-new" || members[1].ID != "m-old" {
		t.Errorf("expected [m-new, m-old], got %+v", members)
	}
}

func TestUpdateMemberStatus(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	f.users.AddUser(newMember("m1", "owner-1", testNow))
	ctx := context.Background()

	if err := f.members.UpdateMemberStatus(ctx, "m1", domain.UserStatusFrozen); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if got := f.users.GetUser("m1").Status; got != domain.UserStatusFrozen {
		t.Errorf("expected frozen, got %s", got)
	}

	testCases := []struct {
		name   string
		id     string
		status domain.UserStatus
		want   error
	}{
		{name: "unknown status", id: "m1", status: "deleted", want: service.ErrValidation},
		{name: "owner account", id: "owner-1", status: domain.UserStatusFrozen, want: service.ErrValidation},
		{name: "missing member", id: "ghost", status: domain.UserStatusActive, want: repository.ErrNotFound},
	}
	for _, tc := range testCases {
		if err := f.members.UpdateMemberStatus(ctx, tc.id, tc.status); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()

	inv := mustInvite(t, f)
	memberID, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if err := f.members.RemoveMember(ctx, memberID); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if f.users.GetUser(memberID) != nil {
		t.Error("expected member deleted")
	}
	if f.relationships.CountRelationships() != 0 {
		t.Error("expected relationship deleted")
	}
	if f.invitations.GetInvitation(inv.ID).Status != domain.InvitationStatusAccepted {
		t.Error("expected invitation history kept")
	}
}

func TestRemoveMember_KeepsPlacedOrders(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	ctx := context.Background()

	inv := mustInvite(t, f)
	memberID, err := f.service.AcceptInvitation(ctx, service.AcceptInvitationRequest{InviteToken: inv.InviteToken})
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	orders := NewMockOrderRepository()
	billing := service.NewBillingResolver(orders, f.users)
	orderService := service.NewOrderService(orders, billing, NewMockOrderCache(), NewMockPublisher(), nil).WithClock(f.clock.Now)

	var placed []string
	for i := 0; i < 2; i++ {
		f.clock.Advance(time.Minute)
		order, err := orderService.Create(ctx, asapOrderRequest(memberID))
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		placed = append(placed, order.ID)
	}

	if err := f.members.RemoveMember(ctx, memberID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	got, err := billing.OrdersForMember(ctx, memberID, repository.Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if want := []string{placed[1], placed[0]}; !equalIDs(orderIDs(got), want) {
		t.Errorf("expected %v, got %v", want, orderIDs(got))
	}
	for _, id := range placed {
		order, err := orderService.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s failed: %v", id, err)
		}
		if order.BillingInfo.UserID != memberID || order.BillingInfo.BilledToUserID != "owner-1" {
			t.Errorf("expected billing untouched, got %+v", order.BillingInfo)
		}
	}
}

func TestRemoveMember_Rejections(t *testing.T) {
	t.Parallel()
	f := newInvitationFixture()
	f.users.AddUser(newMember("m1", "owner-1", testNow))
	ctx := context.Background()

	if err := f.members.RemoveMember(ctx, "owner-1"); !errors.Is(err, service.ErrValidation) {
		t.Errorf("owner: expected ErrValidation, got %v", err)
	}
	if err := f.members.RemoveMember(ctx, "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}

	f.users.DeleteError = errors.New("lock timeout")
	if err := f.members.RemoveMember(ctx, "m1"); !errors.Is(err, service.ErrPersistence) {
		t.Errorf("store failure: expected ErrPersistence, got %v", err)
	}
	if f.users.GetUser("m1") == nil {
		t.Error("expected member kept after failed removal")
	}
}
