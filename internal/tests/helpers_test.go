package tests

import (
	"sync"
	"time"

	"booking/internal/domain"
	"booking/internal/service"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

// testClock is a settable time source shared by services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newOwner(id string) *domain.User {
	return &domain.User{
		ID:          id,
		Role:        domain.UserRoleOwner,
		FirstName:   "Olive",
		LastName:    "Owner",
		PhoneNumber: "+15550000001",
		Status:      domain.UserStatusActive,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func newMember(id, ownerID string, createdAt time.Time) *domain.User {
	return &domain.User{
		ID:          id,
		Role:        domain.UserRoleMember,
		OwnerID:     ownerID,
		FirstName:   "Milo",
		LastName:    "Member",
		PhoneNumber: "+15550000002",
		Status:      domain.UserStatusActive,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func asapOrderRequest(userID string) service.CreateOrderRequest {
	return service.CreateOrderRequest{
		PickupLocation:  domain.Location{Address: "1 Main St"},
		DropoffLocation: domain.Location{Address: "99 Service Rd"},
		VehicleInfo:     &domain.VehicleInfo{Make: "Honda", Model: "Civic", Year: 2020},
		BillingInfo:     domain.BillingInfo{UserID: userID},
	}
}

// orderFixture wires an OrderService over mocks with an owner and a member.
type orderFixture struct {
	orders    *MockOrderRepository
	users     *MockUserRepository
	cache     *MockOrderCache
	publisher *MockPublisher
	clock     *testClock
	billing   *service.BillingResolver
	service   *service.OrderService
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:    NewMockOrderRepository(),
		users:     NewMockUserRepository(),
		cache:     NewMockOrderCache(),
		publisher: NewMockPublisher(),
		clock:     newTestClock(testNow),
	}
	f.users.AddUser(newOwner("owner-1"))
	f.users.AddUser(newMember("member-1", "owner-1", testNow))
	f.billing = service.NewBillingResolver(f.orders, f.users)
	f.service = service.NewOrderService(f.orders, f.billing, f.cache, f.publisher, nil).WithClock(f.clock.Now)
	return f
}

// invitationFixture wires the account services over mocks with one owner.
type invitationFixture struct {
	users         *MockUserRepository
	relationships *MockRelationshipRepository
	invitations   *MockInvitationRepository
	tx            *MockTransactor
	clock         *testClock
	service       *service.InvitationService
	members       *service.MemberService
}

func newInvitationFixture() *invitationFixture {
	f := &invitationFixture{
		users:         NewMockUserRepository(),
		relationships: NewMockRelationshipRepository(),
		invitations:   NewMockInvitationRepository(),
		clock:         newTestClock(testNow),
	}
	f.tx = NewMockTransactor(f.users, f.relationships, f.invitations)
	f.users.AddUser(newOwner("owner-1"))
	f.service = service.NewInvitationService(f.invitations, f.users, f.tx, nil).WithClock(f.clock.Now)
	f.members = service.NewMemberService(f.users, f.tx, nil).WithClock(f.clock.Now)
	return f
}
