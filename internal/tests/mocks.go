package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"booking/internal/domain"
	"booking/internal/events"
	"booking/internal/redis"
	"booking/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount     int32
	TransitionCallCount int32

	// Error injection
	CreateError     error
	GetError        error
	UpdateError     error
	TransitionError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return repository.ErrDuplicate
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.OrderFilter, page repository.Page) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if filter.BilledToUserID != "" && o.BillingInfo.BilledToUserID != filter.BilledToUserID {
			continue
		}
		if filter.PlacedByUserID != "" && o.BillingInfo.UserID != filter.PlacedByUserID {
			continue
		}
		result = append(result, cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	page = page.Normalize()
	if page.Offset >= len(result) {
		return []*domain.Order{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(result) {
		end = len(result)
	}
	return result[page.Offset:end], nil
}

func (m *MockOrderRepository) Update(ctx context.Context, order *domain.Order, readAt time.Time) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if !stored.UpdatedAt.Equal(readAt) {
		return repository.ErrConflict
	}
	updated := cloneOrder(order)
	// Status and history are only written by TransitionStatus.
	updated.Status = stored.Status
	updated.StatusHistory = stored.StatusHistory
	updated.CreatedAt = stored.CreatedAt
	updated.BillingInfo.UserID = stored.BillingInfo.UserID
	updated.BillingInfo.BilledToUserID = stored.BillingInfo.BilledToUserID
	m.orders[order.ID] = updated
	return nil
}

func (m *MockOrderRepository) TransitionStatus(ctx context.Context, id string, from domain.OrderStatus, entry domain.StatusEntry, updatedAt time.Time) error {
	atomic.AddInt32(&m.TransitionCallCount, 1)
	if m.TransitionError != nil {
		return m.TransitionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != from {
		return repository.ErrConflict
	}
	order.Status = entry.Status
	order.StatusHistory = append(order.StatusHistory, entry)
	order.UpdatedAt = updatedAt
	return nil
}

// GetOrder returns the stored order for test assertions.
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[id]; ok {
		return cloneOrder(o)
	}
	return nil
}

// CountOrders returns the number of stored orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.StatusHistory = append([]domain.StatusEntry(nil), o.StatusHistory...)
	if o.DriverInfo != nil {
		d := *o.DriverInfo
		c.DriverInfo = &d
	}
	if o.VehicleInfo != nil {
		v := *o.VehicleInfo
		c.VehicleInfo = &v
	}
	if o.CustomerInfo != nil {
		ci := *o.CustomerInfo
		c.CustomerInfo = &ci
	}
	return &c
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	// Counters for verification
	CreateCallCount int32

	// Error injection
	CreateError error
	GetError    error
	DeleteError error
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.users[user.ID] = &u
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	if !user.RoleConsistent() {
		return repository.ErrConstraint
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockUserRepository) ListMembers(ctx context.Context, ownerID string) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0)
	for _, u := range m.users {
		if u.Role == domain.UserRoleMember && u.OwnerID == ownerID {
			c := *u
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockUserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Status = status
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// GetUser returns the stored user for test assertions.
func (m *MockUserRepository) GetUser(id string) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

// CountUsers returns the number of stored users.
func (m *MockUserRepository) CountUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *MockUserRepository) snapshot() map[string]domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := make(map[string]domain.User, len(m.users))
	for id, u := range m.users {
		s[id] = *u
	}
	return s
}

func (m *MockUserRepository) restore(s map[string]domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*domain.User, len(s))
	for id, u := range s {
		u := u
		m.users[id] = &u
	}
}

// ──────────────────────────────────────────────
// MOCK RELATIONSHIP REPOSITORY
// ──────────────────────────────────────────────

// MockRelationshipRepository is a mock implementation of RelationshipRepository.
type MockRelationshipRepository struct {
	mu            sync.RWMutex
	relationships map[string]*domain.UserRelationship // keyed by member id

	// Error injection
	CreateError error
}

// NewMockRelationshipRepository creates a new mock relationship repository.
func NewMockRelationshipRepository() *MockRelationshipRepository {
	return &MockRelationshipRepository{
		relationships: make(map[string]*domain.UserRelationship),
	}
}

// AddRelationship adds a relationship to the mock repository.
func (m *MockRelationshipRepository) AddRelationship(rel *domain.UserRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *rel
	m.relationships[rel.MemberID] = &r
}

func (m *MockRelationshipRepository) Create(ctx context.Context, rel *domain.UserRelationship) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.relationships[rel.MemberID]; exists {
		return repository.ErrDuplicate
	}
	r := *rel
	m.relationships[rel.MemberID] = &r
	return nil
}

func (m *MockRelationshipRepository) GetByMemberID(ctx context.Context, memberID string) (*domain.UserRelationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rel, ok := m.relationships[memberID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r := *rel
	return &r, nil
}

func (m *MockRelationshipRepository) DeleteByMemberID(ctx context.Context, memberID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.relationships[memberID]; !ok {
		return 0, nil
	}
	delete(m.relationships, memberID)
	return 1, nil
}

// CountRelationships returns the number of stored relationships.
func (m *MockRelationshipRepository) CountRelationships() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.relationships)
}

func (m *MockRelationshipRepository) snapshot() map[string]domain.UserRelationship {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := make(map[string]domain.UserRelationship, len(m.relationships))
	for id, r := range m.relationships {
		s[id] = *r
	}
	return s
}

func (m *MockRelationshipRepository) restore(s map[string]domain.UserRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships = make(map[string]*domain.UserRelationship, len(s))
	for id, r := range s {
		r := r
		m.relationships[id] = &r
	}
}

// ──────────────────────────────────────────────
// MOCK INVITATION REPOSITORY
// ──────────────────────────────────────────────

// MockInvitationRepository is a mock implementation of InvitationRepository.
type MockInvitationRepository struct {
	mu          sync.RWMutex
	invitations map[string]*domain.Invitation

	// Counters for verification
	MarkAcceptedCallCount int32
	ExpireCallCount       int32

	// Error injection
	CreateError error
}

// NewMockInvitationRepository creates a new mock invitation repository.
func NewMockInvitationRepository() *MockInvitationRepository {
	return &MockInvitationRepository{
		invitations: make(map[string]*domain.Invitation),
	}
}

// AddInvitation adds an invitation to the mock repository.
func (m *MockInvitationRepository) AddInvitation(inv *domain.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := *inv
	m.invitations[inv.ID] = &i
}

func (m *MockInvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.invitations {
		if existing.InviteToken == inv.InviteToken {
			return repository.ErrDuplicate
		}
	}
	i := *inv
	m.invitations[inv.ID] = &i
	return nil
}

func (m *MockInvitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	i := *inv
	return &i, nil
}

func (m *MockInvitationRepository) GetInvitedByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invitations {
		if inv.InviteToken == token && inv.Status == domain.InvitationStatusInvited {
			i := *inv
			return &i, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockInvitationRepository) ListInvited(ctx context.Context, ownerID string, now time.Time) ([]*domain.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Invitation, 0)
	for _, inv := range m.invitations {
		if inv.OwnerUserID == ownerID && inv.Status == domain.InvitationStatusInvited && !inv.ExpiresAt.Before(now) {
			i := *inv
			result = append(result, &i)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *MockInvitationRepository) MarkAccepted(ctx context.Context, id, memberID string, acceptedAt time.Time) error {
	atomic.AddInt32(&m.MarkAcceptedCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || inv.Status != domain.InvitationStatusInvited || inv.ExpiresAt.Before(acceptedAt) {
		return repository.ErrConflict
	}
	inv.Status = domain.InvitationStatusAccepted
	at := acceptedAt
	inv.AcceptedAt = &at
	inv.AcceptedUserID = memberID
	inv.UpdatedAt = acceptedAt
	return nil
}

func (m *MockInvitationRepository) ExpireIfOverdue(ctx context.Context, id string, now time.Time) (bool, error) {
	atomic.AddInt32(&m.ExpireCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok || inv.Status != domain.InvitationStatusInvited || !inv.ExpiresAt.Before(now) {
		return false, nil
	}
	inv.Status = domain.InvitationStatusExpired
	inv.UpdatedAt = now
	return true, nil
}

func (m *MockInvitationRepository) ExpireAllOverdue(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, inv := range m.invitations {
		if inv.Status == domain.InvitationStatusInvited && inv.ExpiresAt.Before(now) {
			inv.Status = domain.InvitationStatusExpired
			inv.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *MockInvitationRepository) SetExpired(ctx context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invitations[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = domain.InvitationStatusExpired
	inv.UpdatedAt = now
	return nil
}

// GetInvitation returns the stored invitation for test assertions.
func (m *MockInvitationRepository) GetInvitation(id string) *domain.Invitation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inv, ok := m.invitations[id]; ok {
		i := *inv
		return &i
	}
	return nil
}

func (m *MockInvitationRepository) snapshot() map[string]domain.Invitation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := make(map[string]domain.Invitation, len(m.invitations))
	for id, inv := range m.invitations {
		s[id] = *inv
	}
	return s
}

func (m *MockInvitationRepository) restore(s map[string]domain.Invitation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = make(map[string]*domain.Invitation, len(s))
	for id, inv := range s {
		inv := inv
		m.invitations[id] = &inv
	}
}

// ──────────────────────────────────────────────
// MOCK TRANSACTOR
// ──────────────────────────────────────────────

// MockTransactor runs transactions one at a time against the mock
// repositories and restores their state when fn fails.
type MockTransactor struct {
	mu            sync.Mutex
	users         *MockUserRepository
	relationships *MockRelationshipRepository
	invitations   *MockInvitationRepository

	// Counters for verification
	CommitCount   int32
	RollbackCount int32
}

// NewMockTransactor creates a transactor over the given mock repositories.
func NewMockTransactor(users *MockUserRepository, relationships *MockRelationshipRepository, invitations *MockInvitationRepository) *MockTransactor {
	return &MockTransactor{
		users:         users,
		relationships: relationships,
		invitations:   invitations,
	}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(store repository.AccountStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := m.users.snapshot()
	relationships := m.relationships.snapshot()
	invitations := m.invitations.snapshot()

	if err := fn(mockAccountStore{m}); err != nil {
		m.users.restore(users)
		m.relationships.restore(relationships)
		m.invitations.restore(invitations)
		atomic.AddInt32(&m.RollbackCount, 1)
		return err
	}
	atomic.AddInt32(&m.CommitCount, 1)
	return nil
}

type mockAccountStore struct {
	tx *MockTransactor
}

func (s mockAccountStore) Users() repository.UserRepository                 { return s.tx.users }
func (s mockAccountStore) Relationships() repository.RelationshipRepository { return s.tx.relationships }
func (s mockAccountStore) Invitations() repository.InvitationRepository     { return s.tx.invitations }

// ──────────────────────────────────────────────
// MOCK ORDER CACHE
// ──────────────────────────────────────────────

// MockOrderCache is a mock implementation of OrderCacheInterface.
type MockOrderCache struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	HitCount        int32
	InvalidateCount int32

	// Error injection
	GetError error
}

// NewMockOrderCache creates a new mock order cache.
func NewMockOrderCache() *MockOrderCache {
	return &MockOrderCache{
		orders: make(map[string]*domain.Order),
	}
}

func (m *MockOrderCache) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	return cloneOrder(order), nil
}

func (m *MockOrderCache) SetOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MockOrderCache) InvalidateOrder(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	return nil
}

// Cached reports whether orderID is currently cached.
func (m *MockOrderCache) Cached(orderID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.orders[orderID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published order events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishOrderEvent(ctx context.Context, event events.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.PublishError
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []events.OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.OrderEvent(nil), m.events...)
}

// ──────────────────────────────────────────────
// MOCK LEDGER STORE
// ──────────────────────────────────────────────

// MockLedgerStore is an in-memory implementation of LedgerStoreInterface.
type MockLedgerStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	SaveError error
}

// NewMockLedgerStore creates a new mock ledger store.
func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{data: make(map[string][]byte)}
}

func (m *MockLedgerStore) Load(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockLedgerStore) Save(ctx context.Context, key string, data []byte) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Ensure mocks implement their interfaces.
var (
	_ repository.OrderRepository        = (*MockOrderRepository)(nil)
	_ repository.UserRepository         = (*MockUserRepository)(nil)
	_ repository.RelationshipRepository = (*MockRelationshipRepository)(nil)
	_ repository.InvitationRepository   = (*MockInvitationRepository)(nil)
	_ repository.Transactor             = (*MockTransactor)(nil)
	_ redis.OrderCacheInterface         = (*MockOrderCache)(nil)
	_ redis.LedgerStoreInterface        = (*MockLedgerStore)(nil)
	_ events.Publisher                  = (*MockPublisher)(nil)
)
