package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"booking/internal/app"
	"booking/internal/domain"
	"booking/internal/handler"
	"booking/internal/ledger"
	"booking/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// apiFixture serves the full router over mock repositories.
type apiFixture struct {
	orders   *orderFixture
	accounts *invitationFixture
	ledger   *MockLedgerStore
	router   *gin.Engine
}

var errSecretBackend = errors.New("pq: password authentication failed for user \"booking\"")

func newAPIFixture() *apiFixture {
	orders := newOrderFixture()
	accounts := newInvitationFixture()
	// Both fixtures share one user store so invitations and orders see the
	// same accounts.
	accounts.users = orders.users
	accounts.tx = NewMockTransactor(orders.users, accounts.relationships, accounts.invitations)
	accounts.service = service.NewInvitationService(accounts.invitations, orders.users, accounts.tx, nil).WithClock(accounts.clock.Now)
	accounts.members = service.NewMemberService(orders.users, accounts.tx, nil).WithClock(accounts.clock.Now)

	store := NewMockLedgerStore()
	l := ledger.New(store, nil, nil)
	router := app.NewRouter(app.RouterDeps{
		OrderHandler:      handler.NewOrderHandler(orders.service, orders.billing),
		InvitationHandler: handler.NewInvitationHandler(accounts.service),
		MemberHandler:     handler.NewMemberHandler(accounts.members),
		UserHandler:       handler.NewUserHandler(accounts.members),
		LedgerHandler:     handler.NewLedgerHandler(l, orders.service),
	})
	return &apiFixture{orders: orders, accounts: accounts, ledger: store, router: router}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func createOrderBody(userID string) map[string]any {
	return map[string]any{
		"pickupLocation":  map[string]any{"address": "1 Main St"},
		"dropoffLocation": map[string]any{"address": "99 Service Rd"},
		"vehicleInfo":     map[string]any{"make": "Honda", "model": "Civic"},
		"billingInfo":     map[string]any{"userId": userID},
	}
}

// ──────────────────────────────────────────────
// 1. ORDERS
// ──────────────────────────────────────────────

func TestAPI_OrderLifecycle(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/orders", createOrderBody("member-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[handler.OrderResponse](t, w).Order
	if created.Status != domain.OrderStatusFindingDriver || created.BillingInfo.BilledToUserID != "owner-1" {
		t.Fatalf("unexpected order %+v", created)
	}

	w = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/status", map[string]any{"status": "DRIVER_ON_WAY"})
	if w.Code != http.StatusOK {
		t.Fatalf("status by label: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/status", map[string]any{"status": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("status by ordinal: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[handler.OrderResponse](t, w).Order.Status; got != domain.OrderStatusDriverArrived {
		t.Errorf("expected DRIVER_ARRIVED, got %s", got)
	}

	w = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/status", map[string]any{"status": "CAR_DELIVERED"})
	if w.Code != http.StatusConflict {
		t.Errorf("skipped transition: expected 409, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/orders/"+created.ID+"/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/orders/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	got := decode[handler.OrderResponse](t, w).Order
	if got.Status != domain.OrderStatusCancelled || len(got.StatusHistory) != 4 {
		t.Errorf("expected cancelled order with 4 history entries, got %+v", got)
	}
}

func TestAPI_OrderErrors(t *testing.T) {
	f := newAPIFixture()

	testCases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "missing pickup", method: http.MethodPost, path: "/api/orders", body: map[string]any{
			"dropoffLocation": map[string]any{"address": "x"},
			"billingInfo":     map[string]any{"userId": "owner-1"},
		}, want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/orders", body: "not an object", want: http.StatusBadRequest},
		{name: "unknown order", method: http.MethodGet, path: "/api/orders/missing", want: http.StatusNotFound},
		{name: "unknown status label", method: http.MethodPost, path: "/api/orders/missing/status", body: map[string]any{"status": "TELEPORTED"}, want: http.StatusBadRequest},
		{name: "list without ids", method: http.MethodGet, path: "/api/orders", want: http.StatusBadRequest},
		{name: "bad paging", method: http.MethodGet, path: "/api/orders?ownerId=owner-1&limit=-1", want: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPI_PersistenceFailure_HidesDetails(t *testing.T) {
	f := newAPIFixture()
	f.orders.orders.CreateError = errSecretBackend

	w := f.do(t, http.MethodPost, "/api/orders", createOrderBody("owner-1"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decode[handler.ErrorResponse](t, w); body.Error != "internal server error" {
		t.Errorf("expected generic message, got %q", body.Error)
	}
}

func TestAPI_ListOrders_Precedence(t *testing.T) {
	f := newAPIFixture()
	f.orders.users.AddUser(newMember("member-2", "owner-1", testNow))

	for _, placer := range []string{"owner-1", "member-1", "member-2", "member-1"} {
		if w := f.do(t, http.MethodPost, "/api/orders", createOrderBody(placer)); w.Code != http.StatusCreated {
			t.Fatalf("seed order: expected 201, got %d", w.Code)
		}
	}

	testCases := []struct {
		query string
		want  int
	}{
		{query: "ownerId=owner-1", want: 4},
		{query: "memberId=member-1", want: 2},
		{query: "ownerId=owner-1&filterByMember=member-2", want: 1},
		{query: "ownerId=owner-1&memberId=member-1", want: 4},
		{query: "ownerId=owner-1&memberId=member-2&filterByMember=true", want: 1},
		{query: "ownerId=owner-1&memberId=member-1&filterByMember=1", want: 2},
		{query: "ownerId=owner-1&memberId=member-1&filterByMember=false", want: 4},
		{query: "ownerId=owner-1&limit=3", want: 3},
	}
	for _, tc := range testCases {
		w := f.do(t, http.MethodGet, "/api/orders?"+tc.query, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.query, w.Code)
		}
		if got := len(decode[handler.OrderListResponse](t, w).Orders); got != tc.want {
			t.Errorf("%s: expected %d orders, got %d", tc.query, tc.want, got)
		}
	}

	if w := f.do(t, http.MethodGet, "/api/orders?ownerId=owner-1&filterByMember=true", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for filterByMember=true without memberId, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────
// 2. USER MANAGEMENT
// ──────────────────────────────────────────────

func TestAPI_InvitationFlow(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/user-management/invitations", map[string]any{
		"ownerId": "owner-1", "firstName": "Ivy", "lastName": "Invitee", "phoneNumber": "+1555",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("invite: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[handler.CreateInvitationResponse](t, w)
	if !created.Success || created.InvitationID == "" {
		t.Fatalf("unexpected response %+v", created)
	}
	token := f.accounts.invitations.GetInvitation(created.InvitationID).InviteToken

	w = f.do(t, http.MethodGet, "/api/user-management/invitations?ownerId=owner-1", nil)
	if got := decode[handler.InvitationListResponse](t, w).Invitations; len(got) != 1 {
		t.Fatalf("expected 1 pending invitation, got %d", len(got))
	}

	w = f.do(t, http.MethodGet, "/api/user-management/accept-invitation?token="+token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/user-management/accept-invitation", map[string]any{"inviteToken": token})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	accepted := decode[handler.AcceptInvitationResponse](t, w)
	if !accepted.Success || accepted.UserID == "" {
		t.Fatalf("unexpected response %+v", accepted)
	}

	w = f.do(t, http.MethodPost, "/api/user-management/accept-invitation", map[string]any{"inviteToken": token})
	if w.Code != http.StatusBadRequest {
		t.Errorf("second accept: expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/user-management/members?ownerId=owner-1", nil)
	members := decode[handler.MemberListResponse](t, w).Members
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	w = f.do(t, http.MethodPatch, "/api/user-management/members", map[string]any{"memberId": accepted.UserID, "status": "frozen"})
	if w.Code != http.StatusOK {
		t.Fatalf("freeze: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPatch, "/api/user-management/members", map[string]any{"memberId": accepted.UserID, "status": "gone"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status: expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodDelete, "/api/user-management/members?memberId="+accepted.UserID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.orders.users.GetUser(accepted.UserID) != nil {
		t.Error("expected member removed")
	}
}

func TestAPI_InvitationErrors(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/user-management/invitations", map[string]any{
		"ownerId": "ghost", "firstName": "A", "lastName": "B", "phoneNumber": "1",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown owner: expected 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/user-management/accept-invitation?token=unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown token lookup: expected 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/user-management/accept-invitation", map[string]any{"inviteToken": "unknown"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown token accept: expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodDelete, "/api/user-management/invitations", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("cancel without id: expected 400, got %d", w.Code)
	}
}

func TestAPI_RegisterOwner(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/users", map[string]any{
		"firstName": "Rae", "lastName": "Owner", "phoneNumber": "+1555",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if user := decode[handler.UserResponse](t, w).User; user.Role != domain.UserRoleOwner {
		t.Errorf("expected owner, got %+v", user)
	}
}

// ──────────────────────────────────────────────
// 3. LEDGER
// ──────────────────────────────────────────────

func TestAPI_Ledger(t *testing.T) {
	f := newAPIFixture()

	w := f.do(t, http.MethodPost, "/api/orders", createOrderBody("owner-1"))
	order := decode[handler.OrderResponse](t, w).Order

	w = f.do(t, http.MethodPost, "/api/ledger/client-1/transactions", map[string]any{
		"orderId":     order.ID,
		"vehicle":     "Honda Civic",
		"destination": "99 Service Rd",
		"pickupTime":  "ASAP",
		"session":     map[string]any{"oneWay": true},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	saved := decode[handler.TransactionResponse](t, w).Transaction
	if saved.ServiceType != ledger.ServiceOneWay || saved.Status != ledger.StatusPending {
		t.Errorf("unexpected transaction %+v", saved)
	}

	f.do(t, http.MethodPost, "/api/orders/"+order.ID+"/status", map[string]any{"status": "DRIVER_ON_WAY"})

	w = f.do(t, http.MethodPost, "/api/ledger/client-1/orders/"+order.ID+"/sync", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/ledger/client-1/transactions/"+saved.ID, nil)
	if got := decode[handler.TransactionResponse](t, w).Transaction; got.Status != "DRIVER_ON_WAY" {
		t.Errorf("expected mirrored status, got %q", got.Status)
	}

	w = f.do(t, http.MethodGet, "/api/ledger/client-1/transactions/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/ledger/client-2/transactions", nil)
	if got := decode[handler.TransactionListResponse](t, w).Transactions; len(got) != 0 {
		t.Errorf("expected ledgers isolated per client, got %d entries", len(got))
	}

	w = f.do(t, http.MethodPost, "/api/ledger/client-1/vehicles", map[string]any{"make": "Honda"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("vehicle without model: expected 400, got %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/ledger/client-1/vehicles", map[string]any{"make": "Honda", "model": "Civic"})
	vehicle := decode[handler.VehicleResponse](t, w).Vehicle
	if vehicle == nil || vehicle.ID == "" {
		t.Fatalf("expected saved vehicle with id, got %s", w.Body.String())
	}
	w = f.do(t, http.MethodDelete, "/api/ledger/client-1/vehicles/"+vehicle.ID, nil)
	if !decode[handler.SuccessResponse](t, w).Success {
		t.Error("expected vehicle removed")
	}
}

func TestAPI_Ledger_UnavailableStore(t *testing.T) {
	f := newAPIFixture()
	f.ledger.SaveError = errors.New("redis down")

	w := f.do(t, http.MethodPost, "/api/ledger/client-1/transactions", map[string]any{"vehicle": "Honda Civic"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("save transaction: expected 503, got %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/ledger/client-1/vehicles", map[string]any{"make": "Honda", "model": "Civic"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("save vehicle: expected 503, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/ledger/client-1/transactions", nil)
	if got := decode[handler.TransactionListResponse](t, w).Transactions; len(got) != 0 {
		t.Errorf("expected nothing stored, got %d entries", len(got))
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := newAPIFixture()

	if w := f.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
	w := f.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("booking_http_requests_total")) {
		t.Errorf("metrics: expected exposition with request counter, got %d", w.Code)
	}
}
