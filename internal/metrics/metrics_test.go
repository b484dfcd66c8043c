package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderTransition_SplitsByResult(t *testing.T) {
	before := testutil.ToFloat64(orderTransitions.WithLabelValues("CANCELLED", "rejected"))

	OrderTransition("CANCELLED", false)

	after := testutil.ToFloat64(orderTransitions.WithLabelValues("CANCELLED", "rejected"))
	if after-before != 1 {
		t.Errorf("expected rejected counter to grow by 1, got %v", after-before)
	}
}

func TestInvitationEvent_AddsCount(t *testing.T) {
	before := testutil.ToFloat64(invitationEvents.WithLabelValues(InvitationExpired))

	InvitationEvent(InvitationExpired, 3)

	after := testutil.ToFloat64(invitationEvents.WithLabelValues(InvitationExpired))
	if after-before != 3 {
		t.Errorf("expected expired counter to grow by 3, got %v", after-before)
	}
}

func TestHandler_ExposesRegisteredCollectors(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/api/orders", http.StatusOK, 12*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "booking_http_requests_total") {
		t.Error("expected http request counter in exposition")
	}
}
