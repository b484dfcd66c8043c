package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"booking/internal/domain"
	"booking/internal/service"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	orderService *service.OrderService
	billing      *service.BillingResolver
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, billing *service.BillingResolver) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		billing:      billing,
	}
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	PickupLocation  domain.Location      `json:"pickupLocation"`
	DropoffLocation domain.Location      `json:"dropoffLocation"`
	ScheduledDate   *string              `json:"scheduledDate,omitempty"`
	ScheduledTime   *string              `json:"scheduledTime,omitempty"`
	VehicleInfo     *domain.VehicleInfo  `json:"vehicleInfo,omitempty"`
	CustomerInfo    *domain.CustomerInfo `json:"customerInfo,omitempty"`
	DriverInfo      *domain.DriverInfo   `json:"driverInfo,omitempty"`
	BillingInfo     domain.BillingInfo   `json:"billingInfo"`
}

// UpdateStatusRequest is the HTTP request body for a status change. Status
// may be a label ("DRIVER_ON_WAY") or an ordinal (2).
type UpdateStatusRequest struct {
	Status json.RawMessage `json:"status"`
}

// OrderResponse wraps a single order.
type OrderResponse struct {
	Order *domain.Order `json:"order"`
}

// OrderListResponse wraps an order listing.
type OrderListResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// ListOrders handles GET /api/orders
//
// ownerId with filterByMember lists the orders that member placed on the
// owner's bill; ownerId alone lists everything billed to the owner; memberId
// alone lists everything the member placed. filterByMember is either a member
// id or a boolean selecting memberId.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ownerID := c.Query("ownerId")
	memberID := c.Query("memberId")
	filterByMember := c.Query("filterByMember")

	if ownerID == "" && memberID == "" {
		respondBadRequest(c, "ownerId or memberId is required")
		return
	}

	if on, err := strconv.ParseBool(filterByMember); err == nil {
		filterByMember = ""
		if on {
			if memberID == "" {
				respondBadRequest(c, "memberId is required when filterByMember is set")
				return
			}
			filterByMember = memberID
		}
	}

	page, ok := parsePage(c)
	if !ok {
		respondBadRequest(c, "limit and offset must be non-negative integers")
		return
	}

	var (
		orders []*domain.Order
		err    error
	)
	ctx := c.Request.Context()
	switch {
	case ownerID != "" && filterByMember != "":
		orders, err = h.billing.OrdersByMemberForOwner(ctx, ownerID, filterByMember, page)
	case ownerID != "":
		orders, err = h.billing.OrdersForOwner(ctx, ownerID, page)
	default:
		orders, err = h.billing.OrdersForMember(ctx, memberID, page)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OrderListResponse{Orders: orders})
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), service.CreateOrderRequest{
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		VehicleInfo:     req.VehicleInfo,
		CustomerInfo:    req.CustomerInfo,
		DriverInfo:      req.DriverInfo,
		BillingInfo:     req.BillingInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, OrderResponse{Order: order})
}

// GetOrder handles GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OrderResponse{Order: order})
}

// UpdateOrder handles PATCH /api/orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var patch domain.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	order, err := h.orderService.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OrderResponse{Order: order})
}

// UpdateStatus handles POST /api/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Status) == 0 {
		respondBadRequest(c, "status is required")
		return
	}

	status, ok := decodeStatus(req.Status)
	if !ok {
		respondBadRequest(c, "unknown status")
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OrderResponse{Order: order})
}

// CancelOrder handles POST /api/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.orderService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, OrderResponse{Order: order})
}

func decodeStatus(raw json.RawMessage) (domain.OrderStatus, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return 0, false
		}
		return domain.ParseOrderStatus(label)
	}
	return domain.ParseOrderStatus(string(raw))
}
