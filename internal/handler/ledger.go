package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking/internal/ledger"
	"booking/internal/service"
)

// LedgerHandler handles HTTP requests for a client's local booking ledger.
type LedgerHandler struct {
	ledger       *ledger.Ledger
	orderService *service.OrderService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(l *ledger.Ledger, orderService *service.OrderService) *LedgerHandler {
	return &LedgerHandler{
		ledger:       l,
		orderService: orderService,
	}
}

// UpdateTransactionStatusRequest is the HTTP request body for a ledger status change.
type UpdateTransactionStatusRequest struct {
	Status string                  `json:"status"`
	Extra  ledger.TransactionPatch `json:"extra"`
}

// TransactionResponse wraps a single ledger entry.
type TransactionResponse struct {
	Transaction *ledger.Transaction `json:"transaction"`
}

// TransactionListResponse wraps the ledger.
type TransactionListResponse struct {
	Transactions []ledger.Transaction `json:"transactions"`
}

// VehicleResponse wraps a single saved vehicle.
type VehicleResponse struct {
	Vehicle *ledger.Vehicle `json:"vehicle"`
}

// VehicleListResponse wraps the saved vehicles.
type VehicleListResponse struct {
	Vehicles []ledger.Vehicle `json:"vehicles"`
}

// GetTransactions handles GET /api/ledger/:clientId/transactions
func (h *LedgerHandler) GetTransactions(c *gin.Context) {
	transactions := h.ledger.GetTransactions(c.Request.Context(), c.Param("clientId"))
	respondJSON(c, http.StatusOK, TransactionListResponse{Transactions: transactions})
}

// SaveTransaction handles POST /api/ledger/:clientId/transactions
func (h *LedgerHandler) SaveTransaction(c *gin.Context) {
	var req ledger.BookingData
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	t := h.ledger.SaveTransaction(c.Request.Context(), c.Param("clientId"), req)
	if t == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "ledger unavailable"})
		return
	}

	respondJSON(c, http.StatusCreated, TransactionResponse{Transaction: t})
}

// GetTransaction handles GET /api/ledger/:clientId/transactions/:id
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	t := h.ledger.GetTransactionByID(c.Request.Context(), c.Param("clientId"), c.Param("id"))
	if t == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	respondJSON(c, http.StatusOK, TransactionResponse{Transaction: t})
}

// UpdateTransaction handles PATCH /api/ledger/:clientId/transactions/:id
func (h *LedgerHandler) UpdateTransaction(c *gin.Context) {
	var patch ledger.TransactionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	t := h.ledger.UpdateTransaction(c.Request.Context(), c.Param("clientId"), c.Param("id"), patch)
	if t == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	respondJSON(c, http.StatusOK, TransactionResponse{Transaction: t})
}

// UpdateTransactionStatus handles POST /api/ledger/:clientId/transactions/:id/status
func (h *LedgerHandler) UpdateTransactionStatus(c *gin.Context) {
	var req UpdateTransactionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	t := h.ledger.UpdateTransactionStatus(c.Request.Context(), c.Param("clientId"), c.Param("id"), req.Status, req.Extra)
	if t == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}

	respondJSON(c, http.StatusOK, TransactionResponse{Transaction: t})
}

// RemoveDuplicates handles POST /api/ledger/:clientId/transactions/dedupe
func (h *LedgerHandler) RemoveDuplicates(c *gin.Context) {
	removed := h.ledger.RemoveDuplicateTransactions(c.Request.Context(), c.Param("clientId"))
	respondJSON(c, http.StatusOK, gin.H{"removed": removed})
}

// SyncOrder handles POST /api/ledger/:clientId/orders/:orderId/sync
//
// The current server-side order is copied onto the matching ledger entry.
func (h *LedgerHandler) SyncOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	mirrored := h.ledger.MirrorOrder(c.Request.Context(), c.Param("clientId"), order)
	respondJSON(c, http.StatusOK, gin.H{"mirrored": mirrored, "status": order.Status.String()})
}

// GetVehicles handles GET /api/ledger/:clientId/vehicles
func (h *LedgerHandler) GetVehicles(c *gin.Context) {
	vehicles := h.ledger.GetVehicles(c.Request.Context(), c.Param("clientId"))
	respondJSON(c, http.StatusOK, VehicleListResponse{Vehicles: vehicles})
}

// SaveVehicle handles POST /api/ledger/:clientId/vehicles
func (h *LedgerHandler) SaveVehicle(c *gin.Context) {
	var req ledger.Vehicle
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.Make == "" || req.Model == "" {
		respondBadRequest(c, "make and model are required")
		return
	}

	v := h.ledger.SaveVehicle(c.Request.Context(), c.Param("clientId"), req)
	if v == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "ledger unavailable"})
		return
	}

	respondJSON(c, http.StatusOK, VehicleResponse{Vehicle: v})
}

// RemoveVehicle handles DELETE /api/ledger/:clientId/vehicles/:id
func (h *LedgerHandler) RemoveVehicle(c *gin.Context) {
	removed := h.ledger.RemoveVehicle(c.Request.Context(), c.Param("clientId"), c.Param("id"))
	respondJSON(c, http.StatusOK, SuccessResponse{Success: removed})
}
