package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking/internal/domain"
	"booking/internal/service"
)

// InvitationHandler handles HTTP requests for member invitations.
type InvitationHandler struct {
	invitationService *service.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// CreateInvitationRequest is the HTTP request body for inviting a member.
type CreateInvitationRequest struct {
	OwnerID     string `json:"ownerId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

// CreateInvitationResponse is the HTTP response for a new invitation.
type CreateInvitationResponse struct {
	Success      bool   `json:"success"`
	InvitationID string `json:"invitationId"`
}

// AcceptInvitationRequest is the HTTP request body for redeeming an invitation.
type AcceptInvitationRequest struct {
	InviteToken string `json:"inviteToken"`
	Email       string `json:"email,omitempty"`
}

// AcceptInvitationResponse is the HTTP response for a redeemed invitation.
type AcceptInvitationResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId"`
}

// InvitationResponse wraps a single invitation.
type InvitationResponse struct {
	Invitation *domain.Invitation `json:"invitation"`
}

// InvitationListResponse wraps an invitation listing.
type InvitationListResponse struct {
	Invitations []*domain.Invitation `json:"invitations"`
}

// CreateInvitation handles POST /api/user-management/invitations
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.OwnerID == "" || req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" {
		respondBadRequest(c, "ownerId, firstName, lastName and phoneNumber are required")
		return
	}

	inv, err := h.invitationService.CreateInvitation(c.Request.Context(), service.CreateInvitationRequest{
		OwnerID:     req.OwnerID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CreateInvitationResponse{Success: true, InvitationID: inv.ID})
}

// ListInvitations handles GET /api/user-management/invitations
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	ownerID := c.Query("ownerId")
	if ownerID == "" {
		respondBadRequest(c, "ownerId is required")
		return
	}

	invitations, err := h.invitationService.GetPendingInvitations(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, InvitationListResponse{Invitations: invitations})
}

// CancelInvitation handles DELETE /api/user-management/invitations
func (h *InvitationHandler) CancelInvitation(c *gin.Context) {
	invitationID := c.Query("invitationId")
	if invitationID == "" {
		respondBadRequest(c, "invitationId is required")
		return
	}

	if err := h.invitationService.CancelInvitation(c.Request.Context(), invitationID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SuccessResponse{Success: true})
}

// GetInvitation handles GET /api/user-management/accept-invitation
func (h *InvitationHandler) GetInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondBadRequest(c, "token is required")
		return
	}

	inv, err := h.invitationService.GetInvitation(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, InvitationResponse{Invitation: inv})
}

// AcceptInvitation handles POST /api/user-management/accept-invitation
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.InviteToken == "" {
		respondBadRequest(c, "inviteToken is required")
		return
	}

	userID, err := h.invitationService.AcceptInvitation(c.Request.Context(), service.AcceptInvitationRequest{
		InviteToken: req.InviteToken,
		Email:       req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AcceptInvitationResponse{Success: true, UserID: userID})
}
