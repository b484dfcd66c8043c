package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking/internal/domain"
	"booking/internal/service"
)

// MemberHandler handles HTTP requests for an owner's members.
type MemberHandler struct {
	memberService *service.MemberService
}

// NewMemberHandler creates a new MemberHandler.
func NewMemberHandler(memberService *service.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// UpdateMemberStatusRequest is the HTTP request body for freezing or
// reactivating a member.
type UpdateMemberStatusRequest struct {
	MemberID string `json:"memberId"`
	Status   string `json:"status"`
}

// MemberListResponse wraps a member listing.
type MemberListResponse struct {
	Members []*domain.User `json:"members"`
}

// ListMembers handles GET /api/user-management/members
func (h *MemberHandler) ListMembers(c *gin.Context) {
	ownerID := c.Query("ownerId")
	if ownerID == "" {
		respondBadRequest(c, "ownerId is required")
		return
	}

	members, err := h.memberService.ListMembers(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, MemberListResponse{Members: members})
}

// UpdateMemberStatus handles PATCH /api/user-management/members
func (h *MemberHandler) UpdateMemberStatus(c *gin.Context) {
	var req UpdateMemberStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.MemberID == "" {
		respondBadRequest(c, "memberId is required")
		return
	}

	status := domain.UserStatus(req.Status)
	if !domain.ValidUserStatus(status) {
		respondBadRequest(c, "status must be active or frozen")
		return
	}

	if err := h.memberService.UpdateMemberStatus(c.Request.Context(), req.MemberID, status); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SuccessResponse{Success: true})
}

// RemoveMember handles DELETE /api/user-management/members
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	memberID := c.Query("memberId")
	if memberID == "" {
		respondBadRequest(c, "memberId is required")
		return
	}

	if err := h.memberService.RemoveMember(c.Request.Context(), memberID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SuccessResponse{Success: true})
}
