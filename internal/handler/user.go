package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking/internal/domain"
	"booking/internal/service"
)

// UserHandler handles HTTP requests for owner accounts.
type UserHandler struct {
	memberService *service.MemberService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(memberService *service.MemberService) *UserHandler {
	return &UserHandler{memberService: memberService}
}

// RegisterRequest is the HTTP request body for owner registration.
type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// Register handles POST /api/users
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.FirstName == "" || req.LastName == "" || req.PhoneNumber == "" {
		respondBadRequest(c, "firstName, lastName and phoneNumber are required")
		return
	}

	user, err := h.memberService.RegisterOwner(c.Request.Context(), service.RegisterOwnerRequest{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, UserResponse{User: user})
}
