package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"booking/internal/repository"
	"booking/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse acknowledges a mutation.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// respondError sends an error response with the appropriate HTTP status code.
// The error is attached to the context for logging; the body only carries a
// fixed message per error class.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: publicMessage(err, code)})
}

// respondBadRequest sends a 400 with msg.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrOwnerNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidInvitation):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error, code int) string {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Detail
	case errors.Is(err, service.ErrValidation):
		return "invalid request"
	case errors.Is(err, service.ErrInvalidInvitation):
		return "invalid or expired invitation"
	case errors.Is(err, service.ErrOwnerNotFound):
		return "owner not found"
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentUpdate):
		return err.Error()
	case code == http.StatusNotFound:
		return "not found"
	default:
		return "internal server error"
	}
}

// parsePage reads limit and offset query parameters. Missing values fall
// back to the repository defaults.
func parsePage(c *gin.Context) (repository.Page, bool) {
	var page repository.Page
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false
		}
		page.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, false
		}
		page.Offset = n
	}
	return page.Normalize(), true
}
