package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridebid/internal/repository"
	"ridebid/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrBidNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRequestID),
		errors.Is(err, service.ErrInvalidRequesterID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidBidAmount),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidBidStatus),
		errors.Is(err, service.ErrInvalidPickupLocation),
		errors.Is(err, service.ErrInvalidDestinationLocation),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, service.ErrInvalidOtp),
		errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRequestNotBiddable),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateBid),
		errors.Is(err, service.ErrBidListFull),
		errors.Is(err, service.ErrRequestBusy):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
