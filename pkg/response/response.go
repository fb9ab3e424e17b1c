package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openbid/auction-api/internal/auctionerrors"
	"gorm.io/gorm"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeInvalidState  = "INVALID_STATE"
	ErrCodeIneligible    = "INELIGIBLE"
	ErrCodeBidTooLow     = "BID_TOO_LOW"
)

// Handle processes the error and returns appropriate response
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	var domainErr *auctionerrors.Error
	if errors.As(err, &domainErr) {
		handleDomainError(c, domainErr)
		return
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "Resource not found")
	default:
		// Never leak storage error text to callers
		InternalError(c, "An unexpected error occurred, please try again")
	}
}

// handleDomainError maps a kinded domain error to a transport status. The
// message is already caller-safe for every kind except Internal.
func handleDomainError(c *gin.Context, err *auctionerrors.Error) {
	switch err.Kind {
	case auctionerrors.KindNotFound:
		NotFound(c, err.Message)
	case auctionerrors.KindInvalidState:
		errorResponse(c, http.StatusBadRequest, ErrCodeInvalidState, err.Message)
	case auctionerrors.KindIneligible:
		errorResponse(c, http.StatusBadRequest, ErrCodeIneligible, err.Message)
	case auctionerrors.KindBidTooLow:
		errorResponse(c, http.StatusBadRequest, ErrCodeBidTooLow, err.Message)
	case auctionerrors.KindForbidden:
		Forbidden(c, err.Message)
	default:
		InternalError(c, err.Message)
	}
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	errorResponse(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	errorResponse(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	errorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	errorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	errorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
