package errors

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	// Authentication errors
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"

	// Authorization errors
	ErrCodeForbidden = "FORBIDDEN"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Resource errors
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"

	// Throttling
	ErrCodeRateLimited = "RATE_LIMITED"

	// Service errors
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is a business error carrying the HTTP status it maps to
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"errors,omitempty"`

	cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying failure of an internal error
func (e *APIError) Unwrap() error {
	return e.cause
}

// New creates an APIError
func New(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// Validation reports malformed or missing input
func Validation(message string, details any) *APIError {
	if message == "" {
		message = "Validation failed"
	}
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeInvalidInput, Message: message, Details: details}
}

// Unauthenticated reports a missing, invalid, expired or revoked credential
func Unauthenticated(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return New(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// InvalidCredentials reports a failed login
func InvalidCredentials() *APIError {
	return New(http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid email or password")
}

// Forbidden reports an authenticated caller lacking role or ownership
func Forbidden(message string) *APIError {
	if message == "" {
		message = "Access denied"
	}
	return New(http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound reports a resource that is absent or outside the caller's scope
func NotFound(message string) *APIError {
	if message == "" {
		message = "Resource not found"
	}
	return New(http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict reports a duplicate registration. Clients of this API expect 400.
func Conflict(message string) *APIError {
	if message == "" {
		message = "Resource already exists"
	}
	return New(http.StatusBadRequest, ErrCodeAlreadyExists, message)
}

// RateLimited reports a throttled client
func RateLimited(message string) *APIError {
	return New(http.StatusTooManyRequests, ErrCodeRateLimited, message)
}

// ServiceUnavailable reports an optional collaborator that is not configured
func ServiceUnavailable(message string) *APIError {
	if message == "" {
		message = "Service temporarily unavailable"
	}
	return New(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// Internal wraps an unexpected store failure. The cause is logged, never rendered.
func Internal(cause error) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    ErrCodeInternalError,
		Message: "Internal server error",
		cause:   cause,
	}
}

// Is reports whether err is an APIError with the given status
func Is(err error, status int) bool {
	var apiErr *APIError
	return stderrors.As(err, &apiErr) && apiErr.Status == status
}

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// Respond renders err as the single error envelope of the API
func Respond(c *gin.Context, err error) {
	var apiErr *APIError
	if !stderrors.As(err, &apiErr) {
		apiErr = Internal(err)
	}

	if apiErr.Status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.JSON(apiErr.Status, errorBody{
		Success: false,
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Errors:  apiErr.Details,
	})
}

// Abort renders err and stops the handler chain
func Abort(c *gin.Context, err error) {
	Respond(c, err)
	c.Abort()
}

// Recovery converts panics into the internal error envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
			Success: false,
			Code:    ErrCodeInternalError,
			Message: "Internal server error",
		})
	})
}
