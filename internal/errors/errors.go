package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode is the machine-readable code sent as "code" in error bodies.
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	ErrCodeAdminNotAvailable ErrorCode = "ADMIN_NOT_CONFIGURED"

	// Validation
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired    ErrorCode = "MISSING_REQUIRED"
	ErrCodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is an error whose message and details are safe to show a client.
// The cause is only logged.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func AdminNotConfigured() *AppError {
	return New(ErrCodeAdminNotAvailable, "Admin not configured")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// PreconditionFailed reports a request that was well-formed but could not be
// applied; no state was changed.
func PreconditionFailed(message string) *AppError {
	return New(ErrCodePreconditionFailed, message)
}

// RateLimitDetails is attached to RATE_LIMIT_EXCEEDED errors.
type RateLimitDetails struct {
	RetryAfter int `json:"retryAfter"`
}

// RateLimited builds a RATE_LIMIT_EXCEEDED error whose details carry the
// whole seconds remaining until resetAt (at least 1).
func RateLimited(message string, resetAt time.Time) *AppError {
	secs := int(time.Until(resetAt).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return New(ErrCodeRateLimitExceeded, message).WithDetails(RateLimitDetails{RetryAfter: secs})
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// External reports a failed upstream call (storage, mail) as a 502 without
// exposing the cause to the client.
func External(service string, cause error) *AppError {
	return New(ErrCodeExternal, fmt.Sprintf("External service error: %s", service)).WithCause(cause)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
