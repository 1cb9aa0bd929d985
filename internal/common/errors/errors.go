// Package errors provides the standardized error taxonomy shared by every
// layer of the service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthentication     ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeDependencyFailed   ErrorCode = "DEPENDENCY_FAILED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is checks. A *StandardError matches the sentinel with
// the same code.
var (
	ErrValidation   = &StandardError{Code: ErrCodeValidationFailed}
	ErrUnauthorized = &StandardError{Code: ErrCodeAuthentication}
	ErrForbidden    = &StandardError{Code: ErrCodePermissionDenied}
	ErrNotFound     = &StandardError{Code: ErrCodeNotFound}
	ErrConflict     = &StandardError{Code: ErrCodeConflict}
	ErrDependency   = &StandardError{Code: ErrCodeDependencyFailed}
	ErrUnavailable  = &StandardError{Code: ErrCodeServiceUnavailable}
	ErrInternal     = &StandardError{Code: ErrCodeInternal}
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a StandardError with the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key to the error's metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// HTTPStatus returns the status code the error translates to.
func (e *StandardError) HTTPStatus() int {
	return HTTPStatus(e.Code)
}

// ==========================
// Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError creates an error for a missing or invalid session.
func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "unauthorized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPermissionError creates an error for an authenticated subject that may
// not perform the action.
func NewPermissionError(message string) *StandardError {
	if message == "" {
		message = "forbidden"
	}
	return &StandardError{
		Code:      ErrCodePermissionDenied,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates an error for a referenced entity that does not exist.
func NewNotFoundError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownUserError is returned for both unknown emails and bad passwords.
func NewUnknownUserError() *StandardError {
	return NewNotFoundError("unknown user")
}

// NewUnknownFranchiseAdminError is returned when a franchise admin email does
// not resolve to a user.
func NewUnknownFranchiseAdminError(email string) *StandardError {
	return NewNotFoundError("unknown user for franchise admin").WithMetadata("email", email)
}

// NewConflictError creates an error for a uniqueness violation.
func NewConflictError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDependencyError creates a retryable error for a failed remote dependency.
func NewDependencyError(service, message string, err error) *StandardError {
	stdErr := &StandardError{
		Code:      ErrCodeDependencyFailed,
		Message:   message,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
	if err != nil {
		stdErr.Details = fmt.Sprintf("service: %s, error: %s", service, err.Error())
	} else {
		stdErr.Details = fmt.Sprintf("service: %s", service)
	}
	return stdErr
}

// NewServiceUnavailableError creates a retryable unavailability error.
func NewServiceUnavailableError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeServiceUnavailable,
		Message:   message,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(operation string, err error) *StandardError {
	details := operation
	if err != nil {
		details = fmt.Sprintf("operation: %s, error: %s", operation, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "internal server error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// Utility Functions
// ==========================

// As returns the first StandardError in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, INTERNAL_ERROR for foreign errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error code to an HTTP status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodePermissionDenied:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTHENTICATION") || strings.Contains(codeStr, "PERMISSION"):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "CONFLICT"):
		return "DATA"
	case strings.Contains(codeStr, "DEPENDENCY") || strings.Contains(codeStr, "UNAVAILABLE"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
