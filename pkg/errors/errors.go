package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeDocumentOpen ErrorType = "document_open"
	ErrorTypeSweepAborted ErrorType = "sweep_aborted"
	ErrorTypeInvalidState ErrorType = "invalid_state"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    detail,
		StatusCode: http.StatusBadRequest,
	}
}

// NewDocumentOpenError reports a malformed or unreadable document stream
func NewDocumentOpenError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDocumentOpen,
		Message:    "failed to open document",
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// SweepAbortedError reports the engine failure that stopped a render sweep
type SweepAbortedError struct {
	Step      int
	PageIndex int
	Cause     error
}

func (e *SweepAbortedError) Error() string {
	return fmt.Sprintf("render sweep aborted at step %d (page %d): %v", e.Step, e.PageIndex+1, e.Cause)
}

func (e *SweepAbortedError) Unwrap() error {
	return e.Cause
}

// NewSweepAbortedError wraps a sweep failure into an AppError
func NewSweepAbortedError(step, pageIndex int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeSweepAborted,
		Message:    "render sweep aborted",
		StatusCode: http.StatusInternalServerError,
		Cause:      &SweepAbortedError{Step: step, PageIndex: pageIndex, Cause: cause},
	}
}

// NewInvalidStateError creates an error for intents that do not apply to the current session state
func NewInvalidStateError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Message:    message,
		StatusCode: http.StatusConflict,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewUnavailableError reports a collaborator that is not configured or reachable
func NewUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
