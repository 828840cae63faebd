package domain

import "errors"

// Domain errors
var (
	ErrNoDocument     = errors.New("no document open")
	ErrSweepCancelled = errors.New("render sweep cancelled")
	ErrSweepRunning   = errors.New("render sweep already running")
	ErrSessionClosed  = errors.New("session closed")
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrInvalidFile    = errors.New("invalid file")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
