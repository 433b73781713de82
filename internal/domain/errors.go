package domain

import (
	"errors"
	"strings"
)

// Domain errors
var (
	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrPaymentRejected  = errors.New("payment rejected")

	// Roster bound warnings (non-blocking, state unchanged)
	ErrLimitExceeded      = errors.New("passenger limit exceeded")
	ErrInvariantViolation = errors.New("at least one passenger is required")

	// Lookup errors
	ErrTrainNotFound     = errors.New("train not found")
	ErrSeatNotFound      = errors.New("seat not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrPassengerNotFound = errors.New("passenger not found")

	// Workflow errors
	ErrInvalidTransition = errors.New("operation not allowed in current step")
	ErrBusy              = errors.New("payment is processing")
	ErrWorkflowClosed    = errors.New("workflow already completed")
	ErrSeatUnavailable   = errors.New("seat is not available")
	ErrClassNotOffered   = errors.New("class not offered on this train")
)

// FieldError is one field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field errors under one notice.
// It unwraps to its Kind so callers can classify with errors.Is.
type ValidationError struct {
	Kind   error
	Notice string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e.Notice != "" {
		return e.Notice
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return e.Kind.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// FieldMap returns the field errors keyed by field name
func (e *ValidationError) FieldMap() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Message
	}
	return m
}

// NewValidationError builds a ValidationFailed error with a notice
func NewValidationError(notice string, fields ...FieldError) *ValidationError {
	return &ValidationError{Kind: ErrValidationFailed, Notice: notice, Fields: fields}
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTrainNotFound) ||
		errors.Is(err, ErrSeatNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrPassengerNotFound)
}

// IsValidationError checks if the error is a recoverable input error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrPaymentRejected)
}

// IsWarning checks if the error is a non-blocking roster warning
func IsWarning(err error) bool {
	return errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrInvariantViolation)
}

// IsConflictError checks if the error conflicts with the current workflow state
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSessionExists) ||
		errors.Is(err, ErrSeatUnavailable) ||
		errors.Is(err, ErrClassNotOffered)
}
