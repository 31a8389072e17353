package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored, or the database rejects it as violating a constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrQuestionNotFound indicates that the referenced question does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)

	// ErrLevelNotFound indicates that the referenced level has no questions.
	ErrLevelNotFound = fmt.Errorf("%w: level", ErrNotFound)
)

// Machine codes carried by StoreError when the driver does not supply its own.
const (
	CodeNotFound  = "not_found"
	CodeDuplicate = "duplicate"
	CodeInvalid   = "invalid"
	CodeInternal  = "internal"
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is the typed error returned by store implementations. Code is a
// machine-readable identifier (a SQLSTATE when the database reported one),
// Message is meant for humans, and Detail and Hint are optional context from
// the database. Err wraps one of the sentinels above so errors.Is keeps working.
type StoreError struct {
	Entity    string
	Operation string
	Code      string
	Message   string
	Detail    string
	Hint      string
	Err       error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("%s operation on %s failed [%s]: %s", e.Operation, e.Entity, e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError. The code is derived from the wrapped
// sentinel; use the struct literal to set a driver code, detail or hint.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Code:      CodeFor(err),
		Message:   message,
		Err:       err,
	}
}

// CodeFor returns the generic machine code matching err.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDuplicate):
		return CodeDuplicate
	case errors.Is(err, ErrInvalidEntity):
		return CodeInvalid
	default:
		return CodeInternal
	}
}

// CodeOf extracts the machine code from err, or "" when err carries no StoreError.
func CodeOf(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
