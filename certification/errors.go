/*
errors.go - Error taxonomy for the certification core

ERROR CATEGORIES:
  1. InvalidArgument - malformed input (empty target list, oversized files)
  2. NotFound        - a referenced employee or certification does not exist,
                       or a selection yields nothing to copy
  3. Persistence     - store failure; aborts and rolls back a copy batch

USAGE:
  Callers classify with errors.Is against the sentinels, or use the helpers:

    if certification.IsNotFound(err) {
        // 404
    }

  Scoring and classification never return errors.

SEE ALSO:
  - copy.go: raises all three categories
  - api/handlers.go: maps categories to HTTP status codes
*/
package certification

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrPersistence     = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid argument: %s", e.Message)
	}
	return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// NotFoundError names what could not be found.
type NotFoundError struct {
	Kind string // "employee", "certification", "certifications"
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure with the operation that failed.
// It matches both ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op         string
	EmployeeID string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.EmployeeID == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.EmployeeID, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func persistence(op, employeeID string, err error) error {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, EmployeeID: employeeID, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPersistence returns true for store-level failures.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
