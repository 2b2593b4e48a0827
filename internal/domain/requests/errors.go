package requests

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a request, line or state cannot be resolved.
	ErrNotFound = errors.New("request: not found")

	// ErrAlreadyFinal is returned when a transition is attempted on a request
	// whose current state is final. No mutation happens.
	ErrAlreadyFinal = errors.New("request: state is final")

	// ErrValidation is the sentinel wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")
)

// Validation codes. Each names the invariant the input broke.
const (
	CodeNegative         = "negative"
	CodeExceedsRequested = "exceeds_requested"
	CodeExceedsApproved  = "exceeds_approved"
	CodeExceedsPending   = "exceeds_pending"
	CodeMissingWarehouse = "missing_warehouse"
	CodeEmptyLines       = "empty_lines"
	CodeKindMismatch     = "kind_mismatch"
	CodeRequired         = "required"
)

// ValidationError is a field-keyed business rule violation. It aborts the
// enclosing transaction; nothing is committed.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationErr(field, code, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
