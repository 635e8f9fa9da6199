package order

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDuplicateNumber is returned by Repository.Create when the order number
// is already taken. The pipeline retries allocation on this error.
var ErrDuplicateNumber = errors.New("order number already exists")

// ErrNotFound is returned by Repository.GetByNumber when no order exists
// for the given number.
var ErrNotFound = errors.New("order not found")

// InputValidationError indicates a missing or malformed field in the raw
// order input. It is always client-correctable.
type InputValidationError struct {
	Field  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// invalidf builds an InputValidationError for field with a formatted reason.
func invalidf(field, format string, args ...any) *InputValidationError {
	return &InputValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MonetaryMismatchError indicates a caller-submitted monetary figure
// disagrees with the recomputed value beyond the 0.01 tolerance. Both
// figures are carried so the caller can reconcile; the submitted value is
// never silently replaced.
type MonetaryMismatchError struct {
	Field    string
	Provided decimal.Decimal
	Computed decimal.Decimal
}

func (e *MonetaryMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: provided %s, computed %s",
		e.Field, e.Provided.StringFixed(2), e.Computed.StringFixed(2))
}

// AllocationError indicates order number allocation failed after exhausting
// retries or because the counter store is unavailable. It is transient:
// the whole create operation is safe to retry.
type AllocationError struct {
	Attempts int
	Err      error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("order number allocation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Retryable marks the error as transient for callers that classify errors
// generically.
func (e *AllocationError) Retryable() bool { return true }
