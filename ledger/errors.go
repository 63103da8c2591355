/*
errors.go - Error taxonomy for the posting engine

ERROR CATEGORIES:
  1. ValidationError - bad input shape, the caller's fault
     (negative amount, empty line list, mismatched tax direction)
  2. StateError - a domain precondition is not met
     (missing account, document already past the requested transition)
  3. InvariantViolation - an unbalanced transaction reached the commit
     point. Unreachable with correct construction; fatal to the operation
     and logged as a defect.

USAGE:
  Structured errors unwrap to a sentinel, so both styles work:

    if errors.Is(err, ledger.ErrNoLineItems) { ... }
    if ledger.IsValidation(err) { ... }

SEE ALSO:
  - poster.go: raises InvariantViolation before any store call
  - api/handlers.go: maps categories to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// Validation sentinels.
var (
	ErrNoLineItems          = errors.New("document has no line items")
	ErrNegativeLineAmount   = errors.New("line amount is negative")
	ErrTaxDirectionMismatch = errors.New("tax direction does not match document kind")
	ErrMissingTaxAccount    = errors.New("tax rule has no payable account")
	ErrNonPositiveAmount    = errors.New("amount must be greater than zero")
	ErrSameAccount          = errors.New("debit and credit account are the same")
	ErrTooFewSplits         = errors.New("transaction needs at least two splits")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAmountOutOfRange     = errors.New("amount exceeds the supported range")
)

// State sentinels.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOwnerNotFound       = errors.New("owner not found")
	ErrInvalidTransition   = errors.New("invalid document status transition")
	ErrNotPosted           = errors.New("document is not posted")
	ErrCounterAccountType  = errors.New("counter account has the wrong type")
)

// ErrUnbalancedTransaction is the invariant every transaction must satisfy.
var ErrUnbalancedTransaction = errors.New("unbalanced transaction")

// ErrDuplicateTransaction is returned by stores when a transaction id is reused.
var ErrDuplicateTransaction = errors.New("duplicate transaction id")

// ErrStoreRequired is returned when an operation needs an optional store capability.
var ErrStoreRequired = errors.New("operation requires extended store interface")

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports input the caller must fix.
type ValidationError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Reason != "":
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Reason)
	default:
		return e.Err.Error()
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StateError reports an unmet domain precondition.
type StateError struct {
	Err    error
	Reason string
}

func (e *StateError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *StateError) Unwrap() error { return e.Err }

// InvariantViolation reports a split set that does not sum to zero.
type InvariantViolation struct {
	Sum    Money
	Splits []Split

	// Overflow is set when the exact sum does not fit in Money; Sum is then zero.
	Overflow bool
}

func (e *InvariantViolation) Error() string {
	if e.Overflow {
		return fmt.Sprintf("%v: %d splits sum past the int64 range", ErrUnbalancedTransaction, len(e.Splits))
	}
	return fmt.Sprintf("%v: %d splits sum to %s", ErrUnbalancedTransaction, len(e.Splits), e.Sum)
}

func (e *InvariantViolation) Unwrap() error { return ErrUnbalancedTransaction }

func invalid(err error, field, reason string) error {
	return &ValidationError{Err: err, Field: field, Reason: reason}
}

func stateErr(err error, format string, args ...any) error {
	return &StateError{Err: err, Reason: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}

func IsInvariant(err error) bool {
	return errors.Is(err, ErrUnbalancedTransaction)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrOwnerNotFound)
}

// IsClientError returns true if the caller can fix the request.
func IsClientError(err error) bool {
	return IsValidation(err) || IsState(err)
}
