package business

import "errors"

// Sentinels raised by the business flows. They are always wrapped in a
// ledger.ValidationError or ledger.StateError so callers can keep using the
// ledger helpers (IsValidation, IsState, IsNotFound).
var (
	ErrWrongDocumentKind = errors.New("wrong document kind")
	ErrWrongOwnerKind    = errors.New("wrong owner kind")
	ErrRoleNotConfigured = errors.New("account role not configured")
	ErrAlreadySettled    = errors.New("document is already settled")
	ErrMissingName       = errors.New("name is required")
	ErrZeroStatementLine = errors.New("statement line amount is zero")
	ErrInvalidTaxRate    = errors.New("tax rate must be between 0 and 100")
)
