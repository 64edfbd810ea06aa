package models

import "errors"

// Error kinds shared by every layer. Package-level errors wrap one of these with %w
// so the HTTP layer can map them without knowing every concrete error.
var (
	ErrValidation    = errors.New("validation error")
	ErrRuleViolation = errors.New("rule violation")
	ErrStateConflict = errors.New("state conflict")
	ErrNotFound      = errors.New("not found")
	ErrInvariant     = errors.New("invariant failure")
)
