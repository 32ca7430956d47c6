package models

import (
	"errors"
	"fmt"
)

// Error kinds shared across services. Handlers map these onto HTTP statuses.
var (
	// ErrNotFound signals a required row that is missing or inactive.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode signals a create/update whose code collides with
	// another active row.
	ErrDuplicateCode = errors.New("already exists")

	// ErrValidation signals input that failed a field-level check before any
	// persistence was attempted.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError wraps ErrNotFound with the descriptive "X Not found" message
// some lookups surface.
func NotFoundError(entity string) error {
	return fmt.Errorf("%s Not found: %w", entity, ErrNotFound)
}

// DuplicateError wraps ErrDuplicateCode with the colliding code.
func DuplicateError(entity, code string) error {
	return fmt.Errorf("%s %q %w", entity, code, ErrDuplicateCode)
}

// ValidationError wraps ErrValidation with a field-level message.
func ValidationError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}
