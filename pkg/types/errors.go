package types

import (
	"errors"
	"fmt"
)

// Engine errors. Storage and remote errors are absorbed by the entity
// manager except where noted; validation and duplicate-id errors always
// reach the caller.
var (
	ErrStorage           = errors.New("local storage failure")
	ErrValidation        = errors.New("entity validation failed")
	ErrDuplicateID       = errors.New("entity id already exists")
	ErrNotFound          = errors.New("entity not found")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrSchemaMismatch    = errors.New("remote schema mismatch")
	ErrMigration         = errors.New("migration failed")
	ErrUnknownKind       = errors.New("unknown entity kind")
	ErrInvalidID         = errors.New("invalid entity id")
)

// ValidationError reports the first rule an entity broke.
type ValidationError struct {
	Kind   Kind
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(k Kind, field, reason string) error {
	return &ValidationError{Kind: k, Field: field, Reason: reason}
}

// MigrationError wraps the failure of a single migration step.
type MigrationError struct {
	Version     int
	Description string
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d (%s): %v", e.Version, e.Description, e.Err)
}

func (e *MigrationError) Unwrap() []error { return []error{ErrMigration, e.Err} }
