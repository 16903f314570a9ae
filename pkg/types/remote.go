package types

import (
	"context"
	"errors"
	"fmt"
)

// Row is one remote record keyed by remote column names.
type Row map[string]any

// ID returns the row's id column as a string.
func (r Row) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Filter is a conjunction of column equality predicates.
type Filter map[string]any

// Remote is the named-collection CRUD boundary of the remote store.
type Remote interface {
	Select(ctx context.Context, collection string, filter Filter) ([]Row, error)
	// Insert returns the stored row including server-assigned columns.
	Insert(ctx context.Context, collection string, row Row) (Row, error)
	Update(ctx context.Context, collection, id string, row Row) (Row, error)
	Delete(ctx context.Context, collection, id string) error
	// Probe performs a lightweight existence check of collection.
	Probe(ctx context.Context, collection string) error
}

// RemoteCode classifies a remote failure.
type RemoteCode string

// Remote error codes.
const (
	CodeCollectionMissing   RemoteCode = "collection_missing"
	CodeColumnMissing       RemoteCode = "column_missing"
	CodeUniqueViolation     RemoteCode = "unique_violation"
	CodeForeignKeyViolation RemoteCode = "foreign_key_violation"
	CodeNotFound            RemoteCode = "not_found"
	CodeUnavailable         RemoteCode = "unavailable"
	CodeUnknown             RemoteCode = "unknown"
)

// RemoteError is returned by Remote implementations.
type RemoteError struct {
	Code       RemoteCode
	Collection string
	// Field names the offending column for CodeColumnMissing.
	Field string
	Err   error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("remote %s on %s", e.Code, e.Collection)
	if e.Field != "" {
		msg += " (field " + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	switch e.Code {
	case CodeColumnMissing:
		return []error{ErrSchemaMismatch, e.Err}
	case CodeCollectionMissing, CodeUnavailable:
		return []error{ErrRemoteUnavailable, e.Err}
	case CodeUniqueViolation:
		return []error{ErrDuplicateID, e.Err}
	case CodeNotFound:
		return []error{ErrNotFound, e.Err}
	}
	return []error{e.Err}
}

// RemoteCodeOf extracts the code of a RemoteError, or CodeUnknown.
func RemoteCodeOf(err error) RemoteCode {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code
	}
	return CodeUnknown
}
