package types

import (
	"context"
	"encoding/json"
)

// LocalStore is the durable key to JSON value store every layer builds on.
// Failures wrap ErrStorage.
type LocalStore interface {
	// Get decodes the value under key into dest. found is false when the
	// key is absent; dest is untouched in that case.
	Get(ctx context.Context, key string, dest any) (found bool, err error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)

	// MultiGet returns the raw JSON of every present key.
	MultiGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
	MultiSet(ctx context.Context, items map[string]any) error
	MultiRemove(ctx context.Context, keys []string) error

	Close() error
}
