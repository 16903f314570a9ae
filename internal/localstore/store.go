// Package localstore implements types.LocalStore, the always-available
// key to JSON value store. Store handles encoding and error wrapping; the
// Backend implementations (SQLite, file, Redis, memory) only move bytes.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Backend is a byte-level key/value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// BatchBackend is implemented by backends that can apply several writes
// atomically.
type BatchBackend interface {
	Backend
	PutMany(ctx context.Context, items map[string][]byte) error
	DeleteMany(ctx context.Context, keys []string) error
}

// Store implements types.LocalStore over a Backend.
type Store struct {
	backend Backend
	log     *logger.Logger
}

var _ types.LocalStore = (*Store)(nil)

// New wraps backend. log may be nil.
func New(backend Backend, log *logger.Logger) *Store {
	return &Store{
		backend: backend,
		log:     logger.OrNop(log).With("component", "localstore"),
	}
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg types.Config, log *logger.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		b, err = OpenSQLite(cfg.DataDir)
	case types.BackendFile:
		b, err = OpenFile(cfg.DataDir)
	case types.BackendRedis:
		b, err = OpenRedis(ctx, cfg.Redis)
	case types.BackendMemory:
		b = NewMemory()
	default:
		err = types.ErrBackendUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return New(b, log), nil
}

func storageErr(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s: %w", types.ErrStorage, op, err)
	}
	return fmt.Errorf("%w: %s %q: %w", types.ErrStorage, op, key, err)
}

func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, storageErr("get", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, storageErr("decode", key, err)
	}
	return true, nil
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return storageErr("encode", key, err)
	}
	if err := s.backend.Put(ctx, key, raw); err != nil {
		return storageErr("set", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return storageErr("remove", key, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.DeleteAll(ctx); err != nil {
		return storageErr("clear", "", err)
	}
	s.log.Info("local store cleared")
	return nil
}

// Keys returns every stored key in sorted order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, storageErr("keys", "", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) MultiGet(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		raw, found, err := s.backend.Get(ctx, key)
		if err != nil {
			return nil, storageErr("get", key, err)
		}
		if found {
			out[key] = json.RawMessage(raw)
		}
	}
	return out, nil
}

func (s *Store) MultiSet(ctx context.Context, items map[string]any) error {
	encoded := make(map[string][]byte, len(items))
	for key, value := range items {
		raw, err := json.Marshal(value)
		if err != nil {
			return storageErr("encode", key, err)
		}
		encoded[key] = raw
	}
	if bb, ok := s.backend.(BatchBackend); ok {
		if err := bb.PutMany(ctx, encoded); err != nil {
			return storageErr("multiset", "", err)
		}
		return nil
	}
	for _, key := range sortedKeys(encoded) {
		if err := s.backend.Put(ctx, key, encoded[key]); err != nil {
			return storageErr("set", key, err)
		}
	}
	return nil
}

func (s *Store) MultiRemove(ctx context.Context, keys []string) error {
	if bb, ok := s.backend.(BatchBackend); ok {
		if err := bb.DeleteMany(ctx, keys); err != nil {
			return storageErr("multiremove", "", err)
		}
		return nil
	}
	for _, key := range keys {
		if err := s.backend.Delete(ctx, key); err != nil {
			return storageErr("remove", key, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
