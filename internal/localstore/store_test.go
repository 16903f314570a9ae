package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// backends returns every Backend that can run in this environment.
func backends(t *testing.T) map[string]func(t *testing.T) Backend {
	t.Helper()
	out := map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemory() },
		"sqlite": func(t *testing.T) Backend {
			b, err := OpenSQLite(t.TempDir())
			require.NoError(t, err)
			return b
		},
		"file": func(t *testing.T) Backend {
			b, err := OpenFile(t.TempDir())
			require.NoError(t, err)
			return b
		},
	}
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		out["redis"] = func(t *testing.T) Backend {
			client := goredis.NewClient(&goredis.Options{Addr: addr})
			b := NewRedis(client, "petcare-test-"+filepath.Base(t.TempDir()))
			t.Cleanup(func() { _ = b.DeleteAll(context.Background()) })
			return b
		}
	}
	return out
}

func TestStoreConformance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(open(t), nil)
			defer s.Close()

			var got []record
			found, err := s.Get(ctx, "@petcare:pets", &got)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, got)

			want := []record{{ID: "p1", Name: "Rex"}, {ID: "p2", Name: "Mia"}}
			require.NoError(t, s.Set(ctx, "@petcare:pets", want))
			found, err = s.Get(ctx, "@petcare:pets", &got)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, want, got)

			// Overwrite replaces the whole value.
			require.NoError(t, s.Set(ctx, "@petcare:pets", want[:1]))
			got = nil
			_, err = s.Get(ctx, "@petcare:pets", &got)
			require.NoError(t, err)
			assert.Equal(t, want[:1], got)

			require.NoError(t, s.MultiSet(ctx, map[string]any{
				"@petcare:tasks":         []record{{ID: "t1"}},
				"@petcare:schemaVersion": 3,
			}))
			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"@petcare:pets", "@petcare:schemaVersion", "@petcare:tasks"}, keys)

			raw, err := s.MultiGet(ctx, []string{"@petcare:schemaVersion", "@petcare:missing"})
			require.NoError(t, err)
			require.Len(t, raw, 1)
			assert.JSONEq(t, `3`, string(raw["@petcare:schemaVersion"]))

			require.NoError(t, s.MultiRemove(ctx, []string{"@petcare:tasks", "@petcare:missing"}))
			require.NoError(t, s.Remove(ctx, "@petcare:schemaVersion"))
			require.NoError(t, s.Remove(ctx, "@petcare:schemaVersion"))
			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"@petcare:pets"}, keys)

			require.NoError(t, s.Clear(ctx))
			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Put(ctx, "@petcare:pets", []byte("{not json")))

	s := New(mem, nil)
	var got []record
	found, err := s.Get(ctx, "@petcare:pets", &got)
	assert.False(t, found)
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestStoreEncodeFailure(t *testing.T) {
	s := New(NewMemory(), nil)
	err := s.Set(context.Background(), "k", make(chan int))
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestStoreClosedBackend(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory(), nil)
	require.NoError(t, s.Close())

	var v int
	_, err := s.Get(ctx, "k", &v)
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.ErrorIs(t, s.Set(ctx, "k", 1), types.ErrStorage)
	_, err = s.Keys(ctx)
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, New(b, nil).Set(ctx, "@petcare:initialized", true))
	require.NoError(t, b.Close())

	_, err = os.Stat(filepath.Join(dir, DBFileName))
	require.NoError(t, err)

	b, err = OpenSQLite(dir)
	require.NoError(t, err)
	defer b.Close()
	var initialized bool
	found, err := New(b, nil).Get(ctx, "@petcare:initialized", &initialized)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, initialized)
}

func TestFileEscapesKeys(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := OpenFile(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(ctx, "@petcare:health_records", []byte(`[]`)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"@petcare:health_records"}, keys)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
	}{
		{"memory", types.Config{Backend: types.BackendMemory}, nil},
		{"sqlite", types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, nil},
		{"file", types.Config{Backend: types.BackendFile, DataDir: t.TempDir()}, nil},
		{"unknown", types.Config{Backend: "leveldb"}, types.ErrBackendUnknown},
		{"redis without addr", types.Config{Backend: types.BackendRedis}, types.ErrRedisAddrEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
}
