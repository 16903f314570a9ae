package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/petcare/internal/capability"
	"github.com/mesh-intelligence/petcare/internal/localstore"
	"github.com/mesh-intelligence/petcare/internal/remote"
	"github.com/mesh-intelligence/petcare/internal/translate"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *localstore.Store
	remote *remote.Memory
	prober *capability.Prober
	pets   *Manager[types.Pet, *types.Pet]
}

func newFixture(t *testing.T, syncEnabled bool) *fixture {
	t.Helper()
	f := &fixture{
		store:  localstore.New(localstore.NewMemory(), nil),
		remote: remote.NewMemory(),
	}
	f.remote.CreateCollection("pets")
	f.prober = capability.New(f.remote, time.Second, nil)
	n := 0
	f.pets = New[types.Pet](f.store, f.remote, f.prober, Config{
		SyncEnabled: syncEnabled,
		Now:         func() time.Time { return now },
		NewID: func() string {
			n++
			return fmt.Sprintf("pet-%d", n)
		},
	}, nil)
	return f
}

func remotePet(t *testing.T, p types.Pet) types.Row {
	t.Helper()
	p.Normalize()
	row, err := translate.ToRemote(&p)
	require.NoError(t, err)
	return row
}

func TestLocalOnlyLifecycle(t *testing.T) {
	ctx := context.Background()
	store := localstore.New(localstore.NewMemory(), nil)
	pets := New[types.Pet](store, nil, nil, Config{}, nil)

	created, err := pets.Create(ctx, types.Pet{Name: "Luna", Type: "dog"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Luna", created.Name)
	assert.Equal(t, "dog", created.Type)

	all := pets.GetAll(ctx, "")
	require.Len(t, all, 1)
	assert.Equal(t, created, all[0])

	updated, ok, err := pets.Update(ctx, created.ID, types.Patch{"name": "Luna B"})
	require.NoError(t, err)
	require.True(t, ok)
	want := created
	want.Name = "Luna B"
	want.UpdatedAt = updated.UpdatedAt
	assert.Equal(t, want, updated)

	assert.True(t, pets.Delete(ctx, created.ID))
	_, ok = pets.GetByID(ctx, created.ID)
	assert.False(t, ok)
	assert.False(t, pets.Delete(ctx, created.ID))
}

func TestCreateThenRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	in := types.Pet{UserID: "u1", Name: "Rex", Type: "dog", Breed: "Beagle", Weight: 11.5, Allergies: []string{"wheat"}}
	created, err := f.pets.Create(ctx, in)
	require.NoError(t, err)

	got, ok := f.pets.GetByID(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, created, got)
	assert.Equal(t, in.Breed, got.Breed)
	assert.Equal(t, in.Weight, got.Weight)
	assert.Equal(t, in.Allergies, got.Allergies)
	assert.Equal(t, now, got.CreatedAt)

	mixed := types.Pet{UserID: "u1", Name: "Bella", Type: "Dog", Gender: "Female", Allergies: []string{"Chicken", "chicken", "Wheat"}}
	created, err = f.pets.Create(ctx, mixed)
	require.NoError(t, err)
	got, ok = f.pets.GetByID(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, mixed.Type, got.Type)
	assert.Equal(t, mixed.Gender, got.Gender)
	assert.Equal(t, mixed.Allergies, got.Allergies)
}

func TestCreateKeepsDisplayFieldsAfterRemoteInsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	created, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: "Rex", Type: "dog", AgeLabel: "3 years"})
	require.NoError(t, err)
	assert.Equal(t, "3 years", created.AgeLabel)

	rows, err := f.remote.Select(ctx, "pets", types.Filter{"id": created.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotContains(t, rows[0], "age_label")

	got, ok := f.pets.GetByID(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, "3 years", got.AgeLabel)
}

func TestCreateRejectsInvalidAndDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, err := f.pets.Create(ctx, types.Pet{Type: "dog"})
	assert.ErrorIs(t, err, types.ErrValidation)
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Zero(t, f.pets.Count(ctx, ""))
	assert.Zero(t, f.remote.TotalCalls())

	_, err = f.pets.Create(ctx, types.Pet{Base: types.Base{ID: "p1"}, Name: "Rex", Type: "dog"})
	require.NoError(t, err)
	_, err = f.pets.Create(ctx, types.Pet{Base: types.Base{ID: "p1"}, Name: "Max", Type: "cat"})
	assert.ErrorIs(t, err, types.ErrDuplicateID)
	assert.Equal(t, 1, f.pets.Count(ctx, ""))
}

func TestBirthDateCheckedAgainstClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	later := now.AddDate(0, 1, 0)
	_, err := f.pets.Create(ctx, types.Pet{Name: "Rex", Type: "dog", BirthDate: &later})
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "birthDate", ve.Field)

	earlier := now.AddDate(-1, 0, 0)
	created, err := f.pets.Create(ctx, types.Pet{Name: "Rex", Type: "dog", BirthDate: &earlier})
	require.NoError(t, err)

	_, _, err = f.pets.Update(ctx, created.ID, types.Patch{"birthDate": later.Format(time.RFC3339)})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "birthDate", ve.Field)
}

func TestNewUUIDIsVersion7(t *testing.T) {
	id, err := uuid.Parse(NewUUID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestCreateSurfacesStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := localstore.New(localstore.NewMemory(), nil)
	pets := New[types.Pet](store, nil, nil, Config{}, nil)
	require.NoError(t, store.Close())

	_, err := pets.Create(ctx, types.Pet{Name: "Rex", Type: "dog"})
	assert.ErrorIs(t, err, types.ErrStorage)

	// Reads absorb the failure.
	assert.Empty(t, pets.GetAll(ctx, ""))
	assert.Zero(t, pets.Count(ctx, ""))
	assert.False(t, pets.Delete(ctx, "x"))
}

func TestCreateReflectsServerFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	server := time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)
	f.remote.OnInsert(func(_ string, row types.Row) { row["created_at"] = server.Format(time.RFC3339Nano) })

	created, err := f.pets.Create(ctx, types.Pet{Name: "Rex", Type: "dog"})
	require.NoError(t, err)
	assert.Equal(t, server, created.CreatedAt)
	assert.Equal(t, 1, f.remote.Calls(remote.OpInsert, "pets"))

	got, ok := f.pets.GetByID(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, server, got.CreatedAt)
}

func TestCreateKeepsLocalWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.remote.Fail(remote.OpInsert, "pets", errors.New("network down"))

	created, err := f.pets.Create(ctx, types.Pet{Name: "Rex", Type: "dog"})
	require.NoError(t, err)
	assert.Equal(t, now, created.CreatedAt)
	assert.Equal(t, 1, f.pets.Count(ctx, ""))
}

func TestDegradedModeNeverCallsRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.prober.Mark("pets", false)

	created, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: "Rex", Type: "dog"})
	require.NoError(t, err)
	assert.Len(t, f.pets.GetAll(ctx, "u1"), 1)
	_, ok, err := f.pets.Update(ctx, created.ID, types.Patch{"breed": "Lab"})
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok = f.pets.GetByID(ctx, "missing")
	assert.False(t, ok)
	assert.True(t, f.pets.Delete(ctx, created.ID))
	assert.Equal(t, SyncResult{Kind: types.KindPet}, f.pets.SyncToRemote(ctx))
	assert.Equal(t, SyncResult{Kind: types.KindPet}, f.pets.SyncFromRemote(ctx, "u1"))

	assert.Zero(t, f.remote.TotalCalls())
	assert.Zero(t, f.remote.Calls(remote.OpProbe, "pets"))
}

func TestGetAllMergesRemoteFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	require.NoError(t, f.store.Set(ctx, types.KindPet.StorageKey(), []types.Pet{
		{Base: types.Base{ID: "A"}, UserID: "u1", Name: "local", Type: "dog"},
		{Base: types.Base{ID: "B"}, UserID: "u1", Name: "b", Type: "dog"},
		{Base: types.Base{ID: "Z"}, UserID: "u2", Name: "other owner", Type: "cat"},
	}))
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "A"}, UserID: "u1", Name: "remote", Type: "dog"}))
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "C"}, UserID: "u1", Name: "c", Type: "dog"}))

	got := f.pets.GetAll(ctx, "u1")
	var names []string
	for _, p := range got {
		names = append(names, p.ID+":"+p.Name)
	}
	assert.Equal(t, []string{"A:remote", "C:c", "B:b"}, names)

	// The merged set is persisted and other owners' records survive.
	var stored []types.Pet
	_, err := f.store.Get(ctx, types.KindPet.StorageKey(), &stored)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
	assert.Equal(t, 4, f.pets.Count(ctx, ""))
	assert.Equal(t, 1, f.pets.Count(ctx, "u2"))
}

func TestGetAllFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: "Rex", Type: "dog"})
	require.NoError(t, err)

	f.remote.Fail(remote.OpSelect, "pets", errors.New("timeout"))
	got := f.pets.GetAll(ctx, "u1")
	require.Len(t, got, 1)
	assert.Equal(t, "Rex", got[0].Name)
}

func TestGetByIDFetchesAndCachesRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "r1"}, UserID: "u1", Name: "Remote", Type: "cat"}))

	got, ok := f.pets.GetByID(ctx, "r1")
	require.True(t, ok)
	assert.Equal(t, "Remote", got.Name)

	f.remote.DropCollection("pets")
	got, ok = f.pets.GetByID(ctx, "r1")
	require.True(t, ok)
	assert.Equal(t, "Remote", got.Name)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	created, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: "Rex", Type: "dog"})
	require.NoError(t, err)

	_, ok, err := f.pets.Update(ctx, "missing", types.Patch{"name": "x"})
	assert.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := f.pets.Update(ctx, created.ID, types.Patch{
		"weight":    "12.5",
		"isActive":  "true",
		"birthDate": "2020-05-17",
		"id":        "hijack",
	})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 12.5, got.Weight)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC), *got.BirthDate)
	assert.Equal(t, 1, f.remote.Calls(remote.OpUpdate, "pets"))

	rows := f.remote.Rows("pets")
	require.Len(t, rows, 1)
	assert.Equal(t, 12.5, rows[0]["weight"])

	_, _, err = f.pets.Update(ctx, created.ID, types.Patch{"type": "dragon"})
	assert.ErrorIs(t, err, types.ErrValidation)
	_, _, err = f.pets.Update(ctx, created.ID, types.Patch{"weight": []string{"heavy"}})
	assert.ErrorIs(t, err, types.ErrValidation)

	stored, _ := f.pets.GetByID(ctx, created.ID)
	assert.Equal(t, "dog", stored.Type)

	// A remote failure does not roll back the local write.
	f.remote.Fail(remote.OpUpdate, "pets", errors.New("boom"))
	got, ok, err = f.pets.Update(ctx, created.ID, types.Patch{"name": "Max"})
	require.NoError(t, err)
	require.True(t, ok)
	stored, _ = f.pets.GetByID(ctx, created.ID)
	assert.Equal(t, "Max", stored.Name)
}

func TestSyncToRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	for _, name := range []string{"A", "B", "C"} {
		_, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: name, Type: "dog"})
		require.NoError(t, err)
	}
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "pet-1"}, Name: "stale", Type: "dog"}))

	f.pets.cfg.SyncEnabled = true
	res := f.pets.SyncToRemote(ctx)
	assert.Equal(t, SyncResult{Kind: types.KindPet, Synced: 3}, res)
	assert.Equal(t, 1, f.remote.Calls(remote.OpUpdate, "pets"))
	assert.Equal(t, 2, f.remote.Calls(remote.OpInsert, "pets"))
	assert.Len(t, f.remote.Rows("pets"), 3)

	f.remote.Fail(remote.OpUpdate, "pets", errors.New("boom"))
	f.remote.DropCollection("pets")
	f.remote.CreateCollection("pets")
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "pet-2"}, Name: "x", Type: "dog"}))
	res = f.pets.SyncToRemote(ctx)
	assert.Equal(t, SyncResult{Kind: types.KindPet, Synced: 2, Errors: 1}, res)
}

func TestSyncToRemoteMissingCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	_, err := f.pets.Create(ctx, types.Pet{Name: "A", Type: "dog"})
	require.NoError(t, err)
	_, err = f.pets.Create(ctx, types.Pet{Name: "B", Type: "dog"})
	require.NoError(t, err)

	f.remote.DropCollection("pets")
	res := f.pets.SyncToRemote(ctx)
	assert.Equal(t, SyncResult{Kind: types.KindPet, Errors: 2}, res)
	assert.Equal(t, map[string]bool{"pets": false}, f.prober.Snapshot())

	// Later calls stay local.
	calls := f.remote.TotalCalls()
	f.pets.GetAll(ctx, "")
	assert.Equal(t, calls, f.remote.TotalCalls())
}

func TestSyncFromRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "r1"}, UserID: "u1", Name: "One", Type: "dog"}))
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "r2"}, UserID: "u1", Name: "Two", Type: "cat"}))
	f.remote.Put("pets", remotePet(t, types.Pet{Base: types.Base{ID: "r3"}, UserID: "u2", Name: "Three", Type: "cat"}))
	f.remote.Put("pets", types.Row{"id": "bad", "user_id": "u1", "allergies": `{"unterminated`})

	res := f.pets.SyncFromRemote(ctx, "u1")
	assert.Equal(t, SyncResult{Kind: types.KindPet, Synced: 2, Errors: 1}, res)
	assert.Equal(t, 2, f.pets.Count(ctx, ""))
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := localstore.New(localstore.NewMemory(), nil)
	pets := New[types.Pet](store, nil, nil, Config{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := pets.Create(ctx, types.Pet{Name: fmt.Sprintf("pet %d", i), Type: "dog"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all := pets.GetAll(ctx, "")
	assert.Len(t, all, 25)
	seen := map[string]bool{}
	for _, p := range all {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}

func TestCollectionInterface(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	var c Collection = f.pets

	e, err := c.Insert(ctx, &types.Pet{Name: "Rex", Type: "dog"})
	require.NoError(t, err)
	assert.Equal(t, types.KindPet, e.Kind())

	_, err = c.Insert(ctx, &types.Task{Title: "x"})
	assert.ErrorIs(t, err, types.ErrUnknownKind)

	got, ok := c.Lookup(ctx, e.GetID())
	require.True(t, ok)
	assert.Equal(t, "Rex", got.(*types.Pet).Name)

	mod, ok, err := c.Modify(ctx, e.GetID(), types.Patch{"name": "Max"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Max", mod.(*types.Pet).Name)

	assert.Len(t, c.List(ctx, ""), 1)
	assert.Equal(t, "pets", c.Collection())
	assert.Equal(t, "@petcare:pets", c.StorageKey())
}

func TestSyncOwnerToRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	_, err := f.pets.Create(ctx, types.Pet{UserID: "u1", Name: "Mine", Type: "dog"})
	require.NoError(t, err)
	_, err = f.pets.Create(ctx, types.Pet{UserID: "u2", Name: "Theirs", Type: "dog"})
	require.NoError(t, err)

	f.pets.cfg.SyncEnabled = true
	res := f.pets.SyncOwnerToRemote(ctx, "u1")
	assert.Equal(t, 1, res.Synced)
	rows := f.remote.Rows("pets")
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0]["user_id"])
}
