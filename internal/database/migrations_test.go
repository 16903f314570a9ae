package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

func TestMigrationsUpgradeLegacyData(t *testing.T) {
	ctx := context.Background()
	db, store := newDB(t, types.Config{}, nil, WithSeeder(nil))

	require.NoError(t, store.MultiSet(ctx, map[string]any{
		types.KindPet.StorageKey(): []map[string]any{{
			"id": "p1", "userId": "u1", "name": "Old", "type": "dog", "isActive": true,
			"vetName": "Dr. Who", "vetPhone": "555-0199", "vetClinic": "",
		}},
		types.KindTask.StorageKey(): []map[string]any{{
			"id": "t1", "userId": "u1", "petId": "p1", "title": "Walk", "category": " WALK ",
			"dueDate": "2024-04-30T08:00:00Z", "createdAt": "2024-01-01T00:00:00Z",
		}},
		types.KindMedication.StorageKey(): []map[string]any{{
			"id": "m1", "userId": "u1", "petId": "p1", "name": "Pill", "dosage": "1",
			"startDate": "2024-01-01T00:00:00Z", "sideEffects": "nausea, , Drowsiness",
		}},
	}))

	rep, err := db.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, rep.Migration.Applied)
	assert.NoError(t, rep.Migration.Err)

	pet, ok := db.Pets.GetByID(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "Dr. Who", pet.Vet.Name)
	assert.Equal(t, "555-0199", pet.Vet.Phone)
	assert.Empty(t, pet.Vet.Clinic)
	assert.Equal(t, now, pet.CreatedAt)
	assert.Equal(t, now, pet.UpdatedAt)

	var raw []map[string]any
	_, err = store.Get(ctx, types.KindPet.StorageKey(), &raw)
	require.NoError(t, err)
	assert.NotContains(t, raw[0], "vetName")

	task, ok := db.Tasks.GetByID(ctx, "t1")
	require.True(t, ok)
	assert.Equal(t, types.TaskCategoryWalk, task.Category)
	assert.Equal(t, types.PriorityMedium, task.Priority)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	med, ok := db.Medications.GetByID(ctx, "m1")
	require.True(t, ok)
	assert.Equal(t, []string{"nausea", "Drowsiness"}, med.SideEffects)
}

func TestMigrationsAreSelfGuarding(t *testing.T) {
	ctx := context.Background()
	_, store := newDB(t, types.Config{}, nil)
	modern := []map[string]any{{
		"id": "p1", "name": "New", "createdAt": "2024-01-01T00:00:00Z", "updatedAt": "2024-01-02T00:00:00Z",
		"vet": map[string]any{"name": "Dr. Existing"},
	}}
	require.NoError(t, store.Set(ctx, types.KindPet.StorageKey(), modern))

	for _, m := range Migrations(func() time.Time { return now }) {
		require.NoError(t, m.Apply(ctx, store), m.Description)
		require.NoError(t, m.Apply(ctx, store), m.Description)
	}

	var got []map[string]any
	_, err := store.Get(ctx, types.KindPet.StorageKey(), &got)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", got[0]["createdAt"])
	assert.Equal(t, map[string]any{"name": "Dr. Existing"}, got[0]["vet"])
}

func TestMigrationHelpers(t *testing.T) {
	rec := map[string]any{"vetName": "Dr. Flat", "vet": map[string]any{"name": "Dr. Nested"}}
	assert.True(t, nestVet(rec))
	assert.Equal(t, "Dr. Nested", rec["vet"].(map[string]any)["name"])
	assert.False(t, nestVet(rec))

	task := map[string]any{"category": "walk", "priority": "high"}
	assert.False(t, normalizeTaskFields(task))

	med := map[string]any{"sideEffects": []any{"a"}}
	assert.False(t, splitSideEffects(med))
	med = map[string]any{"sideEffects": ""}
	assert.True(t, splitSideEffects(med))
	assert.Equal(t, []string{}, med["sideEffects"])

	ts := map[string]any{"updatedAt": "2024-02-02T00:00:00Z"}
	assert.True(t, stampTimestamps(ts, "x"))
	assert.Equal(t, "2024-02-02T00:00:00Z", ts["createdAt"])
}
