package translate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

var (
	created = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	updated = time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
)

func base(id string) types.Base {
	return types.Base{ID: id, CreatedAt: created, UpdatedAt: updated}
}

func TestCaseConversion(t *testing.T) {
	tests := []struct {
		camel, snake string
	}{
		{"id", "id"},
		{"userId", "user_id"},
		{"microchipId", "microchip_id"},
		{"daysOfWeek", "days_of_week"},
		{"distanceKm", "distance_km"},
		{"isPreferred", "is_preferred"},
		{"vetName", "vet_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.snake, CamelToSnake(tt.camel))
		assert.Equal(t, tt.camel, SnakeToCamel(tt.snake))
	}
	assert.Equal(t, "photo_url", CamelToSnake("photoURL"))
	assert.Equal(t, "line2_text", CamelToSnake("line2Text"))
}

func TestArrayLiteral(t *testing.T) {
	assert.Equal(t, `{}`, EncodeArrayLiteral(nil))
	assert.Equal(t, `{"a","b"}`, EncodeArrayLiteral([]string{"a", "b"}))
	assert.Equal(t, `{"say \"hi\"","c:\\"}`, EncodeArrayLiteral([]string{`say "hi"`, `c:\`}))

	tests := []struct {
		in   string
		want []string
	}{
		{`{}`, []string{}},
		{`{"a","b"}`, []string{"a", "b"}},
		{`{a, b ,c}`, []string{"a", "b", "c"}},
		{`{"x,y",NULL,z}`, []string{"x,y", "z"}},
		{`{"say \"hi\""}`, []string{`say "hi"`}},
	}
	for _, tt := range tests {
		got, err := DecodeArrayLiteral(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{``, `a,b`, `{"open}`, `{"a" "b"}`} {
		_, err := DecodeArrayLiteral(bad)
		assert.Error(t, err, bad)
	}
}

func TestToRemotePet(t *testing.T) {
	pet := &types.Pet{
		Base:      base("p1"),
		UserID:    "u1",
		Name:      "Rex",
		Type:      "dog",
		Weight:    12,
		Allergies: []string{"chicken", "wheat"},
		Vet:       &types.Contact{Name: "Dr. Who", Phone: "555", Clinic: "Tardis"},
		IsActive:  true,
		AgeLabel:  "3 years",
	}

	row, err := ToRemote(pet)
	require.NoError(t, err)

	assert.Equal(t, "u1", row["user_id"])
	assert.Equal(t, "Dr. Who", row["vet_name"])
	assert.Equal(t, "555", row["vet_phone"])
	assert.Equal(t, "Tardis", row["vet_clinic"])
	assert.Equal(t, `{"chicken","wheat"}`, row["allergies"])
	assert.Equal(t, int64(12), row["weight"])
	assert.Equal(t, true, row["is_active"])
	assert.NotContains(t, row, "vet")
	assert.NotContains(t, row, "age_label")
	assert.NotContains(t, row, "userId")
}

func TestToRemoteOverrides(t *testing.T) {
	task := &types.Task{
		Base: base("t1"), UserID: "u1", PetID: "p1", Title: "Walk",
		Category: "walk", Priority: "high", DueDate: updated,
		Schedule:  &types.Schedule{Frequency: "weekly", Interval: 1, DaysOfWeek: []int{1, 3}, TimeOfDay: "08:00"},
		IsOverdue: true,
	}
	row, err := ToRemote(task)
	require.NoError(t, err)
	require.IsType(t, datatypes.JSON{}, row["repeat_rule"])
	assert.JSONEq(t, `{"frequency":"weekly","interval":1,"days_of_week":[1,3],"time_of_day":"08:00"}`,
		string(row["repeat_rule"].(datatypes.JSON)))
	assert.NotContains(t, row, "schedule")
	assert.NotContains(t, row, "is_overdue")
	assert.Nil(t, row["completed_at"])

	meal := &types.Meal{Base: base("m1"), PetID: "p1", Name: "Kibble", Preference: "favorite"}
	row, err = ToRemote(meal)
	require.NoError(t, err)
	assert.Equal(t, true, row["is_preferred"])
	assert.Equal(t, "favorite", row["preference"])

	med := &types.Medication{
		Base: base("md1"), PetID: "p1", Name: "Apoquel", Dosage: "16mg", StartDate: created,
		Prescriber:  &types.Contact{Name: "Dr. Vet"},
		SideEffects: []string{"drowsiness"},
	}
	row, err = ToRemote(med)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Vet", row["prescriber_name"])
	assert.Equal(t, "", row["prescriber_clinic"])
	assert.Equal(t, `{"drowsiness"}`, row["side_effects"])
	assert.Contains(t, row, "dose_schedule")
	assert.Nil(t, row["dose_schedule"])

	user := &types.User{Base: base("u1"), Email: "a@b.co", Preferences: &types.Preferences{Units: "metric", Theme: "dark", Notifications: true}, DisplayName: "A"}
	row, err = ToRemote(user)
	require.NoError(t, err)
	assert.JSONEq(t, `{"units":"metric","notifications":true,"theme":"dark"}`, string(row["settings"].(datatypes.JSON)))
	assert.NotContains(t, row, "display_name")
	assert.NotContains(t, row, "preferences")
}

func TestToRemoteZeroTimeIsNull(t *testing.T) {
	pet := &types.Pet{Base: types.Base{ID: "p1"}, Name: "Rex", Type: "dog"}
	row, err := ToRemote(pet)
	require.NoError(t, err)
	assert.Contains(t, row, "created_at")
	assert.Nil(t, row["created_at"])
}

func TestFromRemoteReconstructs(t *testing.T) {
	row := types.Row{
		"id":            "p1",
		"user_id":       "u1",
		"name":          "Rex",
		"type":          "DOG",
		"weight":        "12.5",
		"is_active":     "1",
		"allergies":     `{"chicken",wheat}`,
		"vet_name":      "Dr. Who",
		"vet_phone":     []byte("555"),
		"created_at":    "2024-03-01 09:00:00",
		"server_column": "ignored",
	}
	e, err := FromRemote(types.KindPet, row)
	require.NoError(t, err)
	pet := e.(*types.Pet)

	assert.Equal(t, "p1", pet.ID)
	assert.Equal(t, "u1", pet.UserID)
	assert.Equal(t, "DOG", pet.Type)
	assert.Equal(t, 12.5, pet.Weight)
	assert.True(t, pet.IsActive)
	assert.Equal(t, []string{"chicken", "wheat"}, pet.Allergies)
	assert.Equal(t, &types.Contact{Name: "Dr. Who", Phone: "555"}, pet.Vet)
	assert.True(t, created.Equal(pet.CreatedAt))
}

func TestFromRemotePlaceholders(t *testing.T) {
	e, err := FromRemote(types.KindPet, types.Row{"id": "p1", "name": "Rex", "type": "cat"})
	require.NoError(t, err)
	pet := e.(*types.Pet)
	require.NotNil(t, pet.Vet)
	assert.True(t, pet.Vet.IsZero())
	assert.Equal(t, []string{}, pet.Allergies)

	e, err = FromRemote(types.KindUser, types.Row{"id": "u1", "email": "A@B.co"})
	require.NoError(t, err)
	user := e.(*types.User)
	require.NotNil(t, user.Preferences)
	assert.Equal(t, "a@b.co", user.Email)
}

func TestFromRemoteMealPreference(t *testing.T) {
	e, err := FromRemote(types.KindMeal, types.Row{"id": "m1", "name": "Kibble", "is_preferred": "true"})
	require.NoError(t, err)
	assert.Equal(t, types.PreferenceFavorite, e.(*types.Meal).Preference)

	e, err = FromRemote(types.KindMeal, types.Row{"id": "m1", "name": "Kibble", "is_preferred": false})
	require.NoError(t, err)
	assert.Equal(t, types.PreferenceNeutral, e.(*types.Meal).Preference)

	e, err = FromRemote(types.KindMeal, types.Row{"id": "m1", "preference": "disliked", "is_preferred": true})
	require.NoError(t, err)
	assert.Equal(t, types.PreferenceDisliked, e.(*types.Meal).Preference)
}

func TestFromRemoteJSONColumnForms(t *testing.T) {
	forms := []any{
		datatypes.JSON(`{"frequency":"daily","interval":2,"days_of_week":[],"time_of_day":"07:30"}`),
		[]byte(`{"frequency":"daily","interval":2,"days_of_week":[],"time_of_day":"07:30"}`),
		`{"frequency":"daily","interval":2,"days_of_week":[],"time_of_day":"07:30"}`,
		map[string]any{"frequency": "daily", "interval": float64(2), "days_of_week": []any{}, "time_of_day": "07:30"},
	}
	for _, form := range forms {
		e, err := FromRemote(types.KindTask, types.Row{"id": "t1", "title": "Feed", "repeat_rule": form})
		require.NoError(t, err)
		task := e.(*types.Task)
		require.NotNil(t, task.Schedule, "%T", form)
		assert.Equal(t, types.Schedule{Frequency: "daily", Interval: 2, DaysOfWeek: []int{}, TimeOfDay: "07:30"}, *task.Schedule)
	}

	_, err := FromRemote(types.KindTask, types.Row{"id": "t1", "repeat_rule": "{broken"})
	assert.Error(t, err)
}

func TestUnknownKind(t *testing.T) {
	_, err := FromRemote(types.Kind("spaceship"), types.Row{})
	assert.ErrorIs(t, err, types.ErrUnknownKind)
	_, err = ToRemote(nil)
	assert.ErrorIs(t, err, types.ErrUnknownKind)
}

// Translating to remote and back yields the original normalized entity.
func TestRoundTrip(t *testing.T) {
	due := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	birth := time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC)

	entities := []types.Entity{
		&types.Pet{
			Base: base("p1"), UserID: "u1", Name: "Rex", Type: "dog", Breed: "Beagle",
			BirthDate: &birth, Weight: 12.5, Gender: "male", Allergies: []string{"chicken", "say \"no\""},
			Vet: &types.Contact{Name: "Dr. Who", Phone: "555", Clinic: "Tardis"}, IsActive: true,
		},
		&types.Task{
			Base: base("t1"), UserID: "u1", PetID: "p1", Title: "Walk", Category: "walk",
			Priority: "high", DueDate: due,
			Schedule: &types.Schedule{Frequency: "weekly", Interval: 1, DaysOfWeek: []int{1, 5}, TimeOfDay: "08:00"},
		},
		&types.Task{
			Base: base("t2"), UserID: "u1", PetID: "p1", Title: "Bath", Category: "grooming",
			Priority: "low", DueDate: due, Completed: true, CompletedAt: &end,
		},
		&types.Meal{
			Base: base("m1"), UserID: "u1", PetID: "p1", Name: "Kibble", FoodType: "dry",
			Amount: 150, Unit: "g", MealTime: due, Calories: 320, Preference: "favorite",
		},
		&types.Medication{
			Base: base("md1"), UserID: "u1", PetID: "p1", Name: "Apoquel", Dosage: "16mg",
			Frequency: "daily", StartDate: due, EndDate: &end,
			Schedule:   &types.Schedule{Frequency: "daily", Interval: 1, DaysOfWeek: []int{}, TimeOfDay: "09:00"},
			Prescriber: &types.Contact{Name: "Dr. Vet", Clinic: "Paws"}, Active: true,
			SideEffects: []string{"drowsiness"},
		},
		&types.HealthRecord{
			Base: base("h1"), UserID: "u1", PetID: "p1", RecordType: "vaccination", Title: "Rabies",
			Date: due, NextDueDate: &end, Veterinarian: &types.Contact{Name: "Dr. Who"},
			Weight: 12.4, Tags: []string{"annual"}, Attachments: []string{"https://x/1.pdf"},
		},
		&types.ActivitySession{
			Base: base("a1"), UserID: "u1", PetID: "p1", ActivityType: "walk", StartTime: due,
			EndTime: &end, DurationMinutes: 45, DistanceKm: 3.2, Calories: 150, Mood: "happy",
			Tags: []string{"park"},
		},
		&types.User{
			Base: base("u1"), Email: "ann@example.com", Name: "Ann", Timezone: "Europe/Paris",
			Preferences: &types.Preferences{Units: "imperial", Notifications: true, Theme: "dark"},
		},
	}

	for _, want := range entities {
		t.Run(string(want.Kind())+"/"+want.GetID(), func(t *testing.T) {
			want.Normalize()
			row, err := ToRemote(want)
			require.NoError(t, err)
			got, err := FromRemote(want.Kind(), row)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
