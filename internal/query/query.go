// Package query holds entity-specific read and derived operations built on
// the generic entity manager.
package query

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/petcare/internal/entity"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

type (
	Pets          = entity.Manager[types.Pet, *types.Pet]
	Tasks         = entity.Manager[types.Task, *types.Task]
	Meals         = entity.Manager[types.Meal, *types.Meal]
	Medications   = entity.Manager[types.Medication, *types.Medication]
	HealthRecords = entity.Manager[types.HealthRecord, *types.HealthRecord]
	Activities    = entity.Manager[types.ActivitySession, *types.ActivitySession]
	Users         = entity.Manager[types.User, *types.User]
)

// PetsForUser returns the active pets of userID ordered by name.
func PetsForUser(ctx context.Context, pets *Pets, userID string) []types.Pet {
	var out []types.Pet
	for _, p := range pets.GetAll(ctx, userID) {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func sortByDue(ts []types.Task) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].DueDate.Before(ts[j].DueDate) })
}

// TasksForPet returns every task of petID ordered by due date.
func TasksForPet(ctx context.Context, tasks *Tasks, petID string) []types.Task {
	out := tasks.Find(ctx, func(t types.Task) bool { return t.PetID == petID })
	sortByDue(out)
	return out
}

// PendingTasks returns the incomplete tasks of userID ordered by due date.
func PendingTasks(ctx context.Context, tasks *Tasks, userID string) []types.Task {
	out := tasks.Find(ctx, func(t types.Task) bool {
		return !t.Completed && (userID == "" || t.UserID == userID)
	})
	sortByDue(out)
	return out
}

// OverdueTasks returns the pending tasks of userID due before now, with
// IsOverdue set.
func OverdueTasks(ctx context.Context, tasks *Tasks, userID string, now time.Time) []types.Task {
	var out []types.Task
	for _, t := range PendingTasks(ctx, tasks, userID) {
		if t.Overdue(now) {
			t.IsOverdue = true
			out = append(out, t)
		}
	}
	return out
}

// CompleteTask marks id completed at now. For a recurring task the next
// occurrence is created and returned as well.
func CompleteTask(ctx context.Context, tasks *Tasks, id string, now time.Time) (done types.Task, next *types.Task, found bool, err error) {
	done, found, err = tasks.Update(ctx, id, types.Patch{
		"completed":   true,
		"completedAt": types.FormatTime(now),
	})
	if err != nil || !found {
		return done, nil, found, err
	}
	if done.Schedule == nil || strings.EqualFold(done.Schedule.Frequency, types.FrequencyOnce) {
		return done, nil, true, nil
	}

	following := done
	following.ID = ""
	following.CreatedAt = time.Time{}
	following.Completed = false
	following.CompletedAt = nil
	following.DueDate = NextDue(*done.Schedule, done.DueDate)
	schedule := *done.Schedule
	following.Schedule = &schedule

	created, err := tasks.Create(ctx, following)
	if err != nil {
		return done, nil, true, err
	}
	return done, &created, true, nil
}

// NextDue returns the occurrence after from for a recurring schedule.
func NextDue(s types.Schedule, from time.Time) time.Time {
	n := s.Interval
	if n <= 0 {
		n = 1
	}
	switch strings.ToLower(strings.TrimSpace(s.Frequency)) {
	case types.FrequencyDaily:
		return from.AddDate(0, 0, n)
	case types.FrequencyWeekly:
		if len(s.DaysOfWeek) == 0 {
			return from.AddDate(0, 0, 7*n)
		}
		days := make(map[int]bool, len(s.DaysOfWeek))
		for _, d := range s.DaysOfWeek {
			days[d] = true
		}
		for i := 1; i <= 7; i++ {
			next := from.AddDate(0, 0, i)
			if !days[int(next.Weekday())] {
				continue
			}
			// Crossing into a new week skips interval-1 weeks.
			if next.Weekday() <= from.Weekday() && n > 1 {
				next = next.AddDate(0, 0, 7*(n-1))
			}
			return next
		}
		return from.AddDate(0, 0, 7*n)
	case types.FrequencyMonthly:
		return from.AddDate(0, n, 0)
	}
	return from
}

// MealsForPet returns the meals of petID, most recent first.
func MealsForPet(ctx context.Context, meals *Meals, petID string) []types.Meal {
	out := meals.Find(ctx, func(m types.Meal) bool { return m.PetID == petID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].MealTime.After(out[j].MealTime) })
	return out
}

// FavoriteMeals returns the meals of petID marked favorite.
func FavoriteMeals(ctx context.Context, meals *Meals, petID string) []types.Meal {
	var out []types.Meal
	for _, m := range MealsForPet(ctx, meals, petID) {
		if strings.EqualFold(m.Preference, types.PreferenceFavorite) {
			out = append(out, m)
		}
	}
	return out
}

// ActiveMedications returns the medications of petID active at t.
func ActiveMedications(ctx context.Context, meds *Medications, petID string, t time.Time) []types.Medication {
	out := meds.Find(ctx, func(m types.Medication) bool {
		return m.PetID == petID && m.ActiveAt(t)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RecordsDueBefore returns the health records of userID whose next due
// date falls before cutoff, soonest first.
func RecordsDueBefore(ctx context.Context, records *HealthRecords, userID string, cutoff time.Time) []types.HealthRecord {
	out := records.Find(ctx, func(h types.HealthRecord) bool {
		return (userID == "" || h.UserID == userID) && h.NextDueDate != nil && h.NextDueDate.Before(cutoff)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextDueDate.Before(*out[j].NextDueDate) })
	return out
}

// Totals aggregates activity sessions.
type Totals struct {
	Sessions   int     `json:"sessions"`
	Minutes    int     `json:"minutes"`
	DistanceKm float64 `json:"distanceKm"`
	Calories   int     `json:"calories"`
}

// ActivityTotals sums the sessions of petID that started at or after since.
func ActivityTotals(ctx context.Context, acts *Activities, petID string, since time.Time) Totals {
	var t Totals
	for _, a := range acts.Find(ctx, func(a types.ActivitySession) bool {
		return a.PetID == petID && !a.StartTime.Before(since)
	}) {
		t.Sessions++
		t.Minutes += a.DurationMinutes
		t.DistanceKm += a.DistanceKm
		t.Calories += a.Calories
	}
	return t
}

// UserByEmail finds a user by case-insensitive email.
func UserByEmail(ctx context.Context, users *Users, email string) (types.User, bool) {
	email = strings.TrimSpace(email)
	found := users.Find(ctx, func(u types.User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return types.User{}, false
	}
	return found[0], true
}
