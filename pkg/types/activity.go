package types

import (
	"strings"
	"time"
)

// Activity types.
const (
	ActivityWalk     = "walk"
	ActivityRun      = "run"
	ActivityPlay     = "play"
	ActivityTraining = "training"
	ActivitySwim     = "swim"
	ActivityOther    = "other"
)

var validActivityTypes = setOf(ActivityWalk, ActivityRun, ActivityPlay, ActivityTraining, ActivitySwim, ActivityOther)

// ActivitySession is one exercise session for a pet.
type ActivitySession struct {
	Base
	UserID          string     `json:"userId"`
	PetID           string     `json:"petId"`
	ActivityType    string     `json:"activityType"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	DistanceKm      float64    `json:"distanceKm"`
	Calories        int        `json:"calories"`
	Mood            string     `json:"mood"`
	Notes           string     `json:"notes"`
	Tags            []string   `json:"tags"`
}

func (a *ActivitySession) Kind() Kind    { return KindActivity }
func (a *ActivitySession) Owner() string { return a.UserID }

func (a *ActivitySession) Normalize() {
	a.ActivityType = strings.TrimSpace(a.ActivityType)
	if a.ActivityType == "" {
		a.ActivityType = ActivityOther
	}
	a.Mood = strings.TrimSpace(a.Mood)
	a.Notes = strings.TrimSpace(a.Notes)
	a.Tags = trimTags(a.Tags)
	if a.DurationMinutes == 0 && a.EndTime != nil && a.EndTime.After(a.StartTime) {
		a.DurationMinutes = int(a.EndTime.Sub(a.StartTime) / time.Minute)
	}
}

func (a *ActivitySession) Validate() error {
	if err := required(KindActivity, "petId", a.PetID); err != nil {
		return err
	}
	if err := oneOf(KindActivity, "activityType", a.ActivityType, validActivityTypes); err != nil {
		return err
	}
	if a.StartTime.IsZero() {
		return invalid(KindActivity, "startTime", "must be set")
	}
	if a.EndTime != nil && a.EndTime.Before(a.StartTime) {
		return invalid(KindActivity, "endTime", "must not precede startTime")
	}
	if a.DurationMinutes < 0 || a.DistanceKm < 0 || a.Calories < 0 {
		return invalid(KindActivity, "durationMinutes", "metrics must not be negative")
	}
	return nil
}
