package types

import (
	"strings"
	"time"
)

// Meal preferences.
const (
	PreferenceFavorite = "favorite"
	PreferenceNeutral  = "neutral"
	PreferenceDisliked = "disliked"
)

var validPreferences = setOf(PreferenceFavorite, PreferenceNeutral, PreferenceDisliked)

var validMealUnits = setOf("g", "kg", "oz", "lb", "cup", "can", "piece", "ml")

// Meal is a logged or planned meal for a pet.
type Meal struct {
	Base
	UserID     string    `json:"userId"`
	PetID      string    `json:"petId"`
	Name       string    `json:"name"`
	FoodType   string    `json:"foodType"`
	Amount     float64   `json:"amount"`
	Unit       string    `json:"unit"`
	MealTime   time.Time `json:"mealTime"`
	Calories   int       `json:"calories"`
	Preference string    `json:"preference"`
	Notes      string    `json:"notes"`
}

func (m *Meal) Kind() Kind    { return KindMeal }
func (m *Meal) Owner() string { return m.UserID }

func (m *Meal) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.FoodType = strings.TrimSpace(m.FoodType)
	m.Unit = strings.TrimSpace(m.Unit)
	if m.Unit == "" {
		m.Unit = "g"
	}
	m.Preference = strings.TrimSpace(m.Preference)
	if m.Preference == "" {
		m.Preference = PreferenceNeutral
	}
	m.Notes = strings.TrimSpace(m.Notes)
}

func (m *Meal) Validate() error {
	if err := required(KindMeal, "name", m.Name); err != nil {
		return err
	}
	if err := required(KindMeal, "petId", m.PetID); err != nil {
		return err
	}
	if m.Amount < 0 {
		return invalid(KindMeal, "amount", "must not be negative")
	}
	if m.Calories < 0 {
		return invalid(KindMeal, "calories", "must not be negative")
	}
	if err := oneOf(KindMeal, "unit", m.Unit, validMealUnits); err != nil {
		return err
	}
	return oneOf(KindMeal, "preference", m.Preference, validPreferences)
}
