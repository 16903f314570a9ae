package types

import (
	"strings"
	"time"
)

// Entity is implemented by a pointer to every entity variant.
type Entity interface {
	Kind() Kind
	GetID() string
	SetID(id string)
	// Owner returns the value of the kind's owner field.
	Owner() string
	// Touch stamps CreatedAt when unset and always sets UpdatedAt.
	Touch(now time.Time)
	Updated() time.Time
	// Normalize trims fields and fills placeholder sub-objects and
	// defaults. It never changes the case of caller values and is
	// idempotent.
	Normalize()
	Validate() error
}

// Base carries the fields every entity shares.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b Base) GetID() string { return b.ID }

func (b *Base) SetID(id string) { b.ID = id }

func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (b Base) Updated() time.Time { return b.UpdatedAt }

// Contact is an embedded provider or contact (vet, prescriber).
type Contact struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Clinic string `json:"clinic"`
}

// IsZero reports whether the contact carries no data.
func (c *Contact) IsZero() bool {
	return c == nil || (c.Name == "" && c.Phone == "" && c.Clinic == "")
}

func (c *Contact) normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Clinic = strings.TrimSpace(c.Clinic)
}

// Schedule frequencies.
const (
	FrequencyOnce    = "once"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

var validFrequencies = map[string]bool{
	FrequencyOnce:    true,
	FrequencyDaily:   true,
	FrequencyWeekly:  true,
	FrequencyMonthly: true,
}

// Schedule describes a recurrence (tasks, medication doses).
type Schedule struct {
	Frequency  string `json:"frequency"`
	Interval   int    `json:"interval"`
	DaysOfWeek []int  `json:"daysOfWeek"`
	TimeOfDay  string `json:"timeOfDay"`
}

func (s *Schedule) normalize() {
	s.Frequency = strings.TrimSpace(s.Frequency)
	if s.Frequency == "" {
		s.Frequency = FrequencyOnce
	}
	if s.Interval <= 0 {
		s.Interval = 1
	}
	if s.DaysOfWeek == nil {
		s.DaysOfWeek = []int{}
	}
	s.TimeOfDay = strings.TrimSpace(s.TimeOfDay)
}

func (s *Schedule) validate(k Kind, field string) error {
	if s == nil {
		return nil
	}
	if !validFrequencies[lower(s.Frequency)] {
		return invalid(k, field+".frequency", "must be once, daily, weekly or monthly")
	}
	for _, d := range s.DaysOfWeek {
		if d < 0 || d > 6 {
			return invalid(k, field+".daysOfWeek", "must be between 0 and 6")
		}
	}
	if s.TimeOfDay != "" {
		if _, err := time.Parse("15:04", s.TimeOfDay); err != nil {
			return invalid(k, field+".timeOfDay", "must be HH:MM")
		}
	}
	return nil
}

// trimTags trims every tag in place of a copy. A nil list becomes empty.
func trimTags(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = strings.TrimSpace(t)
	}
	return out
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func required(k Kind, field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid(k, field, "must not be empty")
	}
	return nil
}

func oneOf(k Kind, field, v string, allowed map[string]bool) error {
	if !allowed[lower(v)] {
		return invalid(k, field, "has unsupported value "+quote(v))
	}
	return nil
}

func quote(s string) string { return `"` + s + `"` }

func setOf(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}
