package types

import (
	"strings"
	"time"
)

// Medication is a prescribed medication course for a pet.
type Medication struct {
	Base
	UserID         string     `json:"userId"`
	PetID          string     `json:"petId"`
	Name           string     `json:"name"`
	Dosage         string     `json:"dosage"`
	Frequency      string     `json:"frequency"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Schedule       *Schedule  `json:"schedule,omitempty"`
	Prescriber     *Contact   `json:"prescriber"`
	Active         bool       `json:"active"`
	RefillReminder bool       `json:"refillReminder"`
	SideEffects    []string   `json:"sideEffects"`

	// NextDoseLabel is computed for display and never leaves the device.
	NextDoseLabel string `json:"nextDoseLabel,omitempty"`
}

func (m *Medication) Kind() Kind    { return KindMedication }
func (m *Medication) Owner() string { return m.UserID }

func (m *Medication) Normalize() {
	m.Name = strings.TrimSpace(m.Name)
	m.Dosage = strings.TrimSpace(m.Dosage)
	m.Frequency = strings.TrimSpace(m.Frequency)
	if m.Schedule != nil {
		m.Schedule.normalize()
	}
	if m.Prescriber == nil {
		m.Prescriber = &Contact{}
	}
	m.Prescriber.normalize()
	m.SideEffects = trimTags(m.SideEffects)
}

func (m *Medication) Validate() error {
	if err := required(KindMedication, "name", m.Name); err != nil {
		return err
	}
	if err := required(KindMedication, "petId", m.PetID); err != nil {
		return err
	}
	if err := required(KindMedication, "dosage", m.Dosage); err != nil {
		return err
	}
	if m.StartDate.IsZero() {
		return invalid(KindMedication, "startDate", "must be set")
	}
	if m.EndDate != nil && m.EndDate.Before(m.StartDate) {
		return invalid(KindMedication, "endDate", "must not precede startDate")
	}
	return m.Schedule.validate(KindMedication, "schedule")
}

// ActiveAt reports whether the course is active and covers t.
func (m *Medication) ActiveAt(t time.Time) bool {
	if !m.Active || t.Before(m.StartDate) {
		return false
	}
	return m.EndDate == nil || !t.After(*m.EndDate)
}
