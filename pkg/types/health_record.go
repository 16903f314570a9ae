package types

import (
	"strings"
	"time"
)

// Health record types.
const (
	RecordVaccination = "vaccination"
	RecordCheckup     = "checkup"
	RecordSurgery     = "surgery"
	RecordIllness     = "illness"
	RecordInjury      = "injury"
	RecordDental      = "dental"
	RecordOther       = "other"
)

var validRecordTypes = setOf(RecordVaccination, RecordCheckup, RecordSurgery, RecordIllness, RecordInjury, RecordDental, RecordOther)

// HealthRecord is a medical event in a pet's history.
type HealthRecord struct {
	Base
	UserID       string     `json:"userId"`
	PetID        string     `json:"petId"`
	RecordType   string     `json:"recordType"`
	Title        string     `json:"title"`
	Date         time.Time  `json:"date"`
	NextDueDate  *time.Time `json:"nextDueDate,omitempty"`
	Veterinarian *Contact   `json:"veterinarian"`
	Weight       float64    `json:"weight"`
	Notes        string     `json:"notes"`
	Tags         []string   `json:"tags"`
	Attachments  []string   `json:"attachments"`
}

func (h *HealthRecord) Kind() Kind    { return KindHealthRecord }
func (h *HealthRecord) Owner() string { return h.UserID }

func (h *HealthRecord) Normalize() {
	h.RecordType = strings.TrimSpace(h.RecordType)
	if h.RecordType == "" {
		h.RecordType = RecordOther
	}
	h.Title = strings.TrimSpace(h.Title)
	h.Notes = strings.TrimSpace(h.Notes)
	if h.Veterinarian == nil {
		h.Veterinarian = &Contact{}
	}
	h.Veterinarian.normalize()
	h.Tags = trimTags(h.Tags)
	if h.Attachments == nil {
		h.Attachments = []string{}
	}
}

func (h *HealthRecord) Validate() error {
	if err := required(KindHealthRecord, "title", h.Title); err != nil {
		return err
	}
	if err := required(KindHealthRecord, "petId", h.PetID); err != nil {
		return err
	}
	if err := oneOf(KindHealthRecord, "recordType", h.RecordType, validRecordTypes); err != nil {
		return err
	}
	if h.Date.IsZero() {
		return invalid(KindHealthRecord, "date", "must be set")
	}
	if h.NextDueDate != nil && h.NextDueDate.Before(h.Date) {
		return invalid(KindHealthRecord, "nextDueDate", "must not precede date")
	}
	if h.Weight < 0 {
		return invalid(KindHealthRecord, "weight", "must not be negative")
	}
	return nil
}
