package types

import (
	"strings"
	"time"
)

// Pet types.
const (
	PetTypeDog     = "dog"
	PetTypeCat     = "cat"
	PetTypeBird    = "bird"
	PetTypeRabbit  = "rabbit"
	PetTypeFish    = "fish"
	PetTypeReptile = "reptile"
	PetTypeOther   = "other"
)

var validPetTypes = setOf(PetTypeDog, PetTypeCat, PetTypeBird, PetTypeRabbit, PetTypeFish, PetTypeReptile, PetTypeOther)

var validGenders = setOf("", "male", "female", "unknown")

// Pet is a pet profile owned by a user.
type Pet struct {
	Base
	UserID      string     `json:"userId"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Breed       string     `json:"breed"`
	BirthDate   *time.Time `json:"birthDate,omitempty"`
	Weight      float64    `json:"weight"`
	Gender      string     `json:"gender"`
	Color       string     `json:"color"`
	MicrochipID string     `json:"microchipId"`
	PhotoURL    string     `json:"photoUrl"`
	Allergies   []string   `json:"allergies"`
	Vet         *Contact   `json:"vet"`
	IsActive    bool       `json:"isActive"`

	// AgeLabel is computed for display and never leaves the device.
	AgeLabel string `json:"ageLabel,omitempty"`
}

func (p *Pet) Kind() Kind    { return KindPet }
func (p *Pet) Owner() string { return p.UserID }

func (p *Pet) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	p.Breed = strings.TrimSpace(p.Breed)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Allergies = trimTags(p.Allergies)
	if p.Vet == nil {
		p.Vet = &Contact{}
	}
	p.Vet.normalize()
}

func (p *Pet) Validate() error {
	if err := required(KindPet, "name", p.Name); err != nil {
		return err
	}
	if err := oneOf(KindPet, "type", p.Type, validPetTypes); err != nil {
		return err
	}
	if err := oneOf(KindPet, "gender", p.Gender, validGenders); err != nil {
		return err
	}
	if p.Weight < 0 {
		return invalid(KindPet, "weight", "must not be negative")
	}
	if p.BirthDate != nil && p.BirthDate.After(p.asOf().Add(24*time.Hour)) {
		return invalid(KindPet, "birthDate", "must not be in the future")
	}
	return nil
}

// asOf is the reference time for date checks: the last Touch, or the wall
// clock for an entity that was never touched.
func (p *Pet) asOf() time.Time {
	if p.UpdatedAt.IsZero() {
		return time.Now()
	}
	return p.UpdatedAt
}
