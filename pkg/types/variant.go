package types

import "fmt"

// New returns an empty entity of kind k.
func New(k Kind) (Entity, error) {
	switch k {
	case KindPet:
		return &Pet{}, nil
	case KindTask:
		return &Task{}, nil
	case KindMeal:
		return &Meal{}, nil
	case KindMedication:
		return &Medication{}, nil
	case KindHealthRecord:
		return &HealthRecord{}, nil
	case KindActivity:
		return &ActivitySession{}, nil
	case KindUser:
		return &User{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// Patch is a partial update expressed with local field names.
type Patch map[string]any
