package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Fields a patch can never change.
var immutableFields = map[string]bool{
	"id":        true,
	"createdAt": true,
}

func errUnexpectedVariant(k types.Kind, e types.Entity) error {
	return fmt.Errorf("%w: %s manager got %T", types.ErrUnknownKind, k, e)
}

// applyPatch shallow-merges patch over current. Both the current value and
// the result are normalized; the result is touched at now and validated.
func applyPatch[T any, PT interface {
	*T
	types.Entity
}](kind types.Kind, current T, patch types.Patch, now time.Time) (T, error) {
	var zero T
	PT(&current).Normalize()

	raw, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("%w: encoding %s: %v", types.ErrStorage, kind, err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return zero, fmt.Errorf("%w: encoding %s: %v", types.ErrStorage, kind, err)
	}
	for k, v := range patch {
		if immutableFields[k] {
			continue
		}
		m[k] = v
	}
	types.CoerceFields(PT(&zero), m)

	raw, err = json.Marshal(m)
	if err != nil {
		return zero, &types.ValidationError{Kind: kind, Field: "patch", Reason: err.Error()}
	}
	var next T
	if err := json.Unmarshal(raw, PT(&next)); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return zero, &types.ValidationError{Kind: kind, Field: ute.Field, Reason: "has the wrong type"}
		}
		return zero, &types.ValidationError{Kind: kind, Field: "patch", Reason: err.Error()}
	}
	PT(&next).Normalize()
	PT(&next).Touch(now)
	if err := PT(&next).Validate(); err != nil {
		return zero, err
	}
	return next, nil
}
