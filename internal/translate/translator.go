// Package translate converts entities between the local convention
// (camelCase keys, nested sub-objects) and the remote relational
// convention (snake_case columns, flattened contacts, JSON columns and
// array literals). Both directions are pure.
package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

// shape lists the structural differences of one kind between the two
// conventions. Local names are camelCase, remote names snake_case.
type shape struct {
	// contacts maps a local Contact field to the prefix of its flattened
	// remote columns (<prefix>_name, <prefix>_phone, <prefix>_clinic).
	contacts map[string]string
	// objects maps a local sub-object to the JSON column holding it.
	objects map[string]string
	// tags are string lists stored as array literal text.
	tags []string
	// lists are string lists stored as JSON arrays.
	lists []string
	// uiOnly fields exist locally for display and are never sent.
	uiOnly []string
	// preferred marks the meal favorite flag.
	preferred bool
}

func shapeFor(k types.Kind) (shape, error) {
	switch k {
	case types.KindPet:
		return shape{
			contacts: map[string]string{"vet": "vet"},
			tags:     []string{"allergies"},
			uiOnly:   []string{"ageLabel"},
		}, nil
	case types.KindTask:
		return shape{
			objects: map[string]string{"schedule": "repeat_rule"},
			uiOnly:  []string{"isOverdue"},
		}, nil
	case types.KindMeal:
		return shape{preferred: true}, nil
	case types.KindMedication:
		return shape{
			contacts: map[string]string{"prescriber": "prescriber"},
			objects:  map[string]string{"schedule": "dose_schedule"},
			tags:     []string{"sideEffects"},
			uiOnly:   []string{"nextDoseLabel"},
		}, nil
	case types.KindHealthRecord:
		return shape{
			contacts: map[string]string{"veterinarian": "vet"},
			tags:     []string{"tags"},
			lists:    []string{"attachments"},
		}, nil
	case types.KindActivity:
		return shape{tags: []string{"tags"}}, nil
	case types.KindUser:
		return shape{
			objects: map[string]string{"preferences": "settings"},
			uiOnly:  []string{"displayName"},
		}, nil
	default:
		return shape{}, fmt.Errorf("%w: %q", types.ErrUnknownKind, string(k))
	}
}

// ToRemote converts a local entity into a remote row.
func ToRemote(e types.Entity) (types.Row, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil entity", types.ErrUnknownKind)
	}
	sh, err := shapeFor(e.Kind())
	if err != nil {
		return nil, err
	}

	m, err := toMap(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}

	for field, prefix := range sh.contacts {
		c, _ := m[field].(map[string]any)
		delete(m, field)
		for _, part := range []string{"name", "phone", "clinic"} {
			m[SnakeToCamel(prefix+"_"+part)] = stringOf(c[part])
		}
	}
	for field, column := range sh.objects {
		m[SnakeToCamel(column)] = m[field]
		delete(m, field)
	}
	for _, field := range sh.tags {
		m[field] = EncodeArrayLiteral(stringsOf(m[field]))
	}
	if sh.preferred {
		pref, _ := m["preference"].(string)
		m["isPreferred"] = strings.EqualFold(pref, types.PreferenceFavorite)
	}
	for _, field := range sh.uiOnly {
		delete(m, field)
	}

	renamed := renameKeys(m, CamelToSnake).(map[string]any)

	row := make(types.Row, len(renamed))
	for k, v := range renamed {
		nv, err := remoteValue(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", e.Kind(), k, err)
		}
		row[k] = nv
	}
	return row, nil
}

// FromRemote converts a remote row into an entity of kind k. Columns the
// entity does not declare are ignored.
func FromRemote(k types.Kind, row types.Row) (types.Entity, error) {
	sh, err := shapeFor(k)
	if err != nil {
		return nil, err
	}
	e, err := types.New(k)
	if err != nil {
		return nil, err
	}

	m := make(map[string]any, len(row))
	for col, v := range row {
		m[SnakeToCamel(col)] = v
	}

	for field, prefix := range sh.contacts {
		c := make(map[string]any, 3)
		for _, part := range []string{"name", "phone", "clinic"} {
			key := SnakeToCamel(prefix + "_" + part)
			c[part] = stringOf(m[key])
			delete(m, key)
		}
		m[field] = c
	}
	for field, column := range sh.objects {
		key := SnakeToCamel(column)
		v, err := decodeJSON(m[key])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", k, column, err)
		}
		delete(m, key)
		if v == nil {
			delete(m, field)
			continue
		}
		m[field] = renameKeys(v, SnakeToCamel)
	}
	for _, field := range sh.tags {
		tags, err := decodeTags(m[field])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", k, CamelToSnake(field), err)
		}
		m[field] = tags
	}
	for _, field := range sh.lists {
		v, err := decodeJSON(m[field])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", k, CamelToSnake(field), err)
		}
		if v == nil {
			v = []any{}
		}
		m[field] = v
	}
	if sh.preferred {
		if p := stringOf(m["preference"]); p == "" {
			if fav, _ := types.ParseBool(m["isPreferred"]); fav {
				m["preference"] = types.PreferenceFavorite
			} else {
				m["preference"] = types.PreferenceNeutral
			}
		}
		delete(m, "isPreferred")
	}
	for _, field := range sh.uiOnly {
		delete(m, field)
	}

	types.CoerceFields(e, m)
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	e.Normalize()
	return e, nil
}

// CarryLocalOnly copies the display-only fields of src onto dst. Both
// entities must be the same kind. Remote round trips drop those fields.
func CarryLocalOnly(dst, src types.Entity) error {
	if dst == nil || src == nil || dst.Kind() != src.Kind() {
		return fmt.Errorf("%w: mismatched entities", types.ErrUnknownKind)
	}
	sh, err := shapeFor(src.Kind())
	if err != nil {
		return err
	}
	if len(sh.uiOnly) == 0 {
		return nil
	}
	from, err := toMap(src)
	if err != nil {
		return err
	}
	patch := make(map[string]any, len(sh.uiOnly))
	for _, field := range sh.uiOnly {
		if v, ok := from[field]; ok {
			patch[field] = v
		}
	}
	if len(patch) == 0 {
		return nil
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// toMap encodes v as a JSON object, keeping integers exact.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return exactNumbers(m).(map[string]any), nil
}

func exactNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, val := range t {
			t[k] = exactNumbers(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = exactNumbers(val)
		}
		return t
	}
	return v
}

// remoteValue maps zero timestamps to NULL and nested values to JSON
// column values.
func remoteValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(raw), nil
	case string:
		if isZeroTime(t) {
			return nil, nil
		}
	}
	return v, nil
}

func isZeroTime(s string) bool {
	if !strings.HasPrefix(s, "0001-01-01") {
		return false
	}
	ts, err := types.ParseTime(s)
	return err == nil && ts.IsZero()
}

// decodeJSON accepts a JSON column value in any of the forms drivers
// return it.
func decodeJSON(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any, []any:
		return t, nil
	case datatypes.JSON:
		raw = t
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return nil, fmt.Errorf("unsupported json column type %T", v)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeTags(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return t, nil
	case []any:
		return stringsOf(t), nil
	case []byte:
		return DecodeArrayLiteral(string(t))
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}, nil
		}
		// Some drivers hand array columns back as JSON text.
		if strings.HasPrefix(strings.TrimSpace(t), "[") {
			var out []string
			if err := json.Unmarshal([]byte(t), &out); err != nil {
				return nil, err
			}
			return out, nil
		}
		return DecodeArrayLiteral(t)
	default:
		return nil, fmt.Errorf("unsupported array column type %T", v)
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func stringsOf(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringOf(item))
	}
	return out
}
