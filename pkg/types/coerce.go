package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// timeLayouts are tried in order when parsing a date or timestamp string.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the date and timestamp forms produced by the local
// store, remote drivers and user input. Values without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// FormatTime renders t in the canonical timestamp form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseBool accepts native booleans and the "true"/"1"/"yes" string forms.
func ParseBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "t", "y":
			return true, true
		case "false", "0", "no", "f", "n", "":
			return false, true
		}
	case float64:
		return b != 0, true
	case int64:
		return b != 0, true
	case int:
		return b != 0, true
	case json.Number:
		f, err := b.Float64()
		return f != 0, err == nil
	}
	return false, false
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	fieldTypeMemo sync.Map // reflect.Type -> map[string]reflect.Type
)

// jsonFields maps the JSON names of a struct's fields (embedded structs
// flattened) to their types.
func jsonFields(t reflect.Type) map[string]reflect.Type {
	if cached, ok := fieldTypeMemo.Load(t); ok {
		return cached.(map[string]reflect.Type)
	}
	fields := make(map[string]reflect.Type)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			for name, ft := range jsonFields(f.Type) {
				fields[name] = ft
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		fields[name] = f.Type
	}
	fieldTypeMemo.Store(t, fields)
	return fields
}

// CoerceFields rewrites the values of m in place so that they decode into
// target's struct fields: timestamp strings and time values become
// canonical timestamp strings, "true"/"1" become booleans, numeric strings
// become numbers. Keys that target does not declare are left untouched.
func CoerceFields(target any, m map[string]any) {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return
	}
	coerceMap(t, m)
}

func coerceMap(t reflect.Type, m map[string]any) {
	fields := jsonFields(t)
	for key, v := range m {
		ft, ok := fields[key]
		if !ok {
			continue
		}
		m[key] = coerceValue(ft, v)
	}
}

func coerceValue(ft reflect.Type, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if ft.Kind() == reflect.Pointer {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" && ft.Elem() == timeType {
			return nil
		}
		return coerceValue(ft.Elem(), v)
	}
	switch {
	case ft == timeType:
		return coerceTime(v)
	case ft.Kind() == reflect.Bool:
		if b, ok := ParseBool(v); ok {
			return b
		}
	case isInt(ft.Kind()):
		if n, ok := toFloat(v); ok {
			return int64(math.Trunc(n))
		}
	case ft.Kind() == reflect.Float32 || ft.Kind() == reflect.Float64:
		if n, ok := toFloat(v); ok {
			return n
		}
	case ft.Kind() == reflect.String:
		switch n := v.(type) {
		case json.Number:
			return n.String()
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(n, 10)
		}
	case ft.Kind() == reflect.Struct:
		if sub, ok := v.(map[string]any); ok {
			coerceMap(ft, sub)
			return sub
		}
	case ft.Kind() == reflect.Slice:
		if items, ok := v.([]any); ok {
			for i := range items {
				items[i] = coerceValue(ft.Elem(), items[i])
			}
			return items
		}
	}
	return v
}

func coerceTime(v any) any {
	switch tv := v.(type) {
	case time.Time:
		if tv.IsZero() {
			return nil
		}
		return FormatTime(tv)
	case string:
		if strings.TrimSpace(tv) == "" {
			return nil
		}
		if parsed, err := ParseTime(tv); err == nil {
			return FormatTime(parsed)
		}
	case float64:
		return FormatTime(time.UnixMilli(int64(tv)))
	case int64:
		return FormatTime(time.UnixMilli(tv))
	case json.Number:
		if ms, err := tv.Int64(); err == nil {
			return FormatTime(time.UnixMilli(ms))
		}
	}
	return v
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
