package database

import (
	"context"
	"strings"
	"time"

	"github.com/mesh-intelligence/petcare/internal/migrate"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Migrations returns the schema history of the local record sets. Every
// step tolerates data already in its target shape.
func Migrations(now func() time.Time) []migrate.Migration {
	return []migrate.Migration{
		{
			Version:     2,
			Description: "stamp missing createdAt and updatedAt",
			Apply: func(ctx context.Context, store types.LocalStore) error {
				stamp := types.FormatTime(now())
				for _, key := range types.CollectionKeys() {
					err := rewriteRecords(ctx, store, key, func(rec map[string]any) bool {
						return stampTimestamps(rec, stamp)
					})
					if err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     3,
			Description: "nest flat pet vet fields",
			Apply: func(ctx context.Context, store types.LocalStore) error {
				return rewriteRecords(ctx, store, types.KindPet.StorageKey(), nestVet)
			},
		},
		{
			Version:     4,
			Description: "lowercase task categories and default priority",
			Apply: func(ctx context.Context, store types.LocalStore) error {
				return rewriteRecords(ctx, store, types.KindTask.StorageKey(), normalizeTaskFields)
			},
		},
		{
			Version:     5,
			Description: "split medication side effects",
			Apply: func(ctx context.Context, store types.LocalStore) error {
				return rewriteRecords(ctx, store, types.KindMedication.StorageKey(), splitSideEffects)
			},
		},
	}
}

// rewriteRecords loads the record set under key, applies fn to each record
// and saves the set when any record changed. A missing key is a no-op.
func rewriteRecords(ctx context.Context, store types.LocalStore, key string, fn func(rec map[string]any) bool) error {
	var records []map[string]any
	found, err := store.Get(ctx, key, &records)
	if err != nil || !found {
		return err
	}
	changed := false
	for _, rec := range records {
		if rec != nil && fn(rec) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return store.Set(ctx, key, records)
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func stampTimestamps(rec map[string]any, stamp string) bool {
	changed := false
	if isBlank(rec["createdAt"]) {
		if !isBlank(rec["updatedAt"]) {
			rec["createdAt"] = rec["updatedAt"]
		} else {
			rec["createdAt"] = stamp
		}
		changed = true
	}
	if isBlank(rec["updatedAt"]) {
		rec["updatedAt"] = rec["createdAt"]
		changed = true
	}
	return changed
}

var flatVetFields = map[string]string{
	"vetName":   "name",
	"vetPhone":  "phone",
	"vetClinic": "clinic",
}

func nestVet(rec map[string]any) bool {
	changed := false
	for flat, field := range flatVetFields {
		v, ok := rec[flat]
		if !ok {
			continue
		}
		delete(rec, flat)
		changed = true
		if isBlank(v) {
			continue
		}
		vet, _ := rec["vet"].(map[string]any)
		if vet == nil {
			vet = make(map[string]any)
			rec["vet"] = vet
		}
		if isBlank(vet[field]) {
			vet[field] = v
		}
	}
	return changed
}

func normalizeTaskFields(rec map[string]any) bool {
	changed := false
	if c, ok := rec["category"].(string); ok {
		if lc := strings.ToLower(strings.TrimSpace(c)); lc != c {
			rec["category"] = lc
			changed = true
		}
	}
	if isBlank(rec["priority"]) {
		rec["priority"] = types.PriorityMedium
		changed = true
	}
	return changed
}

func splitSideEffects(rec map[string]any) bool {
	s, ok := rec["sideEffects"].(string)
	if !ok {
		return false
	}
	effects := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			effects = append(effects, part)
		}
	}
	rec["sideEffects"] = effects
	return true
}
