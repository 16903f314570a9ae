package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

//go:embed seed.yaml
var defaultSeed []byte

// Seeder supplies the records written on first run and after a reset.
type Seeder interface {
	Seed(ctx context.Context) ([]types.Entity, error)
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(ctx context.Context) ([]types.Entity, error)

func (f SeederFunc) Seed(ctx context.Context) ([]types.Entity, error) { return f(ctx) }

// YAMLSeeder decodes records from a YAML document keyed by collection name.
type YAMLSeeder struct {
	Data []byte
}

// NewYAMLSeeder returns a seeder over the built-in demo data.
func NewYAMLSeeder() *YAMLSeeder {
	return &YAMLSeeder{Data: defaultSeed}
}

func (s *YAMLSeeder) Seed(_ context.Context) ([]types.Entity, error) {
	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(s.Data, &doc); err != nil {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}

	var out []types.Entity
	for _, k := range types.StandardKinds {
		for i, rec := range doc[k.Collection()] {
			e, err := decodeSeed(k, rec)
			if err != nil {
				return nil, fmt.Errorf("seed %s[%d]: %w", k.Collection(), i, err)
			}
			out = append(out, e)
		}
	}
	for name := range doc {
		if _, err := types.ParseKind(name); err != nil {
			return nil, fmt.Errorf("seed data: %w", err)
		}
	}
	return out, nil
}

func decodeSeed(k types.Kind, rec map[string]any) (types.Entity, error) {
	e, err := types.New(k)
	if err != nil {
		return nil, err
	}
	types.CoerceFields(e, rec)
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

// applySeed writes entities into the local record sets, skipping ids that
// are already present. Seeds never reach the remote store.
func (db *Database) applySeed(ctx context.Context) (int, error) {
	if db.seeder == nil {
		return 0, nil
	}
	entities, err := db.seeder.Seed(ctx)
	if err != nil {
		return 0, err
	}

	grouped := make(map[string][]types.Entity)
	var order []string
	for _, e := range entities {
		key := e.Kind().StorageKey()
		if key == "" {
			return 0, fmt.Errorf("%w: %q", types.ErrUnknownKind, string(e.Kind()))
		}
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], e)
	}

	existing, err := db.store.MultiGet(ctx, order)
	if err != nil {
		return 0, err
	}

	now := db.now()
	items := make(map[string]any, len(order))
	written := 0
	for _, key := range order {
		var records []json.RawMessage
		seen := make(map[string]bool)
		if raw, ok := existing[key]; ok {
			if err := json.Unmarshal(raw, &records); err != nil {
				return 0, fmt.Errorf("%w: decode %q: %w", types.ErrStorage, key, err)
			}
			for _, r := range records {
				var head struct {
					ID string `json:"id"`
				}
				if json.Unmarshal(r, &head) == nil {
					seen[head.ID] = true
				}
			}
		}

		added := false
		for _, e := range grouped[key] {
			if e.GetID() == "" {
				e.SetID(db.newID())
			}
			if seen[e.GetID()] {
				continue
			}
			e.Normalize()
			e.Touch(now)
			if err := e.Validate(); err != nil {
				var verr *types.ValidationError
				if errors.As(err, &verr) {
					db.log.Warn("skipping invalid seed record", "kind", e.Kind(), "id", e.GetID(), "field", verr.Field)
					continue
				}
				return 0, err
			}
			raw, err := json.Marshal(e)
			if err != nil {
				return 0, err
			}
			records = append(records, raw)
			seen[e.GetID()] = true
			added = true
			written++
		}
		if added {
			items[key] = records
		}
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := db.store.MultiSet(ctx, items); err != nil {
		return 0, err
	}
	return written, nil
}
