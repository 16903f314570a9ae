// Package migrate evolves the persisted local data through an ordered list
// of versioned migrations. The applied version is stored under
// types.SchemaVersionKey and only ever moves forward.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// BaseVersion is the version of a store that has never been migrated.
const BaseVersion = 1

var (
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrInvalidVersion   = errors.New("migration version must be greater than the base version")
	ErrNoApply          = errors.New("migration has no apply function")
)

// Migration transforms persisted local data. Apply must tolerate data that
// is already in the target shape.
type Migration struct {
	Version     int
	Description string
	Apply       func(ctx context.Context, store types.LocalStore) error
}

// Report describes one Run.
type Report struct {
	From    int
	To      int
	Applied []int
	// Err is the failure that stopped the run, a *types.MigrationError when
	// a migration failed.
	Err error
}

// Runner applies pending migrations to a store.
type Runner struct {
	store      types.LocalStore
	migrations []Migration
	log        *logger.Logger
}

// New validates migrations and returns a Runner that applies them in
// ascending version order.
func New(store types.LocalStore, migrations []Migration, log *logger.Logger) (*Runner, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, m := range sorted {
		if m.Version <= BaseVersion {
			return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, m.Version)
		}
		if m.Apply == nil {
			return nil, fmt.Errorf("%w: %d", ErrNoApply, m.Version)
		}
		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
		}
	}
	return &Runner{
		store:      store,
		migrations: sorted,
		log:        logger.OrNop(log).With("component", "migrate"),
	}, nil
}

// Latest returns the highest known version.
func (r *Runner) Latest() int {
	if len(r.migrations) == 0 {
		return BaseVersion
	}
	return r.migrations[len(r.migrations)-1].Version
}

// Current returns the persisted version, BaseVersion when none is stored.
func (r *Runner) Current(ctx context.Context) (int, error) {
	v := BaseVersion
	found, err := r.store.Get(ctx, types.SchemaVersionKey, &v)
	if err != nil {
		return BaseVersion, err
	}
	if !found || v < BaseVersion {
		return BaseVersion, nil
	}
	return v, nil
}

// Pending returns the migrations newer than the persisted version.
func (r *Runner) Pending(ctx context.Context) ([]Migration, error) {
	current, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	var out []Migration
	for _, m := range r.migrations {
		if m.Version > current {
			out = append(out, m)
		}
	}
	return out, nil
}

// Run applies every pending migration in order, persisting the version
// after each success. It stops at the first failure so the failed
// migration is retried on the next run. Failures are reported, never
// returned as errors.
func (r *Runner) Run(ctx context.Context) Report {
	current, err := r.Current(ctx)
	if err != nil {
		r.log.Error("reading schema version failed, skipping migrations", "error", err)
		return Report{From: current, To: current, Err: err}
	}

	rep := Report{From: current, To: current}
	for _, m := range r.migrations {
		if m.Version <= current {
			continue
		}
		if err := ctx.Err(); err != nil {
			rep.Err = err
			break
		}
		if err := m.Apply(ctx, r.store); err != nil {
			rep.Err = &types.MigrationError{Version: m.Version, Description: m.Description, Err: err}
			r.log.Error("migration failed", "version", m.Version, "description", m.Description, "error", err)
			break
		}
		if err := r.store.Set(ctx, types.SchemaVersionKey, m.Version); err != nil {
			rep.Err = &types.MigrationError{Version: m.Version, Description: m.Description, Err: err}
			r.log.Error("persisting schema version failed", "version", m.Version, "error", err)
			break
		}
		current = m.Version
		rep.To = current
		rep.Applied = append(rep.Applied, m.Version)
		r.log.Info("migration applied", "version", m.Version, "description", m.Description)
	}
	return rep
}
