// Package database is the single entry point to the pet-care data layer.
// A Database owns one entity manager per kind and coordinates the
// lifecycle operations that span all of them: migrations, remote
// capability probing, first-run seeding, bulk sync and reset.
//
// The entry point constructs the Database explicitly and owns it; there is
// no package-level instance.
package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/petcare/internal/capability"
	"github.com/mesh-intelligence/petcare/internal/entity"
	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/internal/merge"
	"github.com/mesh-intelligence/petcare/internal/migrate"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Database is the unified facade over the local store and the optional
// remote store.
type Database struct {
	Pets          *entity.Manager[types.Pet, *types.Pet]
	Tasks         *entity.Manager[types.Task, *types.Task]
	Meals         *entity.Manager[types.Meal, *types.Meal]
	Medications   *entity.Manager[types.Medication, *types.Medication]
	HealthRecords *entity.Manager[types.HealthRecord, *types.HealthRecord]
	Activities    *entity.Manager[types.ActivitySession, *types.ActivitySession]
	Users         *entity.Manager[types.User, *types.User]

	cfg         types.Config
	store       types.LocalStore
	remote      types.Remote
	prober      *capability.Prober
	migrations  *migrate.Runner
	seeder      Seeder
	collections []entity.Collection
	now         func() time.Time
	newID       func() string
	log         *logger.Logger
}

// InitReport summarizes one Initialize call.
type InitReport struct {
	Migration migrate.Report  `json:"migration"`
	Probed    map[string]bool `json:"probed"`
	Degraded  bool            `json:"degraded"`
	Seeded    int             `json:"seeded"`
}

type options struct {
	log        *logger.Logger
	seeder     Seeder
	migrations []migrate.Migration
	now        func() time.Time
	newID      func() string
}

// Option configures New.
type Option func(*options)

func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSeeder replaces the built-in demo data. A nil seeder disables
// seeding.
func WithSeeder(s Seeder) Option {
	return func(o *options) { o.seeder = s }
}

// WithMigrations replaces the built-in migration list.
func WithMigrations(ms []migrate.Migration) Option {
	return func(o *options) { o.migrations = ms }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// New builds a Database over store. remote may be nil, in which case every
// operation is local only.
func New(cfg types.Config, store types.LocalStore, remote types.Remote, opts ...Option) (*Database, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no local store", types.ErrStorage)
	}
	cfg = cfg.WithDefaults()

	o := options{seeder: NewYAMLSeeder()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	if o.newID == nil {
		o.newID = entity.NewUUID
	}
	if o.migrations == nil {
		o.migrations = Migrations(o.now)
	}
	log := logger.OrNop(o.log)

	policy, err := merge.ParsePolicy(cfg.Sync.ConflictPolicy)
	if err != nil {
		return nil, err
	}
	runner, err := migrate.New(store, o.migrations, log)
	if err != nil {
		return nil, err
	}

	db := &Database{
		cfg:        cfg,
		store:      store,
		remote:     remote,
		prober:     capability.New(remote, cfg.Sync.ProbeTimeout, log),
		migrations: runner,
		seeder:     o.seeder,
		now:        o.now,
		newID:      o.newID,
		log:        log.With("component", "database"),
	}

	ecfg := entity.Config{
		SyncEnabled: cfg.Sync.Enabled,
		Policy:      policy,
		Now:         o.now,
		NewID:       o.newID,
	}
	db.Users = entity.New[types.User](store, remote, db.prober, ecfg, log)
	db.Pets = entity.New[types.Pet](store, remote, db.prober, ecfg, log)
	db.Tasks = entity.New[types.Task](store, remote, db.prober, ecfg, log)
	db.Meals = entity.New[types.Meal](store, remote, db.prober, ecfg, log)
	db.Medications = entity.New[types.Medication](store, remote, db.prober, ecfg, log)
	db.HealthRecords = entity.New[types.HealthRecord](store, remote, db.prober, ecfg, log)
	db.Activities = entity.New[types.ActivitySession](store, remote, db.prober, ecfg, log)

	// Same order as types.StandardKinds.
	db.collections = []entity.Collection{
		db.Users, db.Pets, db.Tasks, db.Meals, db.Medications, db.HealthRecords, db.Activities,
	}
	return db, nil
}

// Initialize prepares the data layer for use: it migrates local data,
// probes every remote collection within the init timeout and seeds an
// uninitialized store. Migration and probe failures never fail
// Initialize; only local storage errors do.
func (db *Database) Initialize(ctx context.Context) (InitReport, error) {
	var rep InitReport

	rep.Migration = db.migrations.Run(ctx)

	if db.syncing() {
		rep.Degraded = db.probeAll(ctx)
		rep.Probed = db.prober.Snapshot()
	}

	initialized, err := db.initialized(ctx)
	if err != nil {
		return rep, err
	}
	if !initialized {
		n, err := db.applySeed(ctx)
		if err != nil {
			return rep, fmt.Errorf("seeding: %w", err)
		}
		rep.Seeded = n
		if err := db.store.Set(ctx, types.InitializedKey, true); err != nil {
			return rep, err
		}
	}

	db.log.Info("database initialized",
		"schema_version", rep.Migration.To,
		"degraded", rep.Degraded,
		"seeded", rep.Seeded)
	return rep, nil
}

func (db *Database) syncing() bool {
	return db.cfg.Sync.Enabled && db.remote != nil
}

func (db *Database) initialized(ctx context.Context) (bool, error) {
	var flag bool
	found, err := db.store.Get(ctx, types.InitializedKey, &flag)
	if err != nil {
		return false, err
	}
	return found && flag, nil
}

// probeAll checks every collection concurrently. It returns true when the
// init timeout expired before all probes finished; collections still
// unresolved then are recorded as missing.
func (db *Database) probeAll(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, db.cfg.Sync.InitTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range db.collections {
		g.Go(func() error {
			db.prober.Exists(gctx, c.Collection())
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	if ctx.Err() == nil {
		return false
	}
	for _, c := range db.collections {
		db.prober.Assume(c.Collection(), false)
	}
	db.log.Warn("remote probing timed out, continuing in degraded mode",
		"timeout", db.cfg.Sync.InitTimeout)
	return true
}

// SyncAllData pushes the local records of ownerID in every collection to
// the remote store. An empty ownerID pushes every record.
func (db *Database) SyncAllData(ctx context.Context, ownerID string) []entity.SyncResult {
	return db.fanOut(ctx, func(ctx context.Context, c entity.Collection) entity.SyncResult {
		return c.SyncOwnerToRemote(ctx, ownerID)
	})
}

// LoadAllData merges the remote records of ownerID in every collection
// into the local store.
func (db *Database) LoadAllData(ctx context.Context, ownerID string) []entity.SyncResult {
	return db.fanOut(ctx, func(ctx context.Context, c entity.Collection) entity.SyncResult {
		return c.SyncFromRemote(ctx, ownerID)
	})
}

func (db *Database) fanOut(ctx context.Context, fn func(context.Context, entity.Collection) entity.SyncResult) []entity.SyncResult {
	results := make([]entity.SyncResult, len(db.collections))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range db.collections {
		g.Go(func() error {
			results[i] = fn(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResetDatabase discards every local record, seeds the demo data again and
// marks the store initialized at the latest schema version. The remote
// store is untouched.
func (db *Database) ResetDatabase(ctx context.Context) error {
	if err := db.store.Clear(ctx); err != nil {
		return err
	}
	if _, err := db.applySeed(ctx); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	err := db.store.MultiSet(ctx, map[string]any{
		types.InitializedKey:   true,
		types.SchemaVersionKey: db.migrations.Latest(),
	})
	if err != nil {
		return err
	}
	db.log.Info("database reset")
	return nil
}

// Migrate applies pending migrations without the rest of Initialize.
func (db *Database) Migrate(ctx context.Context) migrate.Report {
	return db.migrations.Run(ctx)
}

// SchemaVersion returns the persisted schema version and the latest known
// one.
func (db *Database) SchemaVersion(ctx context.Context) (current, latest int, err error) {
	current, err = db.migrations.Current(ctx)
	return current, db.migrations.Latest(), err
}

// Capabilities returns the cached existence of each probed remote
// collection.
func (db *Database) Capabilities() map[string]bool {
	return db.prober.Snapshot()
}

// Collection returns the manager for kind k.
func (db *Database) Collection(k types.Kind) (entity.Collection, error) {
	for _, c := range db.collections {
		if c.Kind() == k {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownKind, string(k))
}

// Collections returns every manager in a stable order.
func (db *Database) Collections() []entity.Collection {
	out := make([]entity.Collection, len(db.collections))
	copy(out, db.collections)
	return out
}

// Close releases the local store and, when it holds resources, the remote
// store.
func (db *Database) Close() error {
	var errs []error
	if err := db.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := db.remote.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
