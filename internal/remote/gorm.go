// Package remote implements types.Remote over a relational database
// through gorm, plus an in-memory remote used in tests and offline runs.
package remote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var errInvalidIdent = errors.New("invalid identifier")

// Gorm is a types.Remote backed by a gorm connection.
type Gorm struct {
	db  *gorm.DB
	log *logger.Logger
}

var _ types.Remote = (*Gorm)(nil)

// Open connects to the remote selected by cfg. It returns a nil Remote
// when no remote is configured.
func Open(ctx context.Context, cfg types.RemoteConfig, log *logger.Logger) (types.Remote, error) {
	log = logger.OrNop(log)
	gcfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(
			zap.NewStdLog(log.SugaredLogger.Desugar()),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}

	switch cfg.Driver {
	case types.RemoteNone:
		return nil, nil
	case types.RemoteMemory:
		return NewMemory(), nil
	case types.RemotePostgres:
		db, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return NewGorm(db, log), nil
	case types.RemoteSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite remote: %w", err)
		}
		// The embedded remote is owned by this program, so its schema is too.
		if err := EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to migrate SQLite remote: %w", err)
		}
		return NewGorm(db, log), nil
	default:
		return nil, types.ErrRemoteDriverUnknown
	}
}

// NewGorm wraps an open connection.
func NewGorm(db *gorm.DB, log *logger.Logger) *Gorm {
	return &Gorm{db: db, log: logger.OrNop(log).With("component", "remote")}
}

// DB exposes the underlying connection.
func (g *Gorm) DB() *gorm.DB { return g.db }

func checkIdent(collection string, names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return &types.RemoteError{Code: types.CodeUnknown, Collection: collection, Err: fmt.Errorf("%w: %q", errInvalidIdent, n)}
		}
	}
	return nil
}

func (g *Gorm) Select(ctx context.Context, collection string, filter types.Filter) ([]types.Row, error) {
	if err := checkIdent(collection, collection); err != nil {
		return nil, err
	}
	q := g.db.WithContext(ctx).Table(collection)

	cols := make([]string, 0, len(filter))
	for col := range filter {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if err := checkIdent(collection, col); err != nil {
			return nil, err
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: filter[col]})
	}

	var rows []map[string]any
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, classify(collection, err)
	}
	out := make([]types.Row, len(rows))
	for i, r := range rows {
		out[i] = types.Row(r)
	}
	return out, nil
}

func (g *Gorm) one(ctx context.Context, collection, id string) (types.Row, error) {
	rows, err := g.Select(ctx, collection, types.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &types.RemoteError{Code: types.CodeNotFound, Collection: collection, Err: fmt.Errorf("id %q", id)}
	}
	return rows[0], nil
}

func (g *Gorm) Insert(ctx context.Context, collection string, row types.Row) (types.Row, error) {
	if err := checkIdent(collection, collection); err != nil {
		return nil, err
	}
	id := row.ID()
	if id == "" {
		return nil, &types.RemoteError{Code: types.CodeUnknown, Collection: collection, Err: types.ErrInvalidID}
	}
	if err := g.db.WithContext(ctx).Table(collection).Create(map[string]any(row)).Error; err != nil {
		return nil, classify(collection, err)
	}
	return g.one(ctx, collection, id)
}

func (g *Gorm) Update(ctx context.Context, collection, id string, row types.Row) (types.Row, error) {
	if err := checkIdent(collection, collection); err != nil {
		return nil, err
	}
	values := make(map[string]any, len(row))
	for k, v := range row {
		if k != "id" {
			values[k] = v
		}
	}
	res := g.db.WithContext(ctx).Table(collection).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return nil, classify(collection, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &types.RemoteError{Code: types.CodeNotFound, Collection: collection, Err: fmt.Errorf("id %q", id)}
	}
	return g.one(ctx, collection, id)
}

func (g *Gorm) Delete(ctx context.Context, collection, id string) error {
	if err := checkIdent(collection, collection); err != nil {
		return err
	}
	res := g.db.WithContext(ctx).Exec(fmt.Sprintf(`DELETE FROM %q WHERE id = ?`, collection), id)
	if res.Error != nil {
		return classify(collection, res.Error)
	}
	if res.RowsAffected == 0 {
		return &types.RemoteError{Code: types.CodeNotFound, Collection: collection, Err: fmt.Errorf("id %q", id)}
	}
	return nil
}

// Probe reads at most one row, which fails when the table is missing or
// the connection is down.
func (g *Gorm) Probe(ctx context.Context, collection string) error {
	if err := checkIdent(collection, collection); err != nil {
		return err
	}
	var rows []map[string]any
	err := g.db.WithContext(ctx).Table(collection).Select("id").Limit(1).Find(&rows).Error
	return classify(collection, err)
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
