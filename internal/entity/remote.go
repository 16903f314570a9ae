package entity

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/petcare/internal/translate"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// remoteFailed logs a remote failure according to its code. A missing
// collection downgrades the kind to local-only for the rest of the process.
func (m *Manager[T, PT]) remoteFailed(op string, err error) {
	code := types.RemoteCodeOf(err)
	switch code {
	case types.CodeCollectionMissing:
		m.prober.Mark(m.info.Collection, false)
		m.log.Warn("remote collection missing, continuing local-only", "op", op, "error", err)
	case types.CodeColumnMissing:
		field := ""
		var re *types.RemoteError
		if errors.As(err, &re) {
			field = re.Field
		}
		m.log.Error("CRITICAL remote schema mismatch", "op", op, "field", field, "error", err)
	case types.CodeUniqueViolation:
		m.log.Warn("remote rejected duplicate id", "op", op, "error", err)
	case types.CodeForeignKeyViolation:
		m.log.Warn("remote rejected missing reference", "op", op, "error", err)
	default:
		m.log.Warn("remote operation failed", "op", op, "code", code, "error", err)
	}
}

// fetchRemote selects and translates remote records. Rows that fail to
// translate are skipped.
func (m *Manager[T, PT]) fetchRemote(ctx context.Context, filter types.Filter, op string) ([]T, bool) {
	rows, err := m.remote.Select(ctx, m.info.Collection, filter)
	if err != nil {
		m.remoteFailed(op, err)
		return nil, false
	}
	out, _ := m.fromRows(rows)
	return out, true
}

func (m *Manager[T, PT]) fromRows(rows []types.Row) ([]T, int) {
	out := make([]T, 0, len(rows))
	bad := 0
	for _, row := range rows {
		v, err := m.fromRow(row)
		if err != nil {
			bad++
			m.log.Warn("skipping untranslatable remote record", "id", row.ID(), "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, bad
}

func (m *Manager[T, PT]) fromRow(row types.Row) (T, error) {
	var zero T
	e, err := translate.FromRemote(m.kind, row)
	if err != nil {
		return zero, err
	}
	pt, ok := e.(PT)
	if !ok {
		return zero, errUnexpectedVariant(m.kind, e)
	}
	return *pt, nil
}

// insertRemote inserts v and returns the stored record as the remote sees
// it, including server-assigned fields.
func (m *Manager[T, PT]) insertRemote(ctx context.Context, v T) (T, bool) {
	var zero T
	row, err := translate.ToRemote(PT(&v))
	if err != nil {
		m.log.Error("translating record failed", "op", "insert", "id", m.idOf(v), "error", err)
		return zero, false
	}
	stored, err := m.remote.Insert(ctx, m.info.Collection, row)
	if err != nil {
		m.remoteFailed("insert", err)
		return zero, false
	}
	out, err := m.fromRow(stored)
	if err != nil {
		m.log.Warn("translating inserted record failed", "id", m.idOf(v), "error", err)
		return v, true
	}
	if err := translate.CarryLocalOnly(PT(&out), PT(&v)); err != nil {
		m.log.Warn("keeping display fields failed", "id", m.idOf(v), "error", err)
	}
	return out, true
}

func (m *Manager[T, PT]) updateRemote(ctx context.Context, v T) bool {
	row, err := translate.ToRemote(PT(&v))
	if err != nil {
		m.log.Error("translating record failed", "op", "update", "id", m.idOf(v), "error", err)
		return false
	}
	if _, err := m.remote.Update(ctx, m.info.Collection, m.idOf(v), row); err != nil {
		m.remoteFailed("update", err)
		return false
	}
	return true
}
