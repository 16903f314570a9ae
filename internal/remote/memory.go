package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Remote operation names used by Memory counters and fault injection.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpProbe  = "probe"
)

// Memory is an in-process types.Remote. Collections must be created before
// use; a collection created with columns rejects rows carrying any other
// column, like a relational table would.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection
	calls       map[string]int
	faults      map[string]error
	probeDelay  time.Duration
	assign      func(collection string, row types.Row)
}

type memCollection struct {
	columns map[string]bool
	rows    map[string]types.Row
}

var _ types.Remote = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]*memCollection),
		calls:       make(map[string]int),
		faults:      make(map[string]error),
	}
}

// CreateCollection adds an empty collection. With no columns any column is
// accepted.
func (m *Memory) CreateCollection(name string, columns ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &memCollection{rows: make(map[string]types.Row)}
	if len(columns) > 0 {
		c.columns = map[string]bool{"id": true}
		for _, col := range columns {
			c.columns[col] = true
		}
	}
	m.collections[name] = c
}

// DropCollection removes a collection and its rows.
func (m *Memory) DropCollection(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
}

// Fail makes every later op on collection return err until cleared with a
// nil err.
func (m *Memory) Fail(op, collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + "/" + collection
	if err == nil {
		delete(m.faults, key)
		return
	}
	m.faults[key] = err
}

// SetProbeDelay makes Probe block for d or until its context ends.
func (m *Memory) SetProbeDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeDelay = d
}

// OnInsert registers a hook that can add server-assigned columns to
// inserted rows.
func (m *Memory) OnInsert(fn func(collection string, row types.Row)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assign = fn
}

// Calls returns how many times op ran against collection.
func (m *Memory) Calls(op, collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op+"/"+collection]
}

// TotalCalls returns the number of ops of any kind, probes excluded.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, c := range m.calls {
		if strings.HasPrefix(key, OpProbe+"/") {
			continue
		}
		n += c
	}
	return n
}

// Put stores row directly, bypassing counters and faults.
func (m *Memory) Put(collection string, row types.Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		c = &memCollection{rows: make(map[string]types.Row)}
		m.collections[collection] = c
	}
	c.rows[row.ID()] = copyRow(row)
}

// Rows returns a copy of every row in collection ordered by id.
func (m *Memory) Rows(collection string) []types.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[collection]
	if !ok {
		return nil
	}
	return c.sorted(nil)
}

// begin records the call and returns the collection or the injected or
// missing-table error. m.mu must be held.
func (m *Memory) begin(op, collection string) (*memCollection, error) {
	m.calls[op+"/"+collection]++
	if err := m.faults[op+"/"+collection]; err != nil {
		return nil, err
	}
	c, ok := m.collections[collection]
	if !ok {
		return nil, &types.RemoteError{Code: types.CodeCollectionMissing, Collection: collection,
			Err: fmt.Errorf("relation %q does not exist", collection)}
	}
	return c, nil
}

func (c *memCollection) check(collection string, row types.Row) error {
	if c.columns == nil {
		return nil
	}
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		if !c.columns[col] {
			return &types.RemoteError{Code: types.CodeColumnMissing, Collection: collection, Field: col,
				Err: fmt.Errorf("column %q of relation %q does not exist", col, collection)}
		}
	}
	return nil
}

func (c *memCollection) sorted(filter types.Filter) []types.Row {
	ids := make([]string, 0, len(c.rows))
	for id := range c.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]types.Row, 0, len(ids))
	for _, id := range ids {
		row := c.rows[id]
		if matches(row, filter) {
			out = append(out, copyRow(row))
		}
	}
	return out
}

func matches(row types.Row, filter types.Filter) bool {
	for col, want := range filter {
		if fmt.Sprint(row[col]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func copyRow(r types.Row) types.Row {
	out := make(types.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (m *Memory) Select(_ context.Context, collection string, filter types.Filter) ([]types.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.begin(OpSelect, collection)
	if err != nil {
		return nil, err
	}
	for col := range filter {
		if err := c.check(collection, types.Row{col: nil}); err != nil {
			return nil, err
		}
	}
	return c.sorted(filter), nil
}

func (m *Memory) Insert(_ context.Context, collection string, row types.Row) (types.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.begin(OpInsert, collection)
	if err != nil {
		return nil, err
	}
	if err := c.check(collection, row); err != nil {
		return nil, err
	}
	id := row.ID()
	if id == "" {
		return nil, &types.RemoteError{Code: types.CodeUnknown, Collection: collection, Err: types.ErrInvalidID}
	}
	if _, exists := c.rows[id]; exists {
		return nil, &types.RemoteError{Code: types.CodeUniqueViolation, Collection: collection,
			Err: fmt.Errorf("duplicate key value violates unique constraint %q", collection+"_pkey")}
	}
	stored := copyRow(row)
	if m.assign != nil {
		m.assign(collection, stored)
	}
	c.rows[id] = stored
	return copyRow(stored), nil
}

func (m *Memory) Update(_ context.Context, collection, id string, row types.Row) (types.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.begin(OpUpdate, collection)
	if err != nil {
		return nil, err
	}
	if err := c.check(collection, row); err != nil {
		return nil, err
	}
	existing, ok := c.rows[id]
	if !ok {
		return nil, &types.RemoteError{Code: types.CodeNotFound, Collection: collection, Err: fmt.Errorf("id %q", id)}
	}
	for k, v := range row {
		if k != "id" {
			existing[k] = v
		}
	}
	return copyRow(existing), nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.begin(OpDelete, collection)
	if err != nil {
		return err
	}
	if _, ok := c.rows[id]; !ok {
		return &types.RemoteError{Code: types.CodeNotFound, Collection: collection, Err: fmt.Errorf("id %q", id)}
	}
	delete(c.rows, id)
	return nil
}

func (m *Memory) Probe(ctx context.Context, collection string) error {
	m.mu.Lock()
	delay := m.probeDelay
	_, err := m.begin(OpProbe, collection)
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return &types.RemoteError{Code: types.CodeUnavailable, Collection: collection, Err: ctx.Err()}
		case <-t.C:
		}
	}
	return err
}
