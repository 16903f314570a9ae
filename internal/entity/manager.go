// Package entity implements the generic local-first entity manager. Every
// operation reads and writes the local store first; when sync is enabled
// and the remote collection exists it also propagates to the remote store
// through the translator. Remote failures are logged and absorbed.
package entity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/petcare/internal/capability"
	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/internal/merge"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Config controls remote propagation and conflict handling.
type Config struct {
	SyncEnabled bool
	Policy      merge.Policy
	// Now and NewID default to the UTC wall clock and UUID v7.
	Now   func() time.Time
	NewID func() string
}

// SyncResult counts the outcome of a bulk sync.
type SyncResult struct {
	Kind   types.Kind `json:"kind"`
	Synced int        `json:"synced"`
	Errors int        `json:"errors"`
}

// Manager is the CRUD and sync facade for one entity kind. PT is the
// pointer type that implements types.Entity.
type Manager[T any, PT interface {
	*T
	types.Entity
}] struct {
	kind   types.Kind
	info   types.KindInfo
	store  types.LocalStore
	remote types.Remote
	prober *capability.Prober
	cfg    Config
	log    *logger.Logger

	// mu serializes read-modify-write cycles on the local record set.
	mu sync.Mutex
}

// New builds a manager for the kind of T. remote and prober may be nil.
func New[T any, PT interface {
	*T
	types.Entity
}](store types.LocalStore, remote types.Remote, prober *capability.Prober, cfg Config, log *logger.Logger) *Manager[T, PT] {
	var zero T
	kind := PT(&zero).Kind()
	info, _ := kind.Info()

	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.NewID == nil {
		cfg.NewID = NewUUID
	}
	if prober == nil {
		prober = capability.New(remote, 0, log)
	}
	return &Manager[T, PT]{
		kind:   kind,
		info:   info,
		store:  store,
		remote: remote,
		prober: prober,
		cfg:    cfg,
		log:    logger.OrNop(log).With("component", "entity", "kind", string(kind)),
	}
}

// NewUUID returns a UUID v7 string, falling back to v4. It is the default
// Config.NewID.
func NewUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (m *Manager[T, PT]) Kind() types.Kind        { return m.kind }
func (m *Manager[T, PT]) Collection() string      { return m.info.Collection }
func (m *Manager[T, PT]) StorageKey() string      { return m.info.StorageKey }
func (m *Manager[T, PT]) SyncEnabled() bool       { return m.cfg.SyncEnabled && m.remote != nil }
func (m *Manager[T, PT]) idOf(v T) string         { return PT(&v).GetID() }
func (m *Manager[T, PT]) ownerOf(v T) string      { return PT(&v).Owner() }
func (m *Manager[T, PT]) updatedOf(v T) time.Time { return PT(&v).Updated() }

// load reads the local record set. A missing key is an empty set.
func (m *Manager[T, PT]) load(ctx context.Context) ([]T, error) {
	var items []T
	if _, err := m.store.Get(ctx, m.info.StorageKey, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (m *Manager[T, PT]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return m.store.Set(ctx, m.info.StorageKey, items)
}

// loadOrEmpty absorbs storage failures.
func (m *Manager[T, PT]) loadOrEmpty(ctx context.Context, op string) []T {
	items, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", op, "error", err)
		return nil
	}
	return items
}

func (m *Manager[T, PT]) owned(items []T, ownerID string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if ownerID == "" || m.ownerOf(it) == ownerID {
			out = append(out, it)
		}
	}
	return out
}

func (m *Manager[T, PT]) indexOf(items []T, id string) int {
	for i, it := range items {
		if m.idOf(it) == id {
			return i
		}
	}
	return -1
}

func (m *Manager[T, PT]) merge(local, remote []T) []T {
	return merge.MergeWith(m.cfg.Policy, local, remote, m.idOf, m.updatedOf)
}

// remoteReady reports whether this call may touch the remote store.
func (m *Manager[T, PT]) remoteReady(ctx context.Context) bool {
	return m.SyncEnabled() && m.prober.Exists(ctx, m.info.Collection)
}

func (m *Manager[T, PT]) ownerFilter(ownerID string) types.Filter {
	if ownerID == "" {
		return nil
	}
	return types.Filter{m.info.RemoteOwnerField: ownerID}
}

// GetAll returns the local records of ownerID (every record when ownerID
// is empty). When the remote collection is usable the remote set is merged
// in and the merged set persisted.
func (m *Manager[T, PT]) GetAll(ctx context.Context, ownerID string) []T {
	local := m.owned(m.loadOrEmpty(ctx, "get_all"), ownerID)
	if !m.remoteReady(ctx) {
		return local
	}

	remote, ok := m.fetchRemote(ctx, m.ownerFilter(ownerID), "get_all")
	if !ok {
		return local
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", "get_all", "error", err)
		return m.owned(m.merge(local, remote), ownerID)
	}
	merged := m.merge(current, remote)
	if err := m.save(ctx, merged); err != nil {
		m.log.Error("persisting merged records failed", "op", "get_all", "error", err)
	}
	return m.owned(merged, ownerID)
}

// GetByID looks the id up locally, then remotely. A remote hit is stored
// locally before it is returned.
func (m *Manager[T, PT]) GetByID(ctx context.Context, id string) (T, bool) {
	var zero T
	items := m.loadOrEmpty(ctx, "get_by_id")
	if i := m.indexOf(items, id); i >= 0 {
		return items[i], true
	}
	if id == "" || !m.remoteReady(ctx) {
		return zero, false
	}

	remote, ok := m.fetchRemote(ctx, types.Filter{"id": id}, "get_by_id")
	if !ok || len(remote) == 0 {
		return zero, false
	}
	found := remote[0]
	m.upsertLocal(ctx, found, "get_by_id")
	return found, true
}

// Create assigns an id when absent, validates, and appends v to the local
// set before attempting the remote insert. Validation, duplicate-id and
// local storage failures are returned; remote failures are not.
func (m *Manager[T, PT]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	e := PT(&v)
	if e.GetID() == "" {
		e.SetID(m.cfg.NewID())
	}
	e.Normalize()
	e.Touch(m.cfg.Now())
	if err := e.Validate(); err != nil {
		return zero, err
	}

	if err := m.appendLocal(ctx, v); err != nil {
		return zero, err
	}
	m.log.Debug("created", "id", e.GetID())

	if !m.remoteReady(ctx) {
		return v, nil
	}
	stored, ok := m.insertRemote(ctx, v)
	if !ok {
		return v, nil
	}
	m.upsertLocal(ctx, stored, "create")
	return stored, nil
}

func (m *Manager[T, PT]) appendLocal(ctx context.Context, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.load(ctx)
	if err != nil {
		return err
	}
	id := m.idOf(v)
	if m.indexOf(items, id) >= 0 {
		return fmt.Errorf("%w: %s %q", types.ErrDuplicateID, m.kind, id)
	}
	return m.save(ctx, append(items, v))
}

// upsertLocal replaces or appends v. Failures are logged.
func (m *Manager[T, PT]) upsertLocal(ctx context.Context, v T, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", op, "error", err)
		return
	}
	if i := m.indexOf(items, m.idOf(v)); i >= 0 {
		items[i] = v
	} else {
		items = append(items, v)
	}
	if err := m.save(ctx, items); err != nil {
		m.log.Error("persisting local record failed", "op", op, "id", m.idOf(v), "error", err)
	}
}

// Update applies patch over the local record id. It returns false when id
// is not stored locally. Validation and local storage failures are
// returned; the remote update is best effort.
func (m *Manager[T, PT]) Update(ctx context.Context, id string, patch types.Patch) (T, bool, error) {
	var zero T
	next, found, err := m.updateLocal(ctx, id, patch)
	if err != nil || !found {
		return zero, found, err
	}

	if m.remoteReady(ctx) {
		m.updateRemote(ctx, next)
	}
	return next, true, nil
}

func (m *Manager[T, PT]) updateLocal(ctx context.Context, id string, patch types.Patch) (T, bool, error) {
	var zero T
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", "update", "error", err)
		return zero, false, err
	}
	i := m.indexOf(items, id)
	if i < 0 {
		return zero, false, nil
	}

	next, err := applyPatch[T, PT](m.kind, items[i], patch, m.cfg.Now())
	if err != nil {
		return zero, true, err
	}
	items[i] = next
	if err := m.save(ctx, items); err != nil {
		return zero, true, err
	}
	return next, true, nil
}

// Delete removes id locally and, best effort, remotely. It reports whether
// the id was stored locally.
func (m *Manager[T, PT]) Delete(ctx context.Context, id string) bool {
	removed := m.deleteLocal(ctx, id)
	if m.remoteReady(ctx) {
		if err := m.remote.Delete(ctx, m.info.Collection, id); err != nil {
			m.remoteFailed("delete", err)
		}
	}
	return removed
}

func (m *Manager[T, PT]) deleteLocal(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", "delete", "error", err)
		return false
	}
	i := m.indexOf(items, id)
	if i < 0 {
		return false
	}
	items = append(items[:i], items[i+1:]...)
	if err := m.save(ctx, items); err != nil {
		m.log.Error("persisting local records failed", "op", "delete", "id", id, "error", err)
		return false
	}
	return true
}

// Find returns the local records matching pred.
func (m *Manager[T, PT]) Find(ctx context.Context, pred func(T) bool) []T {
	items := m.loadOrEmpty(ctx, "find")
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// Count returns the number of local records of ownerID, or of every owner
// when ownerID is empty.
func (m *Manager[T, PT]) Count(ctx context.Context, ownerID string) int {
	return len(m.owned(m.loadOrEmpty(ctx, "count"), ownerID))
}

// SyncToRemote pushes every local record, inserting or updating depending
// on whether the remote already holds its id.
func (m *Manager[T, PT]) SyncToRemote(ctx context.Context) SyncResult {
	return m.SyncOwnerToRemote(ctx, "")
}

// SyncOwnerToRemote is SyncToRemote restricted to the records of ownerID.
func (m *Manager[T, PT]) SyncOwnerToRemote(ctx context.Context, ownerID string) SyncResult {
	res := SyncResult{Kind: m.kind}
	if !m.remoteReady(ctx) {
		return res
	}

	items := m.owned(m.loadOrEmpty(ctx, "sync_to_remote"), ownerID)
	for i, it := range items {
		id := m.idOf(it)
		rows, err := m.remote.Select(ctx, m.info.Collection, types.Filter{"id": id})
		if err != nil {
			m.remoteFailed("sync_to_remote", err)
			if types.RemoteCodeOf(err) == types.CodeCollectionMissing {
				res.Errors += len(items) - i
				break
			}
			res.Errors++
			continue
		}

		var ok bool
		if len(rows) > 0 {
			ok = m.updateRemote(ctx, it)
		} else {
			_, ok = m.insertRemote(ctx, it)
		}
		if ok {
			res.Synced++
		} else {
			res.Errors++
		}
	}
	m.log.Info("synced to remote", "synced", res.Synced, "errors", res.Errors)
	return res
}

// SyncFromRemote merges the remote records of ownerID into the local set.
// Synced counts the remote records merged.
func (m *Manager[T, PT]) SyncFromRemote(ctx context.Context, ownerID string) SyncResult {
	res := SyncResult{Kind: m.kind}
	if !m.remoteReady(ctx) {
		return res
	}
	rows, err := m.remote.Select(ctx, m.info.Collection, m.ownerFilter(ownerID))
	if err != nil {
		m.remoteFailed("sync_from_remote", err)
		res.Errors++
		return res
	}
	remote, bad := m.fromRows(rows)
	res.Errors += bad

	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := m.load(ctx)
	if err != nil {
		m.log.Error("reading local records failed", "op", "sync_from_remote", "error", err)
		res.Errors++
		return res
	}
	if err := m.save(ctx, m.merge(current, remote)); err != nil {
		m.log.Error("persisting merged records failed", "op", "sync_from_remote", "error", err)
		res.Errors++
		return res
	}
	res.Synced = len(remote)
	m.log.Info("synced from remote", "synced", res.Synced, "errors", res.Errors)
	return res
}
