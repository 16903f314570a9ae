package entity

import (
	"context"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Collection is a Manager with the entity type erased, for callers that
// choose the kind at run time.
type Collection interface {
	Kind() types.Kind
	Collection() string
	StorageKey() string
	List(ctx context.Context, ownerID string) []types.Entity
	Lookup(ctx context.Context, id string) (types.Entity, bool)
	Insert(ctx context.Context, e types.Entity) (types.Entity, error)
	Modify(ctx context.Context, id string, patch types.Patch) (types.Entity, bool, error)
	Delete(ctx context.Context, id string) bool
	Count(ctx context.Context, ownerID string) int
	SyncToRemote(ctx context.Context) SyncResult
	SyncOwnerToRemote(ctx context.Context, ownerID string) SyncResult
	SyncFromRemote(ctx context.Context, ownerID string) SyncResult
}

var _ Collection = (*Manager[types.Pet, *types.Pet])(nil)

func (m *Manager[T, PT]) List(ctx context.Context, ownerID string) []types.Entity {
	items := m.GetAll(ctx, ownerID)
	out := make([]types.Entity, len(items))
	for i := range items {
		out[i] = PT(&items[i])
	}
	return out
}

func (m *Manager[T, PT]) Lookup(ctx context.Context, id string) (types.Entity, bool) {
	v, ok := m.GetByID(ctx, id)
	if !ok {
		return nil, false
	}
	return PT(&v), true
}

func (m *Manager[T, PT]) Insert(ctx context.Context, e types.Entity) (types.Entity, error) {
	pt, ok := e.(PT)
	if !ok || pt == nil {
		return nil, errUnexpectedVariant(m.kind, e)
	}
	v, err := m.Create(ctx, *pt)
	if err != nil {
		return nil, err
	}
	return PT(&v), nil
}

func (m *Manager[T, PT]) Modify(ctx context.Context, id string, patch types.Patch) (types.Entity, bool, error) {
	v, ok, err := m.Update(ctx, id, patch)
	if err != nil || !ok {
		return nil, ok, err
	}
	return PT(&v), true, nil
}
