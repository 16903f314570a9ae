// Package capability records which remote collections exist. Each
// collection is probed at most once per process; the answer is cached.
package capability

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Prober answers "does this remote collection exist?".
type Prober struct {
	remote  types.Remote
	timeout time.Duration
	log     *logger.Logger

	mu    sync.RWMutex
	cache map[string]bool
	group singleflight.Group
}

// New returns a Prober over remote. A nil remote reports every collection
// as missing. A non-positive timeout selects types.DefaultProbeTimeout.
func New(remote types.Remote, timeout time.Duration, log *logger.Logger) *Prober {
	if timeout <= 0 {
		timeout = types.DefaultProbeTimeout
	}
	return &Prober{
		remote:  remote,
		timeout: timeout,
		log:     logger.OrNop(log).With("component", "capability"),
		cache:   make(map[string]bool),
	}
}

func (p *Prober) lookup(collection string) (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.cache[collection]
	return v, ok
}

// Exists reports whether collection exists remotely. Timeouts and probe
// failures count as missing. The probe itself runs under its own timeout
// and outlives ctx; a caller that gives up early sees false but nothing is
// cached for it.
func (p *Prober) Exists(ctx context.Context, collection string) bool {
	if p.remote == nil {
		return false
	}
	if v, ok := p.lookup(collection); ok {
		return v
	}
	ch := p.group.DoChan(collection, func() (any, error) {
		if v, ok := p.lookup(collection); ok {
			return v, nil
		}
		exists := p.probe(context.WithoutCancel(ctx), collection)
		p.mu.Lock()
		if cached, ok := p.cache[collection]; ok {
			exists = cached
		} else {
			p.cache[collection] = exists
		}
		p.mu.Unlock()
		return exists, nil
	})
	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

func (p *Prober) probe(ctx context.Context, collection string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.remote.Probe(ctx, collection) }()

	select {
	case err := <-errc:
		if err != nil {
			p.log.Warn("remote collection unavailable", "collection", collection, "code", types.RemoteCodeOf(err), "error", err)
			return false
		}
		p.log.Debug("remote collection available", "collection", collection)
		return true
	case <-ctx.Done():
		p.log.Warn("remote probe timed out", "collection", collection, "timeout", p.timeout)
		return false
	}
}

// Mark records the existence of collection, replacing any earlier answer.
// Managers call it when a remote operation reports the collection missing.
func (p *Prober) Mark(collection string, exists bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[collection] = exists
}

// Assume records exists for collection unless an answer is already cached.
// A probe still running afterwards keeps the assumed answer.
func (p *Prober) Assume(collection string, exists bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.cache[collection]; !ok {
		p.cache[collection] = exists
	}
}

// Snapshot returns a copy of every recorded answer.
func (p *Prober) Snapshot() map[string]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]bool, len(p.cache))
	for k, v := range p.cache {
		out[k] = v
	}
	return out
}
