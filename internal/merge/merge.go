// Package merge combines a remote and a local record set into one set with
// unique ids.
package merge

import (
	"fmt"
	"time"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Policy decides which copy survives when both sets hold an id.
type Policy int

const (
	// RemoteWins always keeps the remote copy.
	RemoteWins Policy = iota
	// NewestWins keeps the local copy when it was updated strictly after
	// the remote one.
	NewestWins
)

func (p Policy) String() string {
	switch p {
	case RemoteWins:
		return types.PolicyRemoteWins
	case NewestWins:
		return types.PolicyNewestWins
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps a configured policy name to a Policy. The empty string
// selects RemoteWins.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", types.PolicyRemoteWins:
		return RemoteWins, nil
	case types.PolicyNewestWins:
		return NewestWins, nil
	}
	return RemoteWins, fmt.Errorf("%w: %q", types.ErrConflictPolicyUnknown, s)
}

// Merge returns every remote record once, in first-occurrence order, then
// every local record whose id does not appear remotely. Remote copies win.
func Merge[T any](local, remote []T, id func(T) string) []T {
	return MergeWith(RemoteWins, local, remote, id, nil)
}

// MergeWith is Merge under policy. updated is only consulted by NewestWins
// and may be nil otherwise.
func MergeWith[T any](policy Policy, local, remote []T, id func(T) string, updated func(T) time.Time) []T {
	localByID := make(map[string]T, len(local))
	for _, rec := range local {
		if _, ok := localByID[id(rec)]; !ok {
			localByID[id(rec)] = rec
		}
	}

	out := make([]T, 0, len(remote)+len(local))
	seen := make(map[string]bool, len(remote)+len(local))
	for _, rec := range remote {
		key := id(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		if policy == NewestWins && updated != nil {
			if l, ok := localByID[key]; ok && updated(l).After(updated(rec)) {
				rec = l
			}
		}
		out = append(out, rec)
	}
	for _, rec := range local {
		key := id(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}
