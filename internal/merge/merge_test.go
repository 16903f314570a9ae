package merge

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/petcare/pkg/types"
)

type rec struct {
	ID   string
	Name string
	At   time.Time
}

func recID(r rec) string         { return r.ID }
func recUpdated(r rec) time.Time { return r.At }
func ids(rs []rec) (out []string) {
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestMergeRemoteWins(t *testing.T) {
	local := []rec{{ID: "A", Name: "local"}, {ID: "B", Name: "b"}}
	remote := []rec{{ID: "A", Name: "remote"}, {ID: "C", Name: "c"}}

	got := Merge(local, remote, recID)
	assert.Equal(t, []rec{{ID: "A", Name: "remote"}, {ID: "C", Name: "c"}, {ID: "B", Name: "b"}}, got)
}

func TestMergeEdgeCases(t *testing.T) {
	assert.Empty(t, Merge[rec](nil, nil, recID))

	local := []rec{{ID: "A"}, {ID: "A", Name: "dup"}}
	assert.Equal(t, []rec{{ID: "A"}}, Merge(local, nil, recID))

	remote := []rec{{ID: "X", Name: "first"}, {ID: "X", Name: "second"}}
	assert.Equal(t, []rec{{ID: "X", Name: "first"}}, Merge(nil, remote, recID))
}

func TestMergeNewestWins(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)

	local := []rec{{ID: "A", Name: "local", At: newer}, {ID: "B", Name: "local", At: old}}
	remote := []rec{{ID: "A", Name: "remote", At: old}, {ID: "B", Name: "remote", At: old}}

	got := MergeWith(NewestWins, local, remote, recID, recUpdated)
	require.Len(t, got, 2)
	assert.Equal(t, "local", got[0].Name)
	// Ties go to the remote copy.
	assert.Equal(t, "remote", got[1].Name)

	got = MergeWith(RemoteWins, local, remote, recID, recUpdated)
	assert.Equal(t, "remote", got[0].Name)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, RemoteWins, p)

	p, err = ParsePolicy(types.PolicyNewestWins)
	require.NoError(t, err)
	assert.Equal(t, NewestWins, p)
	assert.Equal(t, types.PolicyNewestWins, p.String())

	_, err = ParsePolicy("local_wins")
	assert.ErrorIs(t, err, types.ErrConflictPolicyUnknown)
}

// Every remote id appears once with its remote value, followed by the
// local-only ids, and no id repeats.
func TestMergeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gen := func(n int, tag string) []rec {
		out := make([]rec, n)
		for i := range out {
			out[i] = rec{ID: fmt.Sprintf("id-%d", rng.Intn(12)), Name: tag}
		}
		return out
	}

	for i := 0; i < 200; i++ {
		local := gen(rng.Intn(8), "local")
		remote := gen(rng.Intn(8), "remote")
		got := Merge(local, remote, recID)

		seen := map[string]bool{}
		for _, r := range got {
			assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
			seen[r.ID] = true
		}

		remoteIDs := map[string]bool{}
		for _, r := range remote {
			remoteIDs[r.ID] = true
		}
		for _, r := range got {
			if remoteIDs[r.ID] {
				assert.Equal(t, "remote", r.Name)
			} else {
				assert.Equal(t, "local", r.Name)
			}
		}
		for _, r := range local {
			assert.True(t, seen[r.ID])
		}
		assert.Len(t, got, len(seen))
		assert.Subset(t, ids(got), ids(remote))
	}
}
