package store

import (
	"path/filepath"
	"testing"

	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.dat"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetNodeRoundTrips(t *testing.T) {
	s := openTestStore(t)

	props := map[types.KeyID]types.Value{1: types.StringValue("Alice"), 2: types.IntValue(30)}
	id, err := s.ApplyNode(&types.StagedNode{Labels: []types.LabelID{1}, Properties: props}, 1)
	require.NoError(t, err)

	n, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, []types.LabelID{1}, n.Labels)
	assert.Equal(t, "Alice", n.Properties[1].Str)
	assert.Equal(t, int64(30), n.Properties[2].Int64)
}

func TestDeleteNodeFreesSlotForReuse(t *testing.T) {
	s := openTestStore(t)

	id, err := s.ApplyNode(&types.StagedNode{Labels: nil, Properties: nil}, 1)
	require.NoError(t, err)

	require.NoError(t, func() error {
		_, err := s.ApplyNode(&types.StagedNode{ID: id, Deleted: true}, 2)
		return err
	}())

	_, err = s.GetNode(id)
	assert.Error(t, err)

	id2, err := s.ApplyNode(&types.StagedNode{Properties: nil}, 3)
	require.NoError(t, err)
	assert.Equal(t, id, id2, "freed slot should be reused before growing")
}

func TestEdgeChainIntegrity(t *testing.T) {
	s := openTestStore(t)

	n1, err := s.ApplyNode(&types.StagedNode{}, 1)
	require.NoError(t, err)
	n2, err := s.ApplyNode(&types.StagedNode{}, 1)
	require.NoError(t, err)
	n3, err := s.ApplyNode(&types.StagedNode{}, 1)
	require.NoError(t, err)

	r1, err := s.ApplyRel(&types.StagedRel{Source: n1, Target: n2, Type: 1}, 2)
	require.NoError(t, err)
	r2, err := s.ApplyRel(&types.StagedRel{Source: n1, Target: n3, Type: 1}, 2)
	require.NoError(t, err)

	var seen []types.RelID
	s.WalkChain(n1, types.DirOutgoing, func(id types.RelID) bool {
		seen = append(seen, id)
		return true
	})
	assert.ElementsMatch(t, []types.RelID{r1, r2}, seen)

	_, err = s.ApplyRel(&types.StagedRel{ID: r1, Deleted: true}, 3)
	require.NoError(t, err)

	seen = nil
	s.WalkChain(n1, types.DirOutgoing, func(id types.RelID) bool {
		seen = append(seen, id)
		return true
	})
	assert.Equal(t, []types.RelID{r2}, seen)

	var incoming []types.RelID
	s.WalkChain(n3, types.DirIncoming, func(id types.RelID) bool {
		incoming = append(incoming, id)
		return true
	})
	assert.Equal(t, []types.RelID{r2}, incoming)
}

func TestCreateRelRejectsDeadEndpoints(t *testing.T) {
	s := openTestStore(t)

	n1, err := s.ApplyNode(&types.StagedNode{}, 1)
	require.NoError(t, err)

	_, err = s.ApplyRel(&types.StagedRel{Source: n1, Target: types.NodeID(999), Type: 1}, 2)
	assert.Error(t, err)
}

func TestFlushPersistsLastAppliedLSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.dat")
	s, err := Open(path, Options{})
	require.NoError(t, err)

	_, err = s.ApplyNode(&types.StagedNode{}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Flush(1))
	require.NoError(t, s.Close())

	s2, err := Open(path, Options{})
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, uint64(1), s2.LastAppliedLSN())
}

func TestGrowthAcrossManyNodes(t *testing.T) {
	s := openTestStore(t)

	var last types.NodeID
	for i := 0; i < defaultNodeCap*3; i++ {
		id, err := s.ApplyNode(&types.StagedNode{Properties: map[types.KeyID]types.Value{1: types.IntValue(int64(i))}}, uint64(i))
		require.NoError(t, err)
		last = id
	}

	n, err := s.GetNode(last)
	require.NoError(t, err)
	assert.Equal(t, int64(defaultNodeCap*3-1), n.Properties[1].Int64)

	nodeCount, _ := s.Stats()
	assert.Equal(t, uint64(defaultNodeCap*3), nodeCount)
}
