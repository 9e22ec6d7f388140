package index

import (
	"testing"

	"github.com/nexusdb/nexus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelScanReturnsOnlyTaggedNodes(t *testing.T) {
	m := NewManager()

	n1 := &types.Node{ID: 1, Labels: []types.LabelID{1}}
	n2 := &types.Node{ID: 2, Labels: []types.LabelID{1, 2}}
	n3 := &types.Node{ID: 3, Labels: []types.LabelID{2}}
	m.ApplyNode(n1)
	m.ApplyNode(n2)
	m.ApplyNode(n3)

	assert.ElementsMatch(t, []types.NodeID{1, 2}, m.ScanLabel(1))
	assert.ElementsMatch(t, []types.NodeID{2, 3}, m.ScanLabel(2))
	assert.EqualValues(t, 2, m.LabelCardinality(1))
}

func TestPropertySeekEqualityAndRange(t *testing.T) {
	m := NewManager()
	m.RegisterPropertyIndex(1, 10, false)

	nodes := []struct {
		id  types.NodeID
		age int64
	}{{1, 20}, {2, 30}, {3, 30}, {4, 40}}
	for _, n := range nodes {
		node := &types.Node{ID: n.id, Labels: []types.LabelID{1}, Properties: map[types.KeyID]types.Value{10: types.IntValue(n.age)}}
		m.ApplyNode(node)
	}

	eq, ok := m.SeekEqual(1, 10, types.IntValue(30))
	require.True(t, ok)
	assert.ElementsMatch(t, []types.NodeID{2, 3}, eq)

	lo := types.IntValue(25)
	rng, ok := m.SeekRange(1, 10, &lo, nil)
	require.True(t, ok)
	assert.ElementsMatch(t, []types.NodeID{2, 3, 4}, rng)
}

func TestUniqueConstraintRejectsDuplicateValue(t *testing.T) {
	m := NewManager()
	m.CreateUniqueConstraint(1, 10)

	n1 := &types.StagedNode{ID: 1, Labels: []types.LabelID{1}, Properties: map[types.KeyID]types.Value{10: types.StringValue("alice@example.com")}}
	require.NoError(t, m.ValidateNode(n1))
	m.ApplyNode(&types.Node{ID: 1, Labels: n1.Labels, Properties: n1.Properties})

	n2 := &types.StagedNode{Labels: []types.LabelID{1}, Properties: map[types.KeyID]types.Value{10: types.StringValue("alice@example.com")}}
	err := m.ValidateNode(n2)
	assert.Error(t, err)
}

func TestRemoveNodeRetractsFromIndexes(t *testing.T) {
	m := NewManager()
	m.RegisterPropertyIndex(1, 10, false)

	node := &types.Node{ID: 1, Labels: []types.LabelID{1}, Properties: map[types.KeyID]types.Value{10: types.IntValue(1)}}
	m.ApplyNode(node)
	m.RemoveNode(node)

	assert.Empty(t, m.ScanLabel(1))
	eq, _ := m.SeekEqual(1, 10, types.IntValue(1))
	assert.Empty(t, eq)
}

func TestVectorIndexReturnsNearestNeighborFirst(t *testing.T) {
	v := NewVectorIndex(2, MetricEuclidean)
	v.Insert(1, []float32{0, 0})
	v.Insert(2, []float32{10, 10})
	v.Insert(3, []float32{0.1, 0.1})

	got := v.SearchKNN([]float32{0, 0}, 2)
	require.NotEmpty(t, got)
	assert.Equal(t, types.NodeID(1), got[0])
}

func TestFullTextQueryIsUnsupported(t *testing.T) {
	m := NewManager()
	m.RegisterFullText(1, 10)

	_, err := m.QueryFullText(1, 10, "hello", 10)
	assert.ErrorIs(t, err, ErrUnsupported)
}
