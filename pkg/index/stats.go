package index

import "github.com/nexusdb/nexus/pkg/types"

// LabelCardinality is the number of live nodes carrying label, used by the
// Planner's seed-selection cost estimate.
func (m *Manager) LabelCardinality(label types.LabelID) uint64 {
	return m.labels.cardinality(label)
}

// TypeCardinality is the number of live relationships of typ.
func (m *Manager) TypeCardinality(typ types.TypeID) uint64 {
	return m.types.cardinality(typ)
}

// AvgOutDegree estimates the average number of typ-typed outgoing edges
// per node of label, as relationship count over node count. This is a
// planning estimate, not an exact measurement: the Index Manager tracks
// aggregate cardinalities, not per-node degree histograms.
func (m *Manager) AvgOutDegree(typ types.TypeID, label types.LabelID) float64 {
	nodeCount := m.labels.cardinality(label)
	if nodeCount == 0 {
		return 0
	}
	return float64(m.types.cardinality(typ)) / float64(nodeCount)
}
