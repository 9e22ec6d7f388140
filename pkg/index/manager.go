package index

import (
	"fmt"
	"sync"

	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
)

type propKey struct {
	Label types.LabelID
	Key   types.KeyID
}

// Manager is the Index Manager: label bitmaps, property B-trees (plain
// and unique-constrained), full-text stubs and HNSW vector indexes, all
// updated synchronously inside a transaction's commit (spec 4.3, 4.4).
type Manager struct {
	mu        sync.RWMutex
	labels    *labelIndex
	types     *typeIndex
	props     map[propKey]*propertyIndex
	fullText  map[propKey]fullTextIndex
	vectors   map[types.LabelID]*VectorIndex
	logger    zerolog.Logger
}

// NewManager creates an empty Index Manager.
func NewManager() *Manager {
	return &Manager{
		labels:   newLabelIndex(),
		types:    newTypeIndex(),
		props:    make(map[propKey]*propertyIndex),
		fullText: make(map[propKey]fullTextIndex),
		vectors:  make(map[types.LabelID]*VectorIndex),
		logger:   log.WithComponent("index"),
	}
}

// RegisterPropertyIndex creates a B-tree for (label, key) if one doesn't
// already exist. Calling it twice with the same pair is a no-op.
func (m *Manager) RegisterPropertyIndex(label types.LabelID, key types.KeyID, unique bool) {
	pk := propKey{label, key}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.props[pk]; !ok {
		m.props[pk] = newPropertyIndex(unique)
		m.logger.Debug().Uint32("label", uint32(label)).Uint32("key", uint32(key)).Bool("unique", unique).Msg("registered property index")
	}
}

// CreateUniqueConstraint registers (label, key) as a unique-constrained
// property index, per SUPPLEMENTED FEATURES item 2.
func (m *Manager) CreateUniqueConstraint(label types.LabelID, key types.KeyID) {
	m.RegisterPropertyIndex(label, key, true)
}

// RegisterFullText records that a full-text index exists for (label, key);
// Query on it always fails with ErrUnsupported (SUPPLEMENTED FEATURES item 1).
func (m *Manager) RegisterFullText(label types.LabelID, key types.KeyID) {
	pk := propKey{label, key}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fullText[pk] = fullTextIndex{}
}

// QueryFullText always returns ErrUnsupported if the index exists, or
// SchemaError if it was never registered.
func (m *Manager) QueryFullText(label types.LabelID, key types.KeyID, query string, limit int) ([]uint64, error) {
	m.mu.RLock()
	idx, ok := m.fullText[propKey{label, key}]
	m.mu.RUnlock()
	if !ok {
		return nil, nexuserr.SchemaError(fmt.Sprintf("no full-text index on (%d,%d)", label, key))
	}
	return idx.Query(query, limit)
}

// RegisterVectorIndex creates an HNSW index for label's embeddings.
func (m *Manager) RegisterVectorIndex(label types.LabelID, dim int, metric Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vectors[label]; !ok {
		m.vectors[label] = NewVectorIndex(dim, metric)
	}
}

// VectorIndexFor returns the HNSW index registered for label, if any.
func (m *Manager) VectorIndexFor(label types.LabelID) (*VectorIndex, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vectors[label]
	return v, ok
}

// ValidateNode checks a staged node create/update against every unique
// constraint its labels participate in, before the Transaction Manager
// commits (spec 4.4 step 1). It must run before ApplyNode.
func (m *Manager) ValidateNode(staged *types.StagedNode) error {
	if staged.Deleted {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, label := range staged.Labels {
		for keyID, value := range staged.Properties {
			pk := propKey{label, keyID}
			idx, ok := m.props[pk]
			if !ok || !idx.unique {
				continue
			}
			if !idx.checkUnique(staged.ID, encodeValueKey(value)) {
				return nexuserr.ConstraintViolation(fmt.Sprintf("unique constraint violated on label %d key %d", label, keyID))
			}
		}
	}
	return nil
}

// ApplyNode updates the label bitmap and every registered property index
// for a newly-live node (called after the Record Store write succeeds).
func (m *Manager) ApplyNode(node *types.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels.add(node.ID, node.Labels)
	for _, label := range node.Labels {
		for keyID, value := range node.Properties {
			if idx, ok := m.props[propKey{label, keyID}]; ok {
				idx.put(node.ID, value)
			}
		}
	}
}

// RemoveNode retracts node from every index that references it.
func (m *Manager) RemoveNode(node *types.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels.remove(node.ID, node.Labels)
	for _, label := range node.Labels {
		for keyID := range node.Properties {
			if idx, ok := m.props[propKey{label, keyID}]; ok {
				idx.remove(node.ID)
			}
		}
	}
	for _, v := range m.vectors {
		v.Remove(node.ID)
	}
}

// ApplyRel updates the relationship-type bitmap for a newly-live edge.
func (m *Manager) ApplyRel(rel *types.Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types.add(rel.ID, rel.Type)
}

// RemoveRel retracts rel from the relationship-type bitmap.
func (m *Manager) RemoveRel(rel *types.Relationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types.remove(rel.ID, rel.Type)
}

// ScanLabel returns every live node id carrying label, used by the
// NodeByLabelScan physical operator.
func (m *Manager) ScanLabel(label types.LabelID) []types.NodeID {
	return m.labels.scan(label)
}

// SeekEqual returns nodes of label with key equal to value, via the
// PropertyIndexSeek operator. Returns (nil, false) if no index exists for
// (label, key), meaning the Planner should have picked a scan instead.
func (m *Manager) SeekEqual(label types.LabelID, key types.KeyID, value types.Value) ([]types.NodeID, bool) {
	m.mu.RLock()
	idx, ok := m.props[propKey{label, key}]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return idx.seekEqual(value), true
}

// SeekRange returns nodes of label with key in [lo, hi).
func (m *Manager) SeekRange(label types.LabelID, key types.KeyID, lo, hi *types.Value) ([]types.NodeID, bool) {
	m.mu.RLock()
	idx, ok := m.props[propKey{label, key}]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return idx.seekRange(lo, hi), true
}

// HasPropertyIndex reports whether (label, key) has a registered B-tree,
// used by the Planner to decide between PropertyIndexSeek and a scan.
func (m *Manager) HasPropertyIndex(label types.LabelID, key types.KeyID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.props[propKey{label, key}]
	return ok
}
