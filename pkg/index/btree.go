package index

import (
	"bytes"
	"sync"

	"github.com/google/btree"
	"github.com/nexusdb/nexus/pkg/types"
)

const btreeDegree = 32

// propEntry is one (encoded value, node) pair in a property B-tree. Node
// breaks ties between equal-valued entries so the tree stays a proper set.
type propEntry struct {
	Key  []byte
	Node types.NodeID
}

func lessPropEntry(a, b propEntry) bool {
	if c := bytes.Compare(a.Key, b.Key); c != 0 {
		return c < 0
	}
	return a.Node < b.Node
}

// propertyIndex is the B-tree for one (label, key) pair: an ordered map
// from property value to the set of nodes holding that value, supporting
// equality and range lookups (spec 4.3).
type propertyIndex struct {
	mu       sync.RWMutex
	tree     *btree.BTreeG[propEntry]
	unique   bool
	valueOf  map[types.NodeID][]byte // last-known encoded value, to remove on update
}

func newPropertyIndex(unique bool) *propertyIndex {
	return &propertyIndex{
		tree:    btree.NewG(btreeDegree, lessPropEntry),
		unique:  unique,
		valueOf: make(map[types.NodeID][]byte),
	}
}

// checkUnique reports whether inserting value for node would violate a
// unique constraint (some other node already holds this value).
func (p *propertyIndex) checkUnique(node types.NodeID, value []byte) bool {
	if !p.unique {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	ok := true
	p.tree.AscendRange(propEntry{Key: value}, propEntry{Key: append(append([]byte{}, value...), 0xFF)}, func(e propEntry) bool {
		if bytes.Equal(e.Key, value) && e.Node != node {
			ok = false
			return false
		}
		return true
	})
	return ok
}

func (p *propertyIndex) put(node types.NodeID, v types.Value) {
	key := encodeValueKey(v)
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.valueOf[node]; ok {
		p.tree.Delete(propEntry{Key: old, Node: node})
	}
	p.tree.ReplaceOrInsert(propEntry{Key: key, Node: node})
	p.valueOf[node] = key
}

func (p *propertyIndex) remove(node types.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old, ok := p.valueOf[node]
	if !ok {
		return
	}
	p.tree.Delete(propEntry{Key: old, Node: node})
	delete(p.valueOf, node)
}

// seekEqual returns every node holding exactly value.
func (p *propertyIndex) seekEqual(v types.Value) []types.NodeID {
	key := encodeValueKey(v)
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []types.NodeID
	upper := append(append([]byte{}, key...), 0xFF)
	p.tree.AscendRange(propEntry{Key: key}, propEntry{Key: upper}, func(e propEntry) bool {
		if bytes.Equal(e.Key, key) {
			out = append(out, e.Node)
		}
		return true
	})
	return out
}

// seekRange returns every node whose value falls in [lo, hi) (either bound
// may be nil to mean unbounded).
func (p *propertyIndex) seekRange(lo, hi *types.Value) []types.NodeID {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []types.NodeID
	visit := func(e propEntry) bool {
		if hi != nil && compareValueKeys(e.Key, encodeValueKey(*hi)) >= 0 {
			return false
		}
		out = append(out, e.Node)
		return true
	}
	if lo != nil {
		p.tree.AscendRange(propEntry{Key: encodeValueKey(*lo)}, propEntry{Key: []byte{0xFF}}, visit)
	} else {
		p.tree.Ascend(visit)
	}
	return out
}
