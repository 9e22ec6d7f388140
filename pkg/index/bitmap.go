package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/nexusdb/nexus/pkg/types"
)

// labelIndex holds one compressed bitmap of live node ids per label,
// answering NodeByLabelScan and the label_cardinality statistic.
type labelIndex struct {
	mu      sync.RWMutex
	bitmaps map[types.LabelID]*roaring64.Bitmap
}

func newLabelIndex() *labelIndex {
	return &labelIndex{bitmaps: make(map[types.LabelID]*roaring64.Bitmap)}
}

func (li *labelIndex) bitmapFor(label types.LabelID) *roaring64.Bitmap {
	b, ok := li.bitmaps[label]
	if !ok {
		b = roaring64.New()
		li.bitmaps[label] = b
	}
	return b
}

func (li *labelIndex) add(node types.NodeID, labels []types.LabelID) {
	li.mu.Lock()
	defer li.mu.Unlock()
	for _, l := range labels {
		li.bitmapFor(l).Add(uint64(node))
	}
}

func (li *labelIndex) remove(node types.NodeID, labels []types.LabelID) {
	li.mu.Lock()
	defer li.mu.Unlock()
	for _, l := range labels {
		if b, ok := li.bitmaps[l]; ok {
			b.Remove(uint64(node))
		}
	}
}

// scan returns every node id carrying label, in ascending order.
func (li *labelIndex) scan(label types.LabelID) []types.NodeID {
	li.mu.RLock()
	defer li.mu.RUnlock()
	b, ok := li.bitmaps[label]
	if !ok {
		return nil
	}
	out := make([]types.NodeID, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, types.NodeID(it.Next()))
	}
	return out
}

func (li *labelIndex) cardinality(label types.LabelID) uint64 {
	li.mu.RLock()
	defer li.mu.RUnlock()
	b, ok := li.bitmaps[label]
	if !ok {
		return 0
	}
	return b.GetCardinality()
}

// typeIndex is the relationship-type analogue of labelIndex, used for
// type_cardinality and avg_out_degree statistics.
type typeIndex struct {
	mu      sync.RWMutex
	bitmaps map[types.TypeID]*roaring64.Bitmap
}

func newTypeIndex() *typeIndex {
	return &typeIndex{bitmaps: make(map[types.TypeID]*roaring64.Bitmap)}
}

func (ti *typeIndex) add(rel types.RelID, typ types.TypeID) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	b, ok := ti.bitmaps[typ]
	if !ok {
		b = roaring64.New()
		ti.bitmaps[typ] = b
	}
	b.Add(uint64(rel))
}

func (ti *typeIndex) remove(rel types.RelID, typ types.TypeID) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if b, ok := ti.bitmaps[typ]; ok {
		b.Remove(uint64(rel))
	}
}

func (ti *typeIndex) cardinality(typ types.TypeID) uint64 {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	b, ok := ti.bitmaps[typ]
	if !ok {
		return 0
	}
	return b.GetCardinality()
}
