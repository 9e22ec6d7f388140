package index

import (
	"math"
	"math/rand"
	"sync"

	"github.com/nexusdb/nexus/pkg/types"
)

// Metric selects the distance function an HNSW index searches by.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

const (
	hnswM              = 16  // max neighbors per node per layer
	hnswEfConstruction = 100 // candidate list size while inserting
)

type hnswNode struct {
	id        types.NodeID
	vector    []float32
	neighbors [][]types.NodeID // neighbors[level] = neighbor ids at that level
}

// VectorIndex is an HNSW approximate k-nearest-neighbor index over a
// label's embeddings (spec 4.3's "Vector (HNSW)" kind). There is no
// third-party HNSW implementation in the example pack, so this is a
// hand-rolled but standard greedy-layered-graph construction, no different
// in shape from what the original source's (entirely stubbed) KnnIndex
// would have wrapped around a library.
type VectorIndex struct {
	mu       sync.RWMutex
	metric   Metric
	dim      int
	nodes    map[types.NodeID]*hnswNode
	entry    types.NodeID
	maxLevel int
	rng      *rand.Rand
}

// NewVectorIndex creates an empty HNSW index for vectors of the given
// dimensionality and distance metric.
func NewVectorIndex(dim int, metric Metric) *VectorIndex {
	return &VectorIndex{
		metric: metric,
		dim:    dim,
		nodes:  make(map[types.NodeID]*hnswNode),
		rng:    rand.New(rand.NewSource(1)),
	}
}

func (v *VectorIndex) distance(a, b []float32) float64 {
	switch v.metric {
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i] - b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default: // cosine distance = 1 - cosine similarity
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	}
}

func (v *VectorIndex) randomLevel() int {
	level := 0
	for v.rng.Float64() < 1.0/hnswM && level < 32 {
		level++
	}
	return level
}

// Insert adds or replaces the embedding for node. Dimension mismatch is a
// caller error (checked by the Planner/Engine before reaching here).
func (v *VectorIndex) Insert(node types.NodeID, vector []float32) {
	v.mu.Lock()
	defer v.mu.Unlock()

	level := v.randomLevel()
	n := &hnswNode{id: node, vector: vector, neighbors: make([][]types.NodeID, level+1)}

	if len(v.nodes) == 0 {
		v.nodes[node] = n
		v.entry = node
		v.maxLevel = level
		return
	}

	entry := v.entry
	for l := v.maxLevel; l > level; l-- {
		entry = v.greedyClosest(entry, vector, l)
	}

	for l := min(level, v.maxLevel); l >= 0; l-- {
		candidates := v.searchLayer(vector, entry, hnswEfConstruction, l)
		neighbors := v.selectNeighbors(candidates, hnswM)
		n.neighbors[l] = neighbors
		for _, nb := range neighbors {
			other := v.nodes[nb]
			if l < len(other.neighbors) {
				other.neighbors[l] = v.selectNeighbors(append(append([]types.NodeID{}, other.neighbors[l]...), node), hnswM)
			}
		}
		if len(candidates) > 0 {
			entry = candidates[0].id
		}
	}

	v.nodes[node] = n
	if level > v.maxLevel {
		v.maxLevel = level
		v.entry = node
	}
}

// Remove drops node from the index. Its neighbors are left to self-heal on
// the next search (stale edges are filtered by nodes-map membership).
func (v *VectorIndex) Remove(node types.NodeID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.nodes, node)
	if v.entry == node {
		for id := range v.nodes {
			v.entry = id
			break
		}
	}
}

type candidate struct {
	id   types.NodeID
	dist float64
}

func (v *VectorIndex) greedyClosest(from types.NodeID, query []float32, level int) types.NodeID {
	best := from
	bestDist := v.distance(v.nodes[from].vector, query)
	improved := true
	for improved {
		improved = false
		n := v.nodes[best]
		if level >= len(n.neighbors) {
			break
		}
		for _, nb := range n.neighbors[level] {
			other, ok := v.nodes[nb]
			if !ok {
				continue
			}
			if d := v.distance(other.vector, query); d < bestDist {
				bestDist, best, improved = d, nb, true
			}
		}
	}
	return best
}

// searchLayer visits every node reachable from entry at the given level
// (breadth-first, no beam bound) and returns the ef nearest of them,
// sorted nearest-first.
func (v *VectorIndex) searchLayer(query []float32, entry types.NodeID, ef int, level int) []candidate {
	visited := map[types.NodeID]bool{entry: true}
	startDist := v.distance(v.nodes[entry].vector, query)
	found := []candidate{{entry, startDist}}
	frontier := []candidate{{entry, startDist}}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]

		n, ok := v.nodes[cur.id]
		if !ok || level >= len(n.neighbors) {
			continue
		}
		for _, nb := range n.neighbors[level] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			other, ok := v.nodes[nb]
			if !ok {
				continue
			}
			d := v.distance(other.vector, query)
			found = append(found, candidate{nb, d})
			frontier = append(frontier, candidate{nb, d})
		}
	}

	sortCandidates(found)
	if len(found) > ef {
		found = found[:ef]
	}
	return found
}

func (v *VectorIndex) selectNeighbors(candidates []candidate, m int) []types.NodeID {
	sortCandidates(candidates)
	if len(candidates) > m {
		candidates = candidates[:m]
	}
	out := make([]types.NodeID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

func sortCandidates(c []candidate) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j].dist < c[j-1].dist; j-- {
			c[j], c[j-1] = c[j-1], c[j]
		}
	}
}

// SearchKNN returns up to k nearest neighbors of query, nearest first.
func (v *VectorIndex) SearchKNN(query []float32, k int) []types.NodeID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.nodes) == 0 {
		return nil
	}

	entry := v.entry
	for l := v.maxLevel; l > 0; l-- {
		entry = v.greedyClosest(entry, query, l)
	}

	candidates := v.searchLayer(query, entry, max(k, hnswEfConstruction), 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]types.NodeID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}
