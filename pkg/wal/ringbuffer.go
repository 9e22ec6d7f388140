package wal

import (
	"sync"

	"github.com/nexusdb/nexus/pkg/types"
)

// ringBuffer holds up to MaxReplicationLogSize recent entries in memory so
// a reconnecting replica within that window can resume by tailing rather
// than full-syncing (spec 4.5's "circular buffer" requirement).
type ringBuffer struct {
	mu      sync.RWMutex
	entries []types.WALEntry
	cap     int
	start   int // index of the oldest entry within entries
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity}
}

func (r *ringBuffer) push(e types.WALEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) < r.cap {
		r.entries = append(r.entries, e)
		return
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % r.cap
}

// oldestLSN returns the LSN of the oldest entry still retained, or 0 if
// the buffer is empty.
func (r *ringBuffer) oldestLSN() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return 0
	}
	if len(r.entries) < r.cap {
		return r.entries[0].LSN
	}
	return r.entries[r.start].LSN
}

// since returns every retained entry with LSN > lastLSN, in LSN order, or
// ok=false if lastLSN has already fallen out of the retained window (the
// caller must full-sync instead).
func (r *ringBuffer) since(lastLSN uint64) (out []types.WALEntry, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return nil, true
	}
	oldest := r.entries[r.start%len(r.entries)].LSN
	if len(r.entries) == r.cap && lastLSN+1 < oldest {
		return nil, false
	}

	n := len(r.entries)
	for i := 0; i < n; i++ {
		idx := (r.start + i) % n
		if len(r.entries) < r.cap {
			idx = i
		}
		e := r.entries[idx]
		if e.LSN > lastLSN {
			out = append(out, e)
		}
	}
	return out, true
}
