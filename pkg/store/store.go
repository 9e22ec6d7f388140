package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/nexusdb/nexus/pkg/log"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
	"github.com/rs/zerolog"
)

const (
	defaultNodeCap  = 4096
	defaultRelCap   = 4096
	growthFactor    = 2
	propsInitialCap = 1 << 16 // 64KiB of headroom before the first reflow
)

// Options configures a newly opened Store.
type Options struct {
	InitialNodeCap uint64
	InitialRelCap  uint64
}

// Store is the Record Store: memory-mapped fixed-width node and
// relationship slot arrays plus an out-of-line properties region, all in
// one file.
type Store struct {
	mu sync.RWMutex

	path string
	file *os.File
	mm   mmap.MMap

	hdr header

	nodeCap  uint64
	relCap   uint64
	propsCap uint64 // total bytes reserved for the properties region
	propsEnd uint64 // next write offset, relative to start of properties region

	logger zerolog.Logger
}

func nodeRegionOffset() uint64 { return headerTotalSize }
func (s *Store) relRegionOffset() uint64 {
	return nodeRegionOffset() + s.nodeCap*nodeRecordSize
}
func (s *Store) propsRegionOffset() uint64 {
	return s.relRegionOffset() + s.relCap*relRecordSize
}
func (s *Store) totalSize() uint64 {
	return s.propsRegionOffset() + s.propsCap
}

// Open opens (creating if absent) the record store file at path.
func Open(path string, opts Options) (*Store, error) {
	nodeCap := opts.InitialNodeCap
	if nodeCap == 0 {
		nodeCap = defaultNodeCap
	}
	relCap := opts.InitialRelCap
	if relCap == 0 {
		relCap = defaultRelCap
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open store.dat: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat store.dat: %w", err)
	}

	s := &Store{
		path:     path,
		file:     file,
		nodeCap:  nodeCap,
		relCap:   relCap,
		propsCap: propsInitialCap,
		logger:   log.WithComponent("store"),
	}

	if info.Size() == 0 {
		if err := s.initEmpty(); err != nil {
			file.Close()
			return nil, err
		}
	} else if err := s.mapExisting(); err != nil {
		file.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initEmpty() error {
	if err := s.file.Truncate(int64(s.totalSize())); err != nil {
		return fmt.Errorf("allocate store.dat: %w", err)
	}
	mm, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmap store.dat: %w", err)
	}
	s.mm = mm
	s.hdr = header{
		NodeFreeHead: types.NilID,
		RelFreeHead:  types.NilID,
		NodeCap:      s.nodeCap,
		RelCap:       s.relCap,
		PropsCap:     s.propsCap,
	}
	s.propsEnd = 0
	s.writeHeader()
	return mm.Flush()
}

// mapExisting reads the two header copies from an existing file to recover
// the committed counts and the node/relationship/properties capacities,
// checks that the file is at least as large as those capacities imply, then
// maps it.
func (s *Store) mapExisting() error {
	raw := make([]byte, headerTotalSize)
	if _, err := s.file.ReadAt(raw, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	hdr, ok := pickHeader(raw[:headerCopySize], raw[headerCopySize:])
	if !ok {
		return nexuserr.StoreCorrupt("both header copies invalid", nil)
	}
	s.hdr = hdr
	s.nodeCap = hdr.NodeCap
	s.relCap = hdr.RelCap
	s.propsCap = hdr.PropsCap

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat store.dat: %w", err)
	}
	if s.totalSize() > uint64(info.Size()) {
		return nexuserr.StoreCorrupt("store.dat smaller than header implies", nil)
	}

	mm, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("mmap store.dat: %w", err)
	}
	s.mm = mm
	s.propsEnd = s.scanPropsEnd()
	return nil
}

// scanPropsEnd recomputes the properties write cursor as the maximum
// (offset+encoded-length) referenced by any in-use record, since the
// cursor itself isn't persisted in the header.
func (s *Store) scanPropsEnd() uint64 {
	var maxEnd uint64
	for i := uint64(1); i < s.nodeCap; i++ {
		r := s.readNode(types.NodeID(i))
		if r.inUse() && r.PropOffset != 0 {
			if end := r.PropOffset + propsBlobLen(s.propsBytesAt(r.PropOffset)); end > maxEnd {
				maxEnd = end
			}
		}
	}
	for i := uint64(1); i < s.relCap; i++ {
		r := s.readRel(types.RelID(i))
		if r.inUse() && r.PropOffset != 0 {
			if end := r.PropOffset + propsBlobLen(s.propsBytesAt(r.PropOffset)); end > maxEnd {
				maxEnd = end
			}
		}
	}
	return maxEnd
}

// Close flushes and unmaps the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mm.Flush(); err != nil {
		return fmt.Errorf("flush store.dat: %w", err)
	}
	if err := s.mm.Unmap(); err != nil {
		return fmt.Errorf("unmap store.dat: %w", err)
	}
	return s.file.Close()
}

// Snapshot returns a point-in-time copy of the whole backing file (header,
// node/relationship slot arrays, properties region) for a replication full
// sync. The caller must not assume it reflects any particular LSN beyond
// "no later than the moment Snapshot returned."
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.mm))
	copy(out, s.mm)
	return out, nil
}

func (s *Store) writeHeader() {
	buf := encodeHeader(s.hdr)
	copy(s.mm[0:headerCopySize], buf)
	copy(s.mm[headerCopySize:headerTotalSize], buf)
}

// Flush fsyncs the backing file and atomically publishes lastAppliedLSN in
// both header copies, per spec 4.2's header double-write scheme.
func (s *Store) Flush(throughLSN uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hdr.LastAppliedLSN = throughLSN
	s.writeHeader()
	if err := s.mm.Flush(); err != nil {
		return nexuserr.IoError("flush store.dat", err)
	}
	return nil
}

// LastAppliedLSN returns the LSN through which the store is known durable.
func (s *Store) LastAppliedLSN() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hdr.LastAppliedLSN
}

// Stats reports the live record counts used by Engine.stats() (spec 6).
func (s *Store) Stats() (nodeCount, relCount uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hdr.NodeCount, s.hdr.RelCount
}
