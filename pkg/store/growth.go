package store

import (
	"fmt"

	mmap "github.com/edsrzf/mmap-go"
)

// grow reflows store.dat into a larger layout: the node, relationship and
// properties regions can each only grow at their own end while they sit in
// the middle of the file, so growing any one of them means copying the
// regions after it forward. This only runs when a region's preallocated
// capacity is exhausted, which amortizes to rare with the doubling growth
// factor used by growNodeCap/growRelCap/writeProps.
func (s *Store) grow(newNodeCap, newRelCap, newPropsCap uint64) error {
	oldNodeBytes := make([]byte, s.nodeCap*nodeRecordSize)
	copy(oldNodeBytes, s.mm[nodeRegionOffset():s.relRegionOffset()])

	oldRelBytes := make([]byte, s.relCap*relRecordSize)
	copy(oldRelBytes, s.mm[s.relRegionOffset():s.propsRegionOffset()])

	oldPropsBytes := make([]byte, s.propsEnd)
	copy(oldPropsBytes, s.mm[s.propsRegionOffset():s.propsRegionOffset()+s.propsEnd])

	if err := s.mm.Flush(); err != nil {
		return fmt.Errorf("flush before reflow: %w", err)
	}
	if err := s.mm.Unmap(); err != nil {
		return fmt.Errorf("unmap before reflow: %w", err)
	}

	s.nodeCap, s.relCap, s.propsCap = newNodeCap, newRelCap, newPropsCap
	s.hdr.NodeCap, s.hdr.RelCap, s.hdr.PropsCap = newNodeCap, newRelCap, newPropsCap

	if err := s.file.Truncate(int64(s.totalSize())); err != nil {
		return fmt.Errorf("grow store.dat: %w", err)
	}
	mm, err := mmap.Map(s.file, mmap.RDWR, 0)
	if err != nil {
		return fmt.Errorf("remap store.dat after reflow: %w", err)
	}
	s.mm = mm

	s.writeHeader()
	copy(s.mm[nodeRegionOffset():], oldNodeBytes)
	copy(s.mm[s.relRegionOffset():], oldRelBytes)
	copy(s.mm[s.propsRegionOffset():], oldPropsBytes)

	s.logger.Debug().
		Uint64("node_cap", newNodeCap).Uint64("rel_cap", newRelCap).Uint64("props_cap", newPropsCap).
		Msg("reflowed store.dat to a larger layout")
	return s.mm.Flush()
}

func (s *Store) growNodeCap() error {
	return s.grow(s.nodeCap*growthFactor, s.relCap, s.propsCap)
}

func (s *Store) growRelCap() error {
	return s.grow(s.nodeCap, s.relCap*growthFactor, s.propsCap)
}
