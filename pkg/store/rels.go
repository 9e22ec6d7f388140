package store

import (
	"fmt"

	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
)

func (s *Store) relOffset(id types.RelID) uint64 {
	return s.relRegionOffset() + uint64(id)*relRecordSize
}

func (s *Store) readRel(id types.RelID) relRecord {
	off := s.relOffset(id)
	return decodeRelRecord(s.mm[off : off+relRecordSize])
}

func (s *Store) writeRel(id types.RelID, r relRecord) {
	off := s.relOffset(id)
	encodeRelRecord(r, s.mm[off:off+relRecordSize])
}

func (s *Store) allocRel() (types.RelID, error) {
	if s.hdr.RelFreeHead != types.NilID {
		id := types.RelID(s.hdr.RelFreeHead)
		r := s.readRel(id)
		s.hdr.RelFreeHead = r.Source // free-list overlay
		s.hdr.RelCount++
		return id, nil
	}

	next := s.hdr.RelCount + 1
	if next >= s.relCap {
		if err := s.growRelCap(); err != nil {
			return 0, err
		}
	}
	s.hdr.RelCount++
	return types.RelID(next), nil
}

func (s *Store) freeRel(id types.RelID) {
	r := relRecord{Status: 0, Source: s.hdr.RelFreeHead}
	s.writeRel(id, r)
	s.hdr.RelFreeHead = uint64(id)
}

// spliceOut threads rel onto the head of src's outgoing chain.
func (s *Store) spliceOut(src types.NodeID, rel types.RelID) {
	n := s.readNode(src)
	oldHead := n.OutHead
	n.OutHead = uint64(rel)
	s.writeNode(src, n)

	if oldHead != 0 {
		old := s.readRel(types.RelID(oldHead))
		old.PrevOutSrc = uint64(rel)
		s.writeRel(types.RelID(oldHead), old)
	}

	r := s.readRel(rel)
	r.NextOutSrc = oldHead
	r.PrevOutSrc = 0
	s.writeRel(rel, r)
}

// spliceIn threads rel onto the head of dst's incoming chain.
func (s *Store) spliceIn(dst types.NodeID, rel types.RelID) {
	n := s.readNode(dst)
	oldHead := n.InHead
	n.InHead = uint64(rel)
	s.writeNode(dst, n)

	if oldHead != 0 {
		old := s.readRel(types.RelID(oldHead))
		old.PrevInDst = uint64(rel)
		s.writeRel(types.RelID(oldHead), old)
	}

	r := s.readRel(rel)
	r.NextInDst = oldHead
	r.PrevInDst = 0
	s.writeRel(rel, r)
}

// unspliceOut removes rel from its source's outgoing chain.
func (s *Store) unspliceOut(src types.NodeID, rel types.RelID) {
	r := s.readRel(rel)
	if r.PrevOutSrc != 0 {
		prev := s.readRel(types.RelID(r.PrevOutSrc))
		prev.NextOutSrc = r.NextOutSrc
		s.writeRel(types.RelID(r.PrevOutSrc), prev)
	} else {
		n := s.readNode(src)
		n.OutHead = r.NextOutSrc
		s.writeNode(src, n)
	}
	if r.NextOutSrc != 0 {
		next := s.readRel(types.RelID(r.NextOutSrc))
		next.PrevOutSrc = r.PrevOutSrc
		s.writeRel(types.RelID(r.NextOutSrc), next)
	}
}

// unspliceIn removes rel from its target's incoming chain.
func (s *Store) unspliceIn(dst types.NodeID, rel types.RelID) {
	r := s.readRel(rel)
	if r.PrevInDst != 0 {
		prev := s.readRel(types.RelID(r.PrevInDst))
		prev.NextInDst = r.NextInDst
		s.writeRel(types.RelID(r.PrevInDst), prev)
	} else {
		n := s.readNode(dst)
		n.InHead = r.NextInDst
		s.writeNode(dst, n)
	}
	if r.NextInDst != 0 {
		next := s.readRel(types.RelID(r.NextInDst))
		next.PrevInDst = r.PrevInDst
		s.writeRel(types.RelID(r.NextInDst), next)
	}
}

// ApplyRel applies a staged relationship operation: create, update or
// delete, splicing/unsplicing the edge chains as needed.
func (s *Store) ApplyRel(staged *types.StagedRel, lsn uint64) (types.RelID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if staged.Deleted {
		r := s.readRel(staged.ID)
		if !r.inUse() {
			return staged.ID, nexuserr.NotFound(fmt.Sprintf("relationship %d not live", staged.ID))
		}
		s.unspliceOut(types.NodeID(r.Source), staged.ID)
		s.unspliceIn(types.NodeID(r.Target), staged.ID)
		s.freeRel(staged.ID)
		s.hdr.RelCount--
		return staged.ID, nil
	}

	propOffset, err := s.writeProps(staged.Properties)
	if err != nil {
		return 0, err
	}

	if staged.ID == types.NilID {
		srcRec := s.readNode(staged.Source)
		if !srcRec.inUse() {
			return 0, nexuserr.NotFound(fmt.Sprintf("source node %d not live", staged.Source))
		}
		dstRec := s.readNode(staged.Target)
		if !dstRec.inUse() {
			return 0, nexuserr.NotFound(fmt.Sprintf("target node %d not live", staged.Target))
		}

		id, err := s.allocRel()
		if err != nil {
			return 0, err
		}
		r := relRecord{
			Status:      statusInUse,
			TypeID:      uint32(staged.Type),
			Source:      uint64(staged.Source),
			Target:      uint64(staged.Target),
			PropOffset:  propOffset,
			CreatingLSN: lsn,
		}
		s.writeRel(id, r)
		s.spliceOut(staged.Source, id)
		s.spliceIn(staged.Target, id)
		return id, nil
	}

	r := s.readRel(staged.ID)
	if !r.inUse() {
		return staged.ID, nexuserr.NotFound(fmt.Sprintf("relationship %d not live", staged.ID))
	}
	r.PropOffset = propOffset
	s.writeRel(staged.ID, r)
	return staged.ID, nil
}

// GetRel returns the live relationship at id, or NotFound if its slot is free.
func (s *Store) GetRel(id types.RelID) (*types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.readRel(id)
	if !r.inUse() {
		return nil, nexuserr.NotFound(fmt.Sprintf("relationship %d not live", id))
	}
	props, err := s.readPropsAt(r.PropOffset)
	if err != nil {
		return nil, err
	}
	return &types.Relationship{
		ID:         id,
		Type:       types.TypeID(r.TypeID),
		Source:     types.NodeID(r.Source),
		Target:     types.NodeID(r.Target),
		Properties: props,
		NextOutSrc: types.RelID(r.NextOutSrc),
		PrevOutSrc: types.RelID(r.PrevOutSrc),
		NextInDst:  types.RelID(r.NextInDst),
		PrevInDst:  types.RelID(r.PrevInDst),
	}, nil
}

// WalkChain calls fn for every relationship id in node's chain for the
// given direction, following next pointers until the sentinel (0). It
// stops early if fn returns false.
func (s *Store) WalkChain(node types.NodeID, dir types.Direction, fn func(types.RelID) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.readNode(node)
	if dir == types.DirOutgoing || dir == types.DirBoth {
		for rid := n.OutHead; rid != 0; {
			if !fn(types.RelID(rid)) {
				return
			}
			rid = s.readRel(types.RelID(rid)).NextOutSrc
		}
	}
	if dir == types.DirIncoming || dir == types.DirBoth {
		for rid := n.InHead; rid != 0; {
			if !fn(types.RelID(rid)) {
				return
			}
			rid = s.readRel(types.RelID(rid)).NextInDst
		}
	}
}
