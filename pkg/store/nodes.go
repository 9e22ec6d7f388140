package store

import (
	"fmt"

	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
)

func (s *Store) nodeOffset(id types.NodeID) uint64 {
	return nodeRegionOffset() + uint64(id)*nodeRecordSize
}

func (s *Store) readNode(id types.NodeID) nodeRecord {
	off := s.nodeOffset(id)
	return decodeNodeRecord(s.mm[off : off+nodeRecordSize])
}

func (s *Store) writeNode(id types.NodeID, r nodeRecord) {
	off := s.nodeOffset(id)
	encodeNodeRecord(r, s.mm[off:off+nodeRecordSize])
}

// allocNode pops a slot off the node free list, growing the node region if
// the list is empty and the array is full.
func (s *Store) allocNode() (types.NodeID, error) {
	if s.hdr.NodeFreeHead != types.NilID {
		id := types.NodeID(s.hdr.NodeFreeHead)
		r := s.readNode(id)
		s.hdr.NodeFreeHead = r.OutHead // free-list overlay
		s.hdr.NodeCount++
		return id, nil
	}

	next := s.hdr.NodeCount + 1 // slot 0 reserved as sentinel
	if next >= s.nodeCap {
		if err := s.growNodeCap(); err != nil {
			return 0, err
		}
	}
	s.hdr.NodeCount++
	return types.NodeID(next), nil
}

func (s *Store) freeNode(id types.NodeID) {
	r := nodeRecord{Status: 0, OutHead: s.hdr.NodeFreeHead}
	s.writeNode(id, r)
	s.hdr.NodeFreeHead = uint64(id)
}

// ApplyNode applies a staged node operation to the store: a create (ID ==
// NilID), a property/label update, or a delete. It is the Transaction
// Manager's commit-time hook into the Record Store (spec 4.4 step 4).
func (s *Store) ApplyNode(staged *types.StagedNode, lsn uint64) (types.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if staged.Deleted {
		r := s.readNode(staged.ID)
		if !r.inUse() {
			return staged.ID, nexuserr.NotFound(fmt.Sprintf("node %d not live", staged.ID))
		}
		s.freeNode(staged.ID)
		s.hdr.NodeCount--
		return staged.ID, nil
	}

	propOffset, err := s.writeProps(staged.Properties)
	if err != nil {
		return 0, err
	}

	if staged.ID == types.NilID {
		id, err := s.allocNode()
		if err != nil {
			return 0, err
		}
		r := nodeRecord{
			Status:      statusInUse,
			LabelCount:  byte(min(len(staged.Labels), maxInlineLabel)),
			PropOffset:  propOffset,
			CreatingLSN: lsn,
		}
		for i := 0; i < len(staged.Labels) && i < maxInlineLabel; i++ {
			r.Labels[i] = uint32(staged.Labels[i])
		}
		s.writeNode(id, r)
		return id, nil
	}

	r := s.readNode(staged.ID)
	if !r.inUse() {
		return staged.ID, nexuserr.NotFound(fmt.Sprintf("node %d not live", staged.ID))
	}
	r.LabelCount = byte(min(len(staged.Labels), maxInlineLabel))
	r.Labels = [maxInlineLabel]uint32{}
	for i := 0; i < len(staged.Labels) && i < maxInlineLabel; i++ {
		r.Labels[i] = uint32(staged.Labels[i])
	}
	r.PropOffset = propOffset
	s.writeNode(staged.ID, r)
	return staged.ID, nil
}

// GetNode returns the live node at id, or NotFound if its slot is free.
func (s *Store) GetNode(id types.NodeID) (*types.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.readNode(id)
	if !r.inUse() {
		return nil, nexuserr.NotFound(fmt.Sprintf("node %d not live", id))
	}
	props, err := s.readPropsAt(r.PropOffset)
	if err != nil {
		return nil, err
	}
	labels := make([]types.LabelID, r.LabelCount)
	for i := byte(0); i < r.LabelCount; i++ {
		labels[i] = types.LabelID(r.Labels[i])
	}
	return &types.Node{
		ID:         id,
		Labels:     labels,
		Properties: props,
		OutHead:    types.RelID(r.OutHead),
		InHead:     types.RelID(r.InHead),
	}, nil
}

// AllNodeIDs returns the ids of every live node, in slot order.
func (s *Store) AllNodeIDs() []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.NodeID
	for i := uint64(1); i < s.nodeCap; i++ {
		id := types.NodeID(i)
		if id == types.NilID {
			continue
		}
		if s.readNode(id).inUse() {
			out = append(out, id)
		}
	}
	return out
}
