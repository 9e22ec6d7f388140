package store

import (
	"fmt"

	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
)

// writeProps appends an encoded property blob to the properties region,
// growing the store if the region is exhausted, and returns the blob's
// offset relative to the start of the region (0 is reserved to mean "no
// properties").
func (s *Store) writeProps(props map[types.KeyID]types.Value) (uint64, error) {
	if len(props) == 0 {
		return 0, nil
	}
	blob := encodeProps(props)
	for s.propsEnd+uint64(len(blob)) > s.propsCap {
		if err := s.grow(s.nodeCap, s.relCap, s.propsCap*growthFactor); err != nil {
			return 0, err
		}
	}
	off := s.propsEnd
	if off == 0 {
		off = 1 // never hand out offset 0 for a real blob
	}
	absolute := s.propsRegionOffset() + off
	copy(s.mm[absolute:], blob)
	s.propsEnd = off + uint64(len(blob))
	return off, nil
}

// propsBytesAt returns the slice of the properties region starting at the
// given relative offset, running to the end of the mapped region.
func (s *Store) propsBytesAt(offset uint64) []byte {
	absolute := s.propsRegionOffset() + offset
	if absolute >= uint64(len(s.mm)) {
		return nil
	}
	return s.mm[absolute:]
}

// readPropsAt decodes the property blob at the given relative offset.
func (s *Store) readPropsAt(offset uint64) (map[types.KeyID]types.Value, error) {
	if offset == 0 {
		return nil, nil
	}
	props, err := decodeProps(s.propsBytesAt(offset))
	if err != nil {
		return nil, nexuserr.StoreCorrupt(fmt.Sprintf("corrupt property blob at offset %d", offset), err)
	}
	return props, nil
}

// propsBlobLen reports how many bytes of raw a freshly-encoded property
// blob occupies, by decoding it and comparing consumed length.
func propsBlobLen(raw []byte) uint64 {
	before := len(raw)
	rest, err := decodePropsRemainder(raw)
	if err != nil {
		return 0
	}
	return uint64(before - len(rest))
}

// decodePropsRemainder decodes a property blob and returns whatever of raw
// was left unconsumed, used only to measure blob length during recovery.
func decodePropsRemainder(buf []byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("property blob too short")
	}
	count := int(uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24)
	buf = buf[4:]
	for i := 0; i < count; i++ {
		if len(buf) < 5 {
			return nil, fmt.Errorf("truncated property entry")
		}
		kind := types.ValueKind(buf[4])
		_, rest, err := decodeValue(kind, buf[5:])
		if err != nil {
			return nil, err
		}
		buf = rest
	}
	return buf, nil
}
