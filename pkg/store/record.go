package store

import "encoding/binary"

// Fixed sizes, in bytes. Both records are padded to a multiple of 4 to
// keep field offsets simple; neither needs to be exactly 64 to satisfy
// the spec's "cache-line sized" guidance, which is a target, not a law.
const (
	nodeRecordSize = 64
	relRecordSize  = 72
	maxInlineLabel = 6
)

const statusInUse = 1 << 0

// nodeRecord is the fixed-width on-disk shape of a node. Field layout:
//
//	status(1) labelCount(1) pad(2) labels(6*4) outHead(8) inHead(8)
//	propOffset(8) creatingLSN(8)
//
// When status&statusInUse==0, outHead instead holds the next-free slot id
// (the free-list overlay described in spec 4.2).
type nodeRecord struct {
	Status      byte
	LabelCount  byte
	Labels      [maxInlineLabel]uint32
	OutHead     uint64
	InHead      uint64
	PropOffset  uint64
	CreatingLSN uint64
}

func (r nodeRecord) inUse() bool { return r.Status&statusInUse != 0 }

func encodeNodeRecord(r nodeRecord, buf []byte) {
	buf[0] = r.Status
	buf[1] = r.LabelCount
	buf[2], buf[3] = 0, 0
	off := 4
	for i := 0; i < maxInlineLabel; i++ {
		binary.LittleEndian.PutUint32(buf[off:], r.Labels[i])
		off += 4
	}
	binary.LittleEndian.PutUint64(buf[off:], r.OutHead)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.InHead)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.PropOffset)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.CreatingLSN)
}

func decodeNodeRecord(buf []byte) nodeRecord {
	var r nodeRecord
	r.Status = buf[0]
	r.LabelCount = buf[1]
	off := 4
	for i := 0; i < maxInlineLabel; i++ {
		r.Labels[i] = binary.LittleEndian.Uint32(buf[off:])
		off += 4
	}
	r.OutHead = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.InHead = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.PropOffset = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.CreatingLSN = binary.LittleEndian.Uint64(buf[off:])
	return r
}

// relRecord is the fixed-width on-disk shape of a relationship. Field
// layout: status(1) pad(3) typeID(4) source(8) target(8) nextOutSrc(8)
// prevOutSrc(8) nextInDst(8) prevInDst(8) propOffset(8) creatingLSN(8).
//
// When status&statusInUse==0, source instead holds the next-free slot id.
type relRecord struct {
	Status      byte
	TypeID      uint32
	Source      uint64
	Target      uint64
	NextOutSrc  uint64
	PrevOutSrc  uint64
	NextInDst   uint64
	PrevInDst   uint64
	PropOffset  uint64
	CreatingLSN uint64
}

func (r relRecord) inUse() bool { return r.Status&statusInUse != 0 }

func encodeRelRecord(r relRecord, buf []byte) {
	buf[0] = r.Status
	buf[1], buf[2], buf[3] = 0, 0, 0
	binary.LittleEndian.PutUint32(buf[4:], r.TypeID)
	off := 8
	for _, v := range []uint64{r.Source, r.Target, r.NextOutSrc, r.PrevOutSrc, r.NextInDst, r.PrevInDst, r.PropOffset, r.CreatingLSN} {
		binary.LittleEndian.PutUint64(buf[off:], v)
		off += 8
	}
}

func decodeRelRecord(buf []byte) relRecord {
	var r relRecord
	r.Status = buf[0]
	r.TypeID = binary.LittleEndian.Uint32(buf[4:])
	off := 8
	vals := make([]uint64, 8)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	r.Source, r.Target = vals[0], vals[1]
	r.NextOutSrc, r.PrevOutSrc = vals[2], vals[3]
	r.NextInDst, r.PrevInDst = vals[4], vals[5]
	r.PropOffset, r.CreatingLSN = vals[6], vals[7]
	return r
}
