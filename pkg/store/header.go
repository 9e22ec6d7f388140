package store

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	headerMagic    = 0x4E584853 // "NXHS"
	headerVersion  = 1
	headerBodySize = 4 + 4 + 8 + 8 + 8 + 8 + 8 + 8 + 8 + 8 // magic,version,nodeCount,relCount,nodeFreeHead,relFreeHead,lastAppliedLSN,nodeCap,relCap,propsCap
	headerCopySize  = headerBodySize + 4                  // + crc32
	headerTotalSize = headerCopySize * 2
)

// header is Nexus's Record Store superblock: counts, free-list heads, the
// last LSN fully applied to this file, and the capacity of each region (so
// recovery can re-derive exact file offsets without guessing at the caller's
// original Options). It is written as two copies so that a crash mid-write
// of one leaves the other intact; recovery trusts whichever copy has a
// valid CRC and the higher LSN. writeHeader fills both copies with the same
// bytes, so two valid copies normally tie, and copy A is then used.
type header struct {
	NodeCount      uint64
	RelCount       uint64
	NodeFreeHead   uint64 // NilID (0) means empty
	RelFreeHead    uint64
	LastAppliedLSN uint64
	NodeCap        uint64
	RelCap         uint64
	PropsCap       uint64
}

func encodeHeader(h header) []byte {
	buf := make([]byte, headerBodySize)
	binary.LittleEndian.PutUint32(buf[0:], headerMagic)
	binary.LittleEndian.PutUint32(buf[4:], headerVersion)
	binary.LittleEndian.PutUint64(buf[8:], h.NodeCount)
	binary.LittleEndian.PutUint64(buf[16:], h.RelCount)
	binary.LittleEndian.PutUint64(buf[24:], h.NodeFreeHead)
	binary.LittleEndian.PutUint64(buf[32:], h.RelFreeHead)
	binary.LittleEndian.PutUint64(buf[40:], h.LastAppliedLSN)
	binary.LittleEndian.PutUint64(buf[48:], h.NodeCap)
	binary.LittleEndian.PutUint64(buf[56:], h.RelCap)
	binary.LittleEndian.PutUint64(buf[64:], h.PropsCap)
	crc := crc32.ChecksumIEEE(buf)
	out := make([]byte, headerCopySize)
	copy(out, buf)
	binary.LittleEndian.PutUint32(out[headerBodySize:], crc)
	return out
}

// decodeHeader validates the CRC of a single header copy, returning ok=false
// if the copy is torn or was never written (all zero, magic mismatch).
func decodeHeader(buf []byte) (h header, ok bool) {
	if len(buf) < headerCopySize {
		return header{}, false
	}
	body := buf[:headerBodySize]
	wantCRC := binary.LittleEndian.Uint32(buf[headerBodySize:headerCopySize])
	if crc32.ChecksumIEEE(body) != wantCRC {
		return header{}, false
	}
	if binary.LittleEndian.Uint32(body[0:]) != headerMagic {
		return header{}, false
	}
	h.NodeCount = binary.LittleEndian.Uint64(body[8:])
	h.RelCount = binary.LittleEndian.Uint64(body[16:])
	h.NodeFreeHead = binary.LittleEndian.Uint64(body[24:])
	h.RelFreeHead = binary.LittleEndian.Uint64(body[32:])
	h.LastAppliedLSN = binary.LittleEndian.Uint64(body[40:])
	h.NodeCap = binary.LittleEndian.Uint64(body[48:])
	h.RelCap = binary.LittleEndian.Uint64(body[56:])
	h.PropsCap = binary.LittleEndian.Uint64(body[64:])
	return h, true
}

// pickHeader chooses the newer valid copy of the two, preferring a over b
// only when a is valid and (b is invalid or a's LSN is not lower).
func pickHeader(a, b []byte) (header, bool) {
	ha, aok := decodeHeader(a)
	hb, bok := decodeHeader(b)
	switch {
	case aok && bok:
		if ha.LastAppliedLSN >= hb.LastAppliedLSN {
			return ha, true
		}
		return hb, true
	case aok:
		return ha, true
	case bok:
		return hb, true
	default:
		return header{}, false
	}
}
