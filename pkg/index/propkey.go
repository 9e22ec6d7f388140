package index

import (
	"bytes"
	"math"

	"github.com/nexusdb/nexus/pkg/types"
)

// encodeValueKey renders v as an order-preserving byte string: a one-byte
// kind tag (so different kinds never compare equal or interleave) followed
// by kind-specific bytes chosen so that, within one kind, byte-comparison
// matches pkg/operator's CompareValues (ints/floats sign-folded to
// big-endian-comparable form, strings compared raw). Across kinds the
// order is by kind tag alone: unlike CompareValues, an int and a float
// are never promoted, so IntValue(2) and FloatValue(2.0) encode as
// different keys.
func encodeValueKey(v types.Value) []byte {
	switch v.Kind {
	case types.KindNull:
		return []byte{byte(types.KindNull)}
	case types.KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		return []byte{byte(types.KindBool), b}
	case types.KindInt64:
		buf := make([]byte, 9)
		buf[0] = byte(types.KindInt64)
		u := uint64(v.Int64) ^ (1 << 63) // fold sign bit so big-endian bytes sort correctly
		putUint64BE(buf[1:], u)
		return buf
	case types.KindFloat64:
		buf := make([]byte, 9)
		buf[0] = byte(types.KindFloat64)
		bits := math.Float64bits(v.Float64)
		if v.Float64 >= 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		putUint64BE(buf[1:], bits)
		return buf
	case types.KindString:
		buf := make([]byte, 1+len(v.Str))
		buf[0] = byte(types.KindString)
		copy(buf[1:], v.Str)
		return buf
	default:
		// Lists/maps/points/temporal/bytes are not indexable properties;
		// callers filter these out before registering an index.
		return []byte{byte(v.Kind)}
	}
}

func putUint64BE(buf []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

// compareValueKeys orders two encoded keys; used to bound range scans.
func compareValueKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
