package wal

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/nexusdb/nexus/pkg/types"
)

// This is the WAL's own wire codec for types.Value and property maps. It
// is deliberately independent of pkg/store's on-disk property codec: the
// two serialize the same Value union but answer to different contracts
// (wal payloads travel over the wire to replicas and must decode without
// the Record Store present at all).

func encodeProps(props map[types.KeyID]types.Value) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(props)))
	for k, v := range props {
		head := make([]byte, 5)
		binary.LittleEndian.PutUint32(head[0:], uint32(k))
		head[4] = byte(v.Kind)
		buf = append(buf, head...)
		buf = append(buf, encodeValue(v)...)
	}
	return buf
}

func decodeProps(buf []byte) (map[types.KeyID]types.Value, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("wal: truncated property count")
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	out := make(map[types.KeyID]types.Value, count)
	for i := uint32(0); i < count; i++ {
		if len(buf) < 5 {
			return nil, nil, fmt.Errorf("wal: truncated property entry")
		}
		keyID := types.KeyID(binary.LittleEndian.Uint32(buf))
		kind := types.ValueKind(buf[4])
		v, rest, err := decodeValue(kind, buf[5:])
		if err != nil {
			return nil, nil, err
		}
		out[keyID] = v
		buf = rest
	}
	return out, buf, nil
}

func encodeValue(v types.Value) []byte {
	switch v.Kind {
	case types.KindNull:
		return nil
	case types.KindBool:
		if v.Bool {
			return []byte{1}
		}
		return []byte{0}
	case types.KindInt64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(v.Int64))
		return buf
	case types.KindFloat64:
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Float64))
		return buf
	case types.KindString:
		return encodeBytesWithLen([]byte(v.Str))
	case types.KindBytes:
		return encodeBytesWithLen(v.Bytes)
	case types.KindList:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(len(v.List)))
		for _, item := range v.List {
			buf = append(buf, byte(item.Kind))
			buf = append(buf, encodeValue(item)...)
		}
		return buf
	case types.KindMap:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(len(v.Map)))
		for k, item := range v.Map {
			buf = append(buf, encodeBytesWithLen([]byte(k))...)
			buf = append(buf, byte(item.Kind))
			buf = append(buf, encodeValue(item)...)
		}
		return buf
	case types.KindPoint:
		buf := make([]byte, 25+len(v.Pt.CRS))
		binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(v.Pt.X))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(v.Pt.Y))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(v.Pt.Z))
		if v.Pt.Is3D {
			buf[24] = 1
		}
		copy(buf[25:], v.Pt.CRS)
		return buf
	case types.KindTemporal:
		buf := make([]byte, 17)
		buf[0] = byte(v.Temp.Kind)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.Temp.At.UnixNano()))
		binary.LittleEndian.PutUint64(buf[9:], uint64(v.Temp.Duration))
		return buf
	default:
		return nil
	}
}

func decodeValue(kind types.ValueKind, buf []byte) (types.Value, []byte, error) {
	switch kind {
	case types.KindNull:
		return types.Null, buf, nil
	case types.KindBool:
		if len(buf) < 1 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated bool")
		}
		return types.BoolValue(buf[0] != 0), buf[1:], nil
	case types.KindInt64:
		if len(buf) < 8 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated int64")
		}
		return types.IntValue(int64(binary.LittleEndian.Uint64(buf))), buf[8:], nil
	case types.KindFloat64:
		if len(buf) < 8 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated float64")
		}
		return types.FloatValue(math.Float64frombits(binary.LittleEndian.Uint64(buf))), buf[8:], nil
	case types.KindString:
		b, rest, err := decodeBytesWithLen(buf)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.StringValue(string(b)), rest, nil
	case types.KindBytes:
		b, rest, err := decodeBytesWithLen(buf)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.BytesValue(b), rest, nil
	case types.KindList:
		if len(buf) < 4 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated list")
		}
		n := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		items := make([]types.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			if len(buf) < 1 {
				return types.Value{}, nil, fmt.Errorf("wal: truncated list item")
			}
			item, rest, err := decodeValue(types.ValueKind(buf[0]), buf[1:])
			if err != nil {
				return types.Value{}, nil, err
			}
			items = append(items, item)
			buf = rest
		}
		return types.ListValue(items), buf, nil
	case types.KindMap:
		if len(buf) < 4 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated map")
		}
		n := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		m := make(map[string]types.Value, n)
		for i := uint32(0); i < n; i++ {
			k, rest, err := decodeBytesWithLen(buf)
			if err != nil {
				return types.Value{}, nil, err
			}
			if len(rest) < 1 {
				return types.Value{}, nil, fmt.Errorf("wal: truncated map value")
			}
			item, rest2, err := decodeValue(types.ValueKind(rest[0]), rest[1:])
			if err != nil {
				return types.Value{}, nil, err
			}
			m[string(k)] = item
			buf = rest2
		}
		return types.MapValue(m), buf, nil
	case types.KindPoint:
		if len(buf) < 25 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated point")
		}
		crsEnd := 25
		for crsEnd < len(buf) && buf[crsEnd] != 0 {
			crsEnd++
		}
		p := types.Point{
			X:    math.Float64frombits(binary.LittleEndian.Uint64(buf[0:])),
			Y:    math.Float64frombits(binary.LittleEndian.Uint64(buf[8:])),
			Z:    math.Float64frombits(binary.LittleEndian.Uint64(buf[16:])),
			Is3D: buf[24] != 0,
			CRS:  string(buf[25:crsEnd]),
		}
		return types.Value{Kind: types.KindPoint, Pt: p}, buf[crsEnd:], nil
	case types.KindTemporal:
		if len(buf) < 17 {
			return types.Value{}, nil, fmt.Errorf("wal: truncated temporal")
		}
		t := types.Temporal{
			Kind:     types.TemporalKind(buf[0]),
			At:       time.Unix(0, int64(binary.LittleEndian.Uint64(buf[1:]))).UTC(),
			Duration: time.Duration(binary.LittleEndian.Uint64(buf[9:])),
		}
		return types.Value{Kind: types.KindTemporal, Temp: t}, buf[17:], nil
	default:
		return types.Value{}, nil, fmt.Errorf("wal: unknown value kind %d", kind)
	}
}

func encodeBytesWithLen(b []byte) []byte {
	buf := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[4:], b)
	return buf
}

func decodeBytesWithLen(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("wal: truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, fmt.Errorf("wal: truncated byte run")
	}
	return buf[:n], buf[n:], nil
}
