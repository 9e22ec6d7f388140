package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/nexusdb/nexus/pkg/types"
)

// encodeProps serializes a property map to the store's property-region
// wire format: count, then repeated (key_id, kind, value-bytes). Used for
// the out-of-line properties area; pkg/wal keeps its own independent codec
// for WAL payloads (valuecodec.go).
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

func decodeProps(buf []byte) (map[types.KeyID]types.Value, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("property blob too short")
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	out := make(map[types.KeyID]types.Value, count)
	for i := uint32(0); i < count; i++ {
		if len(buf) < 5 {
			return nil, fmt.Errorf("truncated property entry")
		}
		keyID := types.KeyID(binary.LittleEndian.Uint32(buf))
		kind := types.ValueKind(buf[4])
		buf = buf[5:]
		v, rest, err := decodeValue(kind, buf)
		if err != nil {
			return nil, err
		}
		out[keyID] = v
		buf = rest
	}
	return out, nil
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
		binary.LittleEndian.PutUint64(buf, float64Bits(v.Float64))
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
		binary.LittleEndian.PutUint64(buf[0:], float64Bits(v.Pt.X))
		binary.LittleEndian.PutUint64(buf[8:], float64Bits(v.Pt.Y))
		binary.LittleEndian.PutUint64(buf[16:], float64Bits(v.Pt.Z))
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
			return types.Value{}, nil, fmt.Errorf("truncated bool")
		}
		return types.BoolValue(buf[0] != 0), buf[1:], nil
	case types.KindInt64:
		if len(buf) < 8 {
			return types.Value{}, nil, fmt.Errorf("truncated int64")
		}
		return types.IntValue(int64(binary.LittleEndian.Uint64(buf))), buf[8:], nil
	case types.KindFloat64:
		if len(buf) < 8 {
			return types.Value{}, nil, fmt.Errorf("truncated float64")
		}
		return types.FloatValue(float64FromBits(binary.LittleEndian.Uint64(buf))), buf[8:], nil
	case types.KindString:
		s, rest, err := decodeBytesWithLen(buf)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.StringValue(string(s)), rest, nil
	case types.KindBytes:
		b, rest, err := decodeBytesWithLen(buf)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.BytesValue(b), rest, nil
	case types.KindList:
		if len(buf) < 4 {
			return types.Value{}, nil, fmt.Errorf("truncated list")
		}
		n := binary.LittleEndian.Uint32(buf)
		buf = buf[4:]
		items := make([]types.Value, 0, n)
		for i := uint32(0); i < n; i++ {
			if len(buf) < 1 {
				return types.Value{}, nil, fmt.Errorf("truncated list item")
			}
			itemKind := types.ValueKind(buf[0])
			item, rest, err := decodeValue(itemKind, buf[1:])
			if err != nil {
				return types.Value{}, nil, err
			}
			items = append(items, item)
			buf = rest
		}
		return types.ListValue(items), buf, nil
	case types.KindMap:
		if len(buf) < 4 {
			return types.Value{}, nil, fmt.Errorf("truncated map")
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
				return types.Value{}, nil, fmt.Errorf("truncated map value")
			}
			itemKind := types.ValueKind(rest[0])
			item, rest2, err := decodeValue(itemKind, rest[1:])
			if err != nil {
				return types.Value{}, nil, err
			}
			m[string(k)] = item
			buf = rest2
		}
		return types.MapValue(m), buf, nil
	case types.KindPoint:
		if len(buf) < 25 {
			return types.Value{}, nil, fmt.Errorf("truncated point")
		}
		crsEnd := 25
		for crsEnd < len(buf) && buf[crsEnd] != 0 {
			crsEnd++
		}
		p := types.Point{
			X:    float64FromBits(binary.LittleEndian.Uint64(buf[0:])),
			Y:    float64FromBits(binary.LittleEndian.Uint64(buf[8:])),
			Z:    float64FromBits(binary.LittleEndian.Uint64(buf[16:])),
			Is3D: buf[24] != 0,
			CRS:  string(buf[25:crsEnd]),
		}
		return types.Value{Kind: types.KindPoint, Pt: p}, buf[crsEnd:], nil
	case types.KindTemporal:
		if len(buf) < 17 {
			return types.Value{}, nil, fmt.Errorf("truncated temporal")
		}
		t := types.Temporal{
			Kind:     types.TemporalKind(buf[0]),
			At:       time.Unix(0, int64(binary.LittleEndian.Uint64(buf[1:]))).UTC(),
			Duration: time.Duration(binary.LittleEndian.Uint64(buf[9:])),
		}
		return types.Value{Kind: types.KindTemporal, Temp: t}, buf[17:], nil
	default:
		return types.Value{}, nil, fmt.Errorf("unknown value kind %d", kind)
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
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, fmt.Errorf("truncated byte run")
	}
	return buf[:n], buf[n:], nil
}
