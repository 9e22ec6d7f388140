package operator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nexusdb/nexus/pkg/types"
)

// Distinct drops rows whose bindings repeat a prior row's, keyed by a
// deterministic string encoding rather than Go's == (bound Values carry
// slices/maps and aren't comparable, and node/rel bindings need their id
// compared, not their zero Value).
type Distinct struct {
	Input Op

	seen map[string]bool
}

func (d *Distinct) Open(ctx *ExecContext) error {
	d.seen = map[string]bool{}
	return d.Input.Open(ctx)
}

func (d *Distinct) Next() (Tuple, error) {
	for {
		row, err := d.Input.Next()
		if err != nil || row == nil {
			return row, err
		}
		key := rowKeyFromTuple(row)
		if d.seen[key] {
			continue
		}
		d.seen[key] = true
		return row, nil
	}
}

func (d *Distinct) Close() error { return d.Input.Close() }

// rowKeyFromTuple keys a whole row by its live bindings rather than by
// flattened Values, so DISTINCT (and Aggregate's grouping) tell two
// different nodes/relationships apart even when neither carries a
// scalar Value.
func rowKeyFromTuple(row Tuple) string {
	var b strings.Builder
	for _, bind := range row {
		b.WriteString(bindingKey(bind))
		b.WriteByte('\x1f')
	}
	return b.String()
}

func bindingKey(b Binding) string {
	switch b.Kind {
	case BindNull:
		return "n"
	case BindNode:
		return fmt.Sprintf("N%d", b.Node)
	case BindRel:
		return fmt.Sprintf("R%d", b.Rel)
	case BindValue:
		return valueKey(b.Val)
	default:
		return "?"
	}
}

func valueKey(v types.Value) string {
	switch v.Kind {
	case types.KindNull:
		return "n"
	case types.KindBool:
		return fmt.Sprintf("b%v", v.Bool)
	case types.KindInt64:
		return fmt.Sprintf("i%d", v.Int64)
	case types.KindFloat64:
		return fmt.Sprintf("f%v", v.Float64)
	case types.KindString:
		return "s" + v.Str
	case types.KindBytes:
		return "y" + string(v.Bytes)
	case types.KindList:
		var b strings.Builder
		b.WriteString("l(")
		for _, item := range v.List {
			b.WriteString(valueKey(item))
			b.WriteByte(',')
		}
		b.WriteByte(')')
		return b.String()
	case types.KindMap:
		keys := make([]string, 0, len(v.Map))
		for k := range v.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("m(")
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte(':')
			b.WriteString(valueKey(v.Map[k]))
			b.WriteByte(',')
		}
		b.WriteByte(')')
		return b.String()
	default:
		return "?"
	}
}
