package operator

import (
	"sort"

	"github.com/nexusdb/nexus/pkg/types"
)

// OrderKey is one ORDER BY term: its compiled key expression and sort
// direction.
type OrderKey struct {
	Expr CompiledExpr
	Desc bool
}

// OrderBy buffers its entire input (a total order requires seeing every
// row first) and emits it sorted by Keys. Ties fall back to input order
// (sort.SliceStable), matching the planner's determinism guarantee.
type OrderBy struct {
	Input Op
	Keys  []OrderKey

	rows []Tuple
	pos  int
}

func (o *OrderBy) Open(ctx *ExecContext) error {
	if err := o.Input.Open(ctx); err != nil {
		return err
	}
	o.rows = nil
	for {
		row, err := o.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		o.rows = append(o.rows, row)
	}

	keyVals := make([][]types.Value, len(o.rows))
	for i, row := range o.rows {
		ks := make([]types.Value, len(o.Keys))
		for j, k := range o.Keys {
			v, err := k.Expr.Eval(ctx, row)
			if err != nil {
				return err
			}
			ks[j] = v
		}
		keyVals[i] = ks
	}

	idx := make([]int, len(o.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keyVals[idx[a]], keyVals[idx[b]]
		for i, k := range o.Keys {
			c := compareOrderKey(ka[i], kb[i], k.Desc)
			if c != 0 {
				return c < 0
			}
		}
		return false
	})

	ordered := make([]Tuple, len(o.rows))
	for i, oi := range idx {
		ordered[i] = o.rows[oi]
	}
	o.rows = ordered
	o.pos = 0
	return nil
}

func (o *OrderBy) Next() (Tuple, error) {
	if o.pos >= len(o.rows) {
		return nil, nil
	}
	row := o.rows[o.pos]
	o.pos++
	return row, nil
}

func (o *OrderBy) Close() error { return o.Input.Close() }

// compareOrderKey sorts null last in ASC and first in DESC, and otherwise
// defers to CompareValues, negated for DESC.
func compareOrderKey(a, b types.Value, desc bool) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		if desc {
			return -1
		}
		return 1
	}
	if b.IsNull() {
		if desc {
			return 1
		}
		return -1
	}
	c := CompareValues(a, b)
	if desc {
		return -c
	}
	return c
}
