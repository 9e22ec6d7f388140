package operator

import "github.com/nexusdb/nexus/pkg/types"

// Unwind evaluates Expr once per input row (expected to produce a list)
// and emits one output row per list element, with the element bound into
// OutSlot alongside the carried-through input bindings. A null or non-list
// Expr produces zero output rows for that input row.
type Unwind struct {
	Input   Op
	Expr    CompiledExpr
	OutSlot int
	Width   int

	ctx     *ExecContext
	base    Tuple
	items   []types.Value
	itemPos int
}

func (u *Unwind) Open(ctx *ExecContext) error {
	u.ctx = ctx
	u.base = nil
	u.items = nil
	u.itemPos = 0
	return u.Input.Open(ctx)
}

func (u *Unwind) Next() (Tuple, error) {
	for {
		for u.itemPos < len(u.items) {
			v := u.items[u.itemPos]
			u.itemPos++
			out := make(Tuple, u.Width)
			copy(out, u.base)
			out[u.OutSlot] = ValueBinding(v)
			return out, nil
		}
		row, err := u.Input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		v, err := u.Expr.Eval(u.ctx, row)
		if err != nil {
			return nil, err
		}
		u.base = row
		if v.Kind == types.KindList {
			u.items = v.List
		} else {
			u.items = nil
		}
		u.itemPos = 0
	}
}

func (u *Unwind) Close() error { return u.Input.Close() }
