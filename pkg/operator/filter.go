package operator

// Filter drops rows for which Pred does not evaluate true (null and false
// are both dropped, matching Cypher's three-valued WHERE semantics).
type Filter struct {
	Input Op
	Pred  CompiledExpr

	ctx *ExecContext
}

func (f *Filter) Open(ctx *ExecContext) error {
	f.ctx = ctx
	return f.Input.Open(ctx)
}

func (f *Filter) Next() (Tuple, error) {
	for {
		row, err := f.Input.Next()
		if err != nil || row == nil {
			return row, err
		}
		v, err := f.Pred.Eval(f.ctx, row)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() && v.Bool {
			return row, nil
		}
	}
}

func (f *Filter) Close() error { return f.Input.Close() }
