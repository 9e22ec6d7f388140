package operator

// Project evaluates Exprs against each input row and emits the results as
// a fresh Tuple, one slot per expression. A bare variable reference keeps
// its live node/relationship binding (see CompiledExpr.EvalBinding); any
// other expression is flattened to a plain Value. Columns carries the
// output column names in the same order, for the ResultSet schema.
type Project struct {
	Input   Op
	Exprs   []CompiledExpr
	Columns []string

	ctx *ExecContext
}

func (p *Project) Open(ctx *ExecContext) error {
	p.ctx = ctx
	return p.Input.Open(ctx)
}

func (p *Project) Next() (Tuple, error) {
	row, err := p.Input.Next()
	if err != nil || row == nil {
		return row, err
	}
	out := make(Tuple, len(p.Exprs))
	for i, e := range p.Exprs {
		b, err := e.EvalBinding(p.ctx, row)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func (p *Project) Close() error { return p.Input.Close() }
