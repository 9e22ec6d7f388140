package operator

// SingleRow yields exactly one Tuple — Row widened to Width slots — then
// ends. The planner uses it with an empty Row as the input of a RETURN,
// WITH or UNWIND that has no preceding clause.
type SingleRow struct {
	Row   Tuple
	Width int

	done bool
}

func (s *SingleRow) Open(ctx *ExecContext) error { s.done = false; return nil }

func (s *SingleRow) Next() (Tuple, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	out := make(Tuple, s.Width)
	copy(out, s.Row)
	return out, nil
}

func (s *SingleRow) Close() error { return nil }

// Apply runs BuildRight once per Left row and pulls the right-hand subtree
// it returns for that row. The planner joins every pattern path after the
// plan's first through Apply; a path whose first variable is already bound
// starts from the left row's binding, any other path from its own scan.
// Optional rows where the right subtree produces nothing still surface
// once, padded with null bindings, instead of dropping the left row.
type Apply struct {
	Left       Op
	BuildRight func(ctx *ExecContext, leftRow Tuple) (Op, error)
	Optional   bool
	Width      int

	ctx        *ExecContext
	right      Op
	matchedAny bool
	leftRow    Tuple
	leftDone   bool
}

func (a *Apply) Open(ctx *ExecContext) error {
	a.ctx = ctx
	return a.Left.Open(ctx)
}

func (a *Apply) Next() (Tuple, error) {
	for {
		if a.right == nil {
			row, err := a.Left.Next()
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, nil
			}
			a.leftRow = row
			a.matchedAny = false
			right, err := a.BuildRight(a.ctx, row)
			if err != nil {
				return nil, err
			}
			if err := right.Open(a.ctx); err != nil {
				return nil, err
			}
			a.right = right
		}

		row, err := a.right.Next()
		if err != nil {
			return nil, err
		}
		if row != nil {
			a.matchedAny = true
			return row, nil
		}

		a.right.Close()
		a.right = nil
		if a.Optional && !a.matchedAny {
			out := make(Tuple, a.Width)
			copy(out, a.leftRow)
			for i := len(a.leftRow); i < a.Width; i++ {
				out[i] = NullBinding
			}
			return out, nil
		}
	}
}

func (a *Apply) Close() error {
	if a.right != nil {
		a.right.Close()
		a.right = nil
	}
	return a.Left.Close()
}
