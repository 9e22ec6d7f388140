package operator

// Skip discards the first N rows of its input.
type Skip struct {
	Input Op
	N     int64

	skipped int64
}

func (s *Skip) Open(ctx *ExecContext) error {
	s.skipped = 0
	return s.Input.Open(ctx)
}

func (s *Skip) Next() (Tuple, error) {
	for s.skipped < s.N {
		row, err := s.Input.Next()
		if err != nil || row == nil {
			return row, err
		}
		s.skipped++
	}
	return s.Input.Next()
}

func (s *Skip) Close() error { return s.Input.Close() }

// Limit yields at most N rows, then stops pulling from its input; the
// input is closed by Close.
type Limit struct {
	Input Op
	N     int64

	produced int64
	done     bool
}

func (l *Limit) Open(ctx *ExecContext) error {
	l.produced = 0
	l.done = false
	return l.Input.Open(ctx)
}

func (l *Limit) Next() (Tuple, error) {
	if l.done || l.produced >= l.N {
		l.done = true
		return nil, nil
	}
	row, err := l.Input.Next()
	if err != nil || row == nil {
		l.done = true
		return row, err
	}
	l.produced++
	if l.produced >= l.N {
		l.done = true
	}
	return row, nil
}

func (l *Limit) Close() error { return l.Input.Close() }
