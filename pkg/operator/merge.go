package operator

// Merge runs MatchOp to completion; if it produced at least one row,
// those rows pass through. If it produced none, CreateOp runs instead,
// creating the pattern exactly once. This is MERGE's create-or-match
// semantics: a side effect (the create) happens only when the match
// truly found nothing.
type Merge struct {
	MatchOp  Op
	CreateOp Op

	rows []Tuple
	pos  int
}

func (m *Merge) Open(ctx *ExecContext) error {
	if err := m.MatchOp.Open(ctx); err != nil {
		return err
	}
	var rows []Tuple
	for {
		row, err := m.MatchOp.Next()
		if err != nil {
			m.MatchOp.Close()
			return err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	m.MatchOp.Close()

	if len(rows) > 0 {
		m.rows, m.pos = rows, 0
		return nil
	}

	if err := m.CreateOp.Open(ctx); err != nil {
		return err
	}
	defer m.CreateOp.Close()
	for {
		row, err := m.CreateOp.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	m.rows, m.pos = rows, 0
	return nil
}

func (m *Merge) Next() (Tuple, error) {
	if m.pos >= len(m.rows) {
		return nil, nil
	}
	row := m.rows[m.pos]
	m.pos++
	return row, nil
}

func (m *Merge) Close() error { return nil }
