package operator

import "github.com/nexusdb/nexus/pkg/types"

// AllNodesScan yields every live node in the Record Store, binding it into
// a single-slot Tuple. It is the fallback seed when no label or id filter
// narrows the pattern.
type AllNodesScan struct {
	Slot int

	ctx *ExecContext
	ids []types.NodeID
	pos int
}

func (s *AllNodesScan) Open(ctx *ExecContext) error {
	s.ctx = ctx
	s.ids = ctx.Store.AllNodeIDs()
	s.pos = 0
	return nil
}

func (s *AllNodesScan) Next() (Tuple, error) {
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		if err := s.ctx.CheckCancel(); err != nil {
			return nil, err
		}
		row := make(Tuple, s.Slot+1)
		row[s.Slot] = NodeBinding(id)
		return row, nil
	}
	return nil, nil
}

func (s *AllNodesScan) Close() error { return nil }

// NodeByLabelScan yields nodes carrying Label, read off the Index
// Manager's roaring-bitmap label index.
type NodeByLabelScan struct {
	Slot  int
	Label types.LabelID

	ctx *ExecContext
	ids []types.NodeID
	pos int
}

func (s *NodeByLabelScan) Open(ctx *ExecContext) error {
	s.ctx = ctx
	s.ids = ctx.Index.ScanLabel(s.Label)
	s.pos = 0
	return nil
}

func (s *NodeByLabelScan) Next() (Tuple, error) {
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		if err := s.ctx.CheckCancel(); err != nil {
			return nil, err
		}
		row := make(Tuple, s.Slot+1)
		row[s.Slot] = NodeBinding(id)
		return row, nil
	}
	return nil, nil
}

func (s *NodeByLabelScan) Close() error { return nil }

// NodeByIdSeek binds a single node by id, used when the pattern pins a
// variable to a literal or parameter id.
type NodeByIdSeek struct {
	Slot int
	ID   types.NodeID

	ctx  *ExecContext
	done bool
}

func (s *NodeByIdSeek) Open(ctx *ExecContext) error {
	s.ctx = ctx
	s.done = false
	return nil
}

func (s *NodeByIdSeek) Next() (Tuple, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	if _, err := s.ctx.Store.GetNode(s.ID); err != nil {
		return nil, nil
	}
	row := make(Tuple, s.Slot+1)
	row[s.Slot] = NodeBinding(s.ID)
	return row, nil
}

func (s *NodeByIdSeek) Close() error { return nil }

// PropertyIndexSeek yields nodes carrying Label whose Key property equals
// Value, read off a registered b-tree property index. Falsy (ok=false)
// means the index doesn't exist for (Label, Key); the planner only emits
// this operator when index.Manager.HasPropertyIndex confirmed one does.
type PropertyIndexSeek struct {
	Slot  int
	Label types.LabelID
	Key   types.KeyID
	Value types.Value

	ctx *ExecContext
	ids []types.NodeID
	pos int
}

func (s *PropertyIndexSeek) Open(ctx *ExecContext) error {
	s.ctx = ctx
	ids, _ := ctx.Index.SeekEqual(s.Label, s.Key, s.Value)
	s.ids = ids
	s.pos = 0
	return nil
}

func (s *PropertyIndexSeek) Next() (Tuple, error) {
	for s.pos < len(s.ids) {
		id := s.ids[s.pos]
		s.pos++
		if err := s.ctx.CheckCancel(); err != nil {
			return nil, err
		}
		row := make(Tuple, s.Slot+1)
		row[s.Slot] = NodeBinding(id)
		return row, nil
	}
	return nil, nil
}

func (s *PropertyIndexSeek) Close() error { return nil }
