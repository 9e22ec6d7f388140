package operator

import "github.com/nexusdb/nexus/pkg/types"

// CreateNode stages one new node per input row (or exactly one row if
// Input is nil, for a bare CREATE with no preceding MATCH) and commits
// them as a single transaction once every row has been staged, binding
// each row's new node id into Slot from the result.
type CreateNode struct {
	Input     Op
	Slot      int
	Width     int
	Labels    []string
	PropExprs map[string]CompiledExpr

	rows []Tuple
	pos  int
}

func (c *CreateNode) Open(ctx *ExecContext) error {
	input := c.Input
	if input == nil {
		input = &SingleRow{Width: 0}
	}
	if err := input.Open(ctx); err != nil {
		return err
	}
	defer input.Close()

	labelIDs := make([]types.LabelID, len(c.Labels))
	for i, l := range c.Labels {
		id, err := ctx.Catalog.InternLabel(l)
		if err != nil {
			return err
		}
		labelIDs[i] = id
	}

	tx := ctx.TxnMgr.Begin()
	var rows []Tuple
	var staged []*types.StagedNode
	for {
		row, err := input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		props, err := evalPropMap(ctx, c.PropExprs, row)
		if err != nil {
			return err
		}
		sn := ctx.TxnMgr.StageCreateNode(tx, labelIDs, props)
		out := make(Tuple, c.Width)
		copy(out, row)
		rows = append(rows, out)
		staged = append(staged, sn)
	}
	if _, err := ctx.TxnMgr.Commit(tx); err != nil {
		return err
	}
	for i := range rows {
		rows[i][c.Slot] = NodeBinding(staged[i].ID)
	}
	c.rows = rows
	c.pos = 0
	return nil
}

func (c *CreateNode) Next() (Tuple, error) {
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, nil
}

func (c *CreateNode) Close() error { return nil }

// CreateRel stages one new relationship per input row between the nodes
// already bound at SrcSlot/DstSlot (either pre-existing matches or nodes a
// preceding CreateNode in the same pattern just created), committing once
// every row is staged.
type CreateRel struct {
	Input     Op
	SrcSlot   int
	DstSlot   int
	RelSlot   int
	Width     int
	Type      string
	PropExprs map[string]CompiledExpr

	rows []Tuple
	pos  int
}

func (c *CreateRel) Open(ctx *ExecContext) error {
	if err := c.Input.Open(ctx); err != nil {
		return err
	}
	defer c.Input.Close()

	typeID, err := ctx.Catalog.InternType(c.Type)
	if err != nil {
		return err
	}

	tx := ctx.TxnMgr.Begin()
	var rows []Tuple
	var staged []*types.StagedRel
	for {
		row, err := c.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		props, err := evalPropMap(ctx, c.PropExprs, row)
		if err != nil {
			return err
		}
		src, dst := row[c.SrcSlot].Node, row[c.DstSlot].Node
		sr := ctx.TxnMgr.StageCreateRel(tx, typeID, src, dst, props)
		out := make(Tuple, c.Width)
		copy(out, row)
		rows = append(rows, out)
		staged = append(staged, sr)
	}
	if _, err := ctx.TxnMgr.Commit(tx); err != nil {
		return err
	}
	for i := range rows {
		rows[i][c.RelSlot] = RelBinding(staged[i].ID)
	}
	c.rows = rows
	c.pos = 0
	return nil
}

func (c *CreateRel) Next() (Tuple, error) {
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	row := c.rows[c.pos]
	c.pos++
	return row, nil
}

func (c *CreateRel) Close() error { return nil }

func evalPropMap(ctx *ExecContext, exprs map[string]CompiledExpr, row Tuple) (map[types.KeyID]types.Value, error) {
	props := map[types.KeyID]types.Value{}
	for name, expr := range exprs {
		v, err := expr.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		keyID, err := ctx.Catalog.InternKey(name)
		if err != nil {
			return nil, err
		}
		props[keyID] = v
	}
	return props, nil
}
