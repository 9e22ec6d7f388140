package operator

import "github.com/nexusdb/nexus/pkg/types"

// Expand walks the relationship chain off each input row's node slot,
// binding the traversed relationship and the node at its far end. Types
// narrows which relationship types are walked; an empty Types walks all of
// them. Dir selects the chain (outgoing/incoming/both) per the pattern's
// arrow direction.
type Expand struct {
	Input     Op
	FromSlot  int
	RelSlot   int
	ToSlot    int
	Dir       types.Direction
	Types     map[types.TypeID]bool
	Width     int

	ctx      *ExecContext
	cur      Tuple
	pending  []types.RelID
	pendPos  int
}

func (e *Expand) Open(ctx *ExecContext) error {
	e.ctx = ctx
	e.cur = nil
	e.pending = nil
	e.pendPos = 0
	return e.Input.Open(ctx)
}

func (e *Expand) fillPending() error {
	for {
		row, err := e.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			e.cur = nil
			return nil
		}
		e.cur = row
		from := row[e.FromSlot]
		if from.Kind != BindNode {
			continue
		}
		var ids []types.RelID
		e.ctx.Store.WalkChain(from.Node, e.Dir, func(id types.RelID) bool {
			ids = append(ids, id)
			return true
		})
		e.pending = ids
		e.pendPos = 0
		return nil
	}
}

func (e *Expand) Next() (Tuple, error) {
	for {
		if e.cur == nil && e.pending == nil {
			if err := e.fillPending(); err != nil {
				return nil, err
			}
			if e.cur == nil {
				return nil, nil
			}
		}
		for e.pendPos < len(e.pending) {
			relID := e.pending[e.pendPos]
			e.pendPos++
			if err := e.ctx.CheckCancel(); err != nil {
				return nil, err
			}
			rel, err := e.ctx.Store.GetRel(relID)
			if err != nil {
				continue
			}
			if len(e.Types) > 0 && !e.Types[rel.Type] {
				continue
			}
			farEnd := rel.Target
			if rel.Target == e.cur[e.FromSlot].Node {
				farEnd = rel.Source
			}
			out := make(Tuple, e.Width)
			copy(out, e.cur)
			out[e.RelSlot] = RelBinding(relID)
			out[e.ToSlot] = NodeBinding(farEnd)
			return out, nil
		}
		e.pending = nil
		e.cur = nil
	}
}

func (e *Expand) Close() error { return e.Input.Close() }
