package operator

import "github.com/nexusdb/nexus/pkg/types"

// SetItemSpec is one `var.prop = expr` assignment, resolved to the
// Tuple slot holding var's binding.
type SetItemSpec struct {
	Slot int
	Prop string
	Expr CompiledExpr
}

// SetProperty drains its input, merges every Items assignment per touched
// entity (a node or relationship may receive several SET items across
// several rows, e.g. a MATCH that revisits the same node), and commits
// once as a single transaction, passing rows through unchanged.
type SetProperty struct {
	Input Op
	Items []SetItemSpec

	rows []Tuple
	pos  int
}

func (s *SetProperty) Open(ctx *ExecContext) error {
	if err := s.Input.Open(ctx); err != nil {
		return err
	}
	defer s.Input.Close()

	nodeProps := map[types.NodeID]map[types.KeyID]types.Value{}
	relProps := map[types.RelID]map[types.KeyID]types.Value{}
	var rows []Tuple

	for {
		row, err := s.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
		for _, item := range s.Items {
			v, err := item.Expr.Eval(ctx, row)
			if err != nil {
				return err
			}
			keyID, err := ctx.Catalog.InternKey(item.Prop)
			if err != nil {
				return err
			}
			b := row[item.Slot]
			switch b.Kind {
			case BindNode:
				if nodeProps[b.Node] == nil {
					node, err := ctx.Store.GetNode(b.Node)
					if err != nil {
						return err
					}
					nodeProps[b.Node] = cloneValueMap(node.Properties)
				}
				nodeProps[b.Node][keyID] = v
			case BindRel:
				if relProps[b.Rel] == nil {
					rel, err := ctx.Store.GetRel(b.Rel)
					if err != nil {
						return err
					}
					relProps[b.Rel] = cloneValueMap(rel.Properties)
				}
				relProps[b.Rel][keyID] = v
			}
		}
	}

	tx := ctx.TxnMgr.Begin()
	for id, props := range nodeProps {
		node, err := ctx.Store.GetNode(id)
		if err != nil {
			return err
		}
		ctx.TxnMgr.StageUpdateNode(tx, id, node.Labels, props)
	}
	for id, props := range relProps {
		ctx.TxnMgr.StageUpdateRel(tx, id, props)
	}
	if len(nodeProps) > 0 || len(relProps) > 0 {
		if _, err := ctx.TxnMgr.Commit(tx); err != nil {
			return err
		}
	} else {
		ctx.TxnMgr.Abort(tx)
	}

	s.rows = rows
	s.pos = 0
	return nil
}

func cloneValueMap(m map[types.KeyID]types.Value) map[types.KeyID]types.Value {
	out := make(map[types.KeyID]types.Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *SetProperty) Next() (Tuple, error) {
	if s.pos >= len(s.rows) {
		return nil, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *SetProperty) Close() error { return nil }
