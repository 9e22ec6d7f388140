package operator

import (
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/types"
)

// DeleteEntities drains its input, stages a delete for the node or
// relationship bound at each of Slots on every row, and commits once.
// Detach also deletes every relationship still incident to a deleted
// node; without it, deleting a node that still has relationships is a
// constraint violation (Cypher's default DELETE semantics).
type DeleteEntities struct {
	Input  Op
	Slots  []int
	Detach bool

	rows []Tuple
	pos  int
}

func (d *DeleteEntities) Open(ctx *ExecContext) error {
	if err := d.Input.Open(ctx); err != nil {
		return err
	}
	defer d.Input.Close()

	var rows []Tuple
	deleteNodes := map[types.NodeID]bool{}
	deleteRels := map[types.RelID]bool{}

	for {
		row, err := d.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
		for _, slot := range d.Slots {
			b := row[slot]
			switch b.Kind {
			case BindNode:
				deleteNodes[b.Node] = true
			case BindRel:
				deleteRels[b.Rel] = true
			}
		}
	}

	for id := range deleteNodes {
		node, err := ctx.Store.GetNode(id)
		if err != nil {
			continue
		}
		var incident []types.RelID
		ctx.Store.WalkChain(id, types.DirBoth, func(rid types.RelID) bool {
			incident = append(incident, rid)
			return true
		})
		if len(incident) > 0 && !d.Detach {
			return nexuserr.ConstraintViolation("cannot delete a node with incident relationships without DETACH")
		}
		for _, rid := range incident {
			deleteRels[rid] = true
		}
		_ = node
	}

	if len(deleteNodes) == 0 && len(deleteRels) == 0 {
		d.rows, d.pos = rows, 0
		return nil
	}

	tx := ctx.TxnMgr.Begin()
	for id := range deleteRels {
		ctx.TxnMgr.StageDeleteRel(tx, id)
	}
	for id := range deleteNodes {
		ctx.TxnMgr.StageDeleteNode(tx, id)
	}
	if _, err := ctx.TxnMgr.Commit(tx); err != nil {
		return err
	}

	d.rows = rows
	d.pos = 0
	return nil
}

func (d *DeleteEntities) Next() (Tuple, error) {
	if d.pos >= len(d.rows) {
		return nil, nil
	}
	row := d.rows[d.pos]
	d.pos++
	return row, nil
}

func (d *DeleteEntities) Close() error { return nil }
