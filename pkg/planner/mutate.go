package planner

import (
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
)

// compileSet lowers SET var.prop = expr, ... into operator.SetProperty.
func (p *planner) compileSet(c parser.SetClause, root operator.Op) (operator.Op, error) {
	items := make([]operator.SetItemSpec, len(c.Items))
	for i, it := range c.Items {
		slot, ok := p.scope.Lookup(it.Var)
		if !ok {
			return nil, nexuserr.PlanError("unbound variable " + it.Var + " in SET")
		}
		items[i] = operator.SetItemSpec{
			Slot: slot,
			Prop: it.Prop,
			Expr: operator.Compile(it.Expr, p.scope),
		}
	}
	return &operator.SetProperty{Input: root, Items: items}, nil
}

// compileDelete lowers DELETE/DETACH DELETE into operator.DeleteEntities.
func (p *planner) compileDelete(c parser.DeleteClause, root operator.Op) (operator.Op, error) {
	slots := make([]int, len(c.Vars))
	for i, v := range c.Vars {
		slot, ok := p.scope.Lookup(v)
		if !ok {
			return nil, nexuserr.PlanError("unbound variable " + v + " in DELETE")
		}
		slots[i] = slot
	}
	return &operator.DeleteEntities{Input: root, Slots: slots, Detach: c.Detach}, nil
}

// compileUnwind lowers UNWIND expr AS var into operator.Unwind, binding
// var into a new scope slot.
func (p *planner) compileUnwind(c parser.UnwindClause, root operator.Op) (operator.Op, error) {
	if root == nil {
		root = &operator.SingleRow{Width: 0}
	}
	expr := operator.Compile(c.Expr, p.scope)
	slot := p.scope.Bind(c.As)
	width := p.scope.Width()
	return &operator.Unwind{Input: root, Expr: expr, OutSlot: slot, Width: width}, nil
}
