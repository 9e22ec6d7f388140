package planner

import (
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
)

// compileCreate lowers a CREATE clause into a chain of CreateNode/CreateRel
// operators, one per pattern element that introduces a new variable.
// Variables the pattern reuses from an earlier MATCH are left as they are
// (CREATE never re-creates an already-bound node).
func (p *planner) compileCreate(c parser.CreateClause, root operator.Op) (operator.Op, error) {
	for _, sub := range splitPaths(c.Pattern) {
		next, err := p.compileCreatePath(sub, root)
		if err != nil {
			return nil, err
		}
		root = next
	}
	return root, nil
}

// compileCreatePath stages one linear CREATE path: each node that isn't
// already bound becomes a CreateNode, and each relationship becomes a
// CreateRel between the node slots on either side of it.
func (p *planner) compileCreatePath(sub []parser.PatternElement, root operator.Op) (operator.Op, error) {
	varName, err := p.compileCreateNode(sub[0].Node, &root)
	if err != nil {
		return nil, err
	}

	for i := 1; i+1 < len(sub); i += 2 {
		rel := sub[i].Rel
		node := sub[i+1].Node
		toVar, err := p.compileCreateNode(node, &root)
		if err != nil {
			return nil, err
		}

		srcSlot, _ := p.scope.Lookup(varName)
		dstSlot, _ := p.scope.Lookup(toVar)
		relVar := rel.Var
		if relVar == "" {
			relVar = p.anonName()
		}
		relSlot := p.scope.Bind(relVar)
		width := p.scope.Width()

		srcS, dstS := srcSlot, dstSlot
		if rel.Dir == parser.DirLeft {
			srcS, dstS = dstSlot, srcSlot
		}

		propExprs := compileExprMap(rel.Props, p.scope)
		root = &operator.CreateRel{
			Input:     root,
			SrcSlot:   srcS,
			DstSlot:   dstS,
			RelSlot:   relSlot,
			Width:     width,
			Type:      firstOr(rel.Types, "RELATED_TO"),
			PropExprs: propExprs,
		}
		varName = toVar
	}
	return root, nil
}

// compileCreateNode binds node's variable (reusing an existing binding if
// the pattern refers to one) and, for a fresh variable, appends a
// CreateNode operator onto *root.
func (p *planner) compileCreateNode(node *parser.NodePattern, root *operator.Op) (string, error) {
	varName := node.Var
	if varName == "" {
		varName = p.anonName()
	}
	if _, ok := p.scope.Lookup(varName); ok {
		return varName, nil
	}
	slot := p.scope.Bind(varName)
	width := p.scope.Width()
	propExprs := compileExprMap(node.Props, p.scope)
	*root = &operator.CreateNode{
		Input:     *root,
		Slot:      slot,
		Width:     width,
		Labels:    node.Labels,
		PropExprs: propExprs,
	}
	return varName, nil
}

func compileExprMap(m map[string]parser.Expr, scope *operator.Scope) map[string]operator.CompiledExpr {
	out := make(map[string]operator.CompiledExpr, len(m))
	for k, e := range m {
		out[k] = operator.Compile(e, scope)
	}
	return out
}

func firstOr(list []string, fallback string) string {
	if len(list) == 0 {
		return fallback
	}
	return list[0]
}
