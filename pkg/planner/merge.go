package planner

import (
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
)

// compileMerge lowers MERGE into operator.Merge: Pattern is compiled once
// as a read path (exactly like MATCH) and once as a write path (exactly
// like CREATE, but writing into the SAME scope slots the read path just
// bound instead of allocating new ones, so a query referencing the
// pattern's variables afterward sees the same row shape regardless of
// which side actually ran). MERGE here supports a single linear path;
// comma-separated MERGE patterns are not supported.
func (p *planner) compileMerge(c parser.MergeClause, root operator.Op) (operator.Op, error) {
	paths := splitPaths(c.Pattern)
	sub := paths[0]

	matchChain, newVars, seed, err := p.planSubpath(sub)
	if err != nil {
		return nil, err
	}
	matchOp := matchChain
	if root != nil {
		width := p.scope.Width()
		matchOp = &operator.Apply{
			Left:  root,
			Width: width,
			BuildRight: func(ctx *operator.ExecContext, leftRow operator.Tuple) (operator.Op, error) {
				if seed != nil {
					seed.row = leftRow
				}
				return &joinedOp{leftRow: leftRow, width: width, chain: matchChain}, nil
			},
		}
	}

	isNew := make(map[string]bool, len(newVars))
	for _, v := range newVars {
		isNew[v] = true
	}
	createOp, err := p.compileMergeCreatePath(sub, root, isNew)
	if err != nil {
		return nil, err
	}

	return &operator.Merge{MatchOp: matchOp, CreateOp: createOp}, nil
}

// compileMergeCreatePath mirrors compileCreatePath but writes into the
// scope slots the matching read path already reserved for this same
// pattern, rather than allocating fresh ones. A node or relationship that
// was already bound before this MERGE clause (isNew false - anchored from
// an earlier MATCH) is never (re)created here: its binding already flows
// through from root untouched, and only the genuinely new parts of the
// pattern get staged.
func (p *planner) compileMergeCreatePath(sub []parser.PatternElement, root operator.Op, isNew map[string]bool) (operator.Op, error) {
	varName := sub[0].Node.Var
	if varName == "" {
		varName = p.anonName()
	}
	createRoot, err := p.forceCreateNode(sub[0].Node, varName, root, isNew)
	if err != nil {
		return nil, err
	}

	for i := 1; i+1 < len(sub); i += 2 {
		rel := sub[i].Rel
		node := sub[i+1].Node
		toVar := node.Var
		if toVar == "" {
			toVar = p.anonName()
		}
		createRoot, err = p.forceCreateNode(node, toVar, createRoot, isNew)
		if err != nil {
			return nil, err
		}

		srcSlot, _ := p.scope.Lookup(varName)
		dstSlot, _ := p.scope.Lookup(toVar)
		relVar := rel.Var
		if relVar == "" {
			relVar = p.anonName()
		}
		relSlot, ok := p.scope.Lookup(relVar)
		if !ok {
			relSlot = p.scope.Bind(relVar)
		}
		width := p.scope.Width()

		srcS, dstS := srcSlot, dstSlot
		if rel.Dir == parser.DirLeft {
			srcS, dstS = dstSlot, srcSlot
		}

		if isNew[relVar] {
			createRoot = &operator.CreateRel{
				Input:     createRoot,
				SrcSlot:   srcS,
				DstSlot:   dstS,
				RelSlot:   relSlot,
				Width:     width,
				Type:      firstOr(rel.Types, "RELATED_TO"),
				PropExprs: compileExprMap(rel.Props, p.scope),
			}
		}
		varName = toVar
	}
	return createRoot, nil
}

// forceCreateNode stages a CreateNode for node using varName's slot
// (reserved already by the matching read path). If varName was already
// bound before this MERGE clause ran, it isn't re-created: root already
// carries its binding, so it passes through unchanged.
func (p *planner) forceCreateNode(node *parser.NodePattern, varName string, root operator.Op, isNew map[string]bool) (operator.Op, error) {
	if !isNew[varName] {
		return root, nil
	}
	slot, ok := p.scope.Lookup(varName)
	if !ok {
		slot = p.scope.Bind(varName)
	}
	width := p.scope.Width()
	return &operator.CreateNode{
		Input:     root,
		Slot:      slot,
		Width:     width,
		Labels:    node.Labels,
		PropExprs: compileExprMap(node.Props, p.scope),
	}, nil
}
