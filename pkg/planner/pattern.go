package planner

import (
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
	"github.com/nexusdb/nexus/pkg/types"
)

// splitPaths breaks a flattened pattern (parser.parsePattern merges every
// comma-separated path into one slice) back into its individual paths: a
// new path starts whenever two Node elements appear back to back with no
// Rel between them.
func splitPaths(pattern []parser.PatternElement) [][]parser.PatternElement {
	var paths [][]parser.PatternElement
	var cur []parser.PatternElement
	for _, el := range pattern {
		if el.Node != nil && len(cur) > 0 && cur[len(cur)-1].Node != nil {
			paths = append(paths, cur)
			cur = nil
		}
		cur = append(cur, el)
	}
	if len(cur) > 0 {
		paths = append(paths, cur)
	}
	return paths
}

var anonCounter int

func (p *planner) anonName() string {
	anonCounter++
	return "$anon" + itoa(anonCounter)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// compileMatch integrates one MATCH/OPTIONAL MATCH clause's (possibly
// several comma-separated) patterns into root. The very first pattern
// compiled in the whole plan needs no left-hand input and is returned
// directly; every later pattern is joined in via Apply, correlated
// through any variable it shares with root.
func (p *planner) compileMatch(c parser.MatchClause, root operator.Op) (operator.Op, error) {
	for _, sub := range splitPaths(c.Pattern) {
		chain, _, seed, err := p.planSubpath(sub)
		if err != nil {
			return nil, err
		}
		if root == nil {
			root = chain
			continue
		}
		width := p.scope.Width()
		root = &operator.Apply{
			Left:     root,
			Optional: c.Optional,
			Width:    width,
			BuildRight: func(ctx *operator.ExecContext, leftRow operator.Tuple) (operator.Op, error) {
				if seed != nil {
					seed.row = leftRow
				}
				return &joinedOp{leftRow: leftRow, width: width, chain: chain}, nil
			},
		}
	}

	if c.Where != nil {
		root = &operator.Filter{Input: root, Pred: operator.Compile(c.Where, p.scope)}
	}
	return root, nil
}

// joinedOp re-opens chain per Apply iteration and merges each of its rows
// with the captured left row so variables bound before this subpath stay
// visible alongside the subpath's own bindings.
type joinedOp struct {
	leftRow operator.Tuple
	width   int
	chain   operator.Op
}

func (j *joinedOp) Open(ctx *operator.ExecContext) error { return j.chain.Open(ctx) }

func (j *joinedOp) Next() (operator.Tuple, error) {
	row, err := j.chain.Next()
	if err != nil || row == nil {
		return row, err
	}
	out := make(operator.Tuple, j.width)
	copy(out, j.leftRow)
	for i, b := range row {
		if b.Kind != operator.BindNull {
			out[i] = b
		}
	}
	return out, nil
}

func (j *joinedOp) Close() error { return j.chain.Close() }

// planSubpath lowers one linear path (Node (Rel Node)*) into a scan +
// Expand chain, binding every pattern variable into the Scope as it goes.
func (p *planner) planSubpath(sub []parser.PatternElement) (operator.Op, []string, *seekExistingBinding, error) {
	var newVars []string
	var seed *seekExistingBinding
	var pred parser.Expr // inline {key: value} properties, as equality tests
	addProps := func(v string, props map[string]parser.Expr) {
		for k, e := range props {
			eq := parser.Expr(parser.BinaryExpr{Op: "=", L: parser.PropertyAccess{Var: v, Prop: k}, R: e})
			if pred != nil {
				eq = parser.BinaryExpr{Op: "and", L: pred, R: eq}
			}
			pred = eq
		}
	}
	first := sub[0].Node
	varName := first.Var
	if varName == "" {
		varName = p.anonName()
	}
	addProps(varName, first.Props)

	var root operator.Op
	if reuse, ok := p.scope.Lookup(varName); ok {
		seed = &seekExistingBinding{Slot: reuse}
		root = seed
	} else {
		slot := p.scope.Bind(varName)
		newVars = append(newVars, varName)
		root = p.planSeed(first, slot)
	}

	width := p.scope.Width()
	for i := 1; i+1 < len(sub); i += 2 {
		rel := sub[i].Rel
		node := sub[i+1].Node

		relVar := rel.Var
		if relVar == "" {
			relVar = p.anonName()
		}
		nodeVar := node.Var
		if nodeVar == "" {
			nodeVar = p.anonName()
		}
		addProps(nodeVar, node.Props)

		fromSlot, _ := p.scope.Lookup(varName)
		relSlot := p.scope.Bind(relVar)
		toSlot := p.scope.Bind(nodeVar)
		newVars = append(newVars, relVar, nodeVar)
		width = p.scope.Width()

		typeSet := map[types.TypeID]bool{}
		if len(rel.Types) > 0 {
			any := false
			for _, t := range rel.Types {
				if id, ok := p.catalog.LookupTypeID(t); ok {
					typeSet[id] = true
					any = true
				}
			}
			if !any {
				typeSet[types.TypeID(types.UnsetID)] = true
			}
		}

		root = &operator.Expand{
			Input:    root,
			FromSlot: fromSlot,
			RelSlot:  relSlot,
			ToSlot:   toSlot,
			Dir:      direction(rel.Dir),
			Types:    typeSet,
			Width:    width,
		}
		varName = nodeVar
	}

	if pred != nil {
		root = &operator.Filter{Input: root, Pred: operator.Compile(pred, p.scope)}
	}
	return root, newVars, seed, nil
}

func direction(d parser.PathDirection) types.Direction {
	switch d {
	case parser.DirRight:
		return types.DirOutgoing
	case parser.DirLeft:
		return types.DirIncoming
	default:
		return types.DirBoth
	}
}

// planSeed chooses the cheapest entry point for a pattern's first node:
// a property index seek when the node's inline properties pin an indexed
// key, otherwise the smallest-cardinality label scan, otherwise a full
// AllNodesScan. This mirrors the teacher's selectNode loop (pkg/scheduler):
// scan candidates, keep the one with the lowest running estimate.
func (p *planner) planSeed(node *parser.NodePattern, slot int) operator.Op {
	labelIDs := make([]types.LabelID, 0, len(node.Labels))
	for _, l := range node.Labels {
		if id, ok := p.catalog.LookupLabelID(l); ok {
			labelIDs = append(labelIDs, id)
		} else {
			labelIDs = append(labelIDs, types.LabelID(types.UnsetID))
		}
	}

	for prop, expr := range node.Props {
		lit, ok := expr.(parser.Literal)
		if !ok {
			continue
		}
		keyID, ok := p.catalog.LookupKeyID(prop)
		if !ok {
			continue
		}
		for _, labelID := range labelIDs {
			if p.index.HasPropertyIndex(labelID, keyID) {
				return &operator.PropertyIndexSeek{
					Slot:  slot,
					Label: labelID,
					Key:   keyID,
					Value: literalToValue(lit.Value),
				}
			}
		}
	}

	if len(labelIDs) == 0 {
		return &operator.AllNodesScan{Slot: slot}
	}

	best := labelIDs[0]
	bestCard := p.index.LabelCardinality(best)
	for _, id := range labelIDs[1:] {
		if c := p.index.LabelCardinality(id); c < bestCard {
			best, bestCard = id, c
		}
	}
	return &operator.NodeByLabelScan{Slot: slot, Label: best}
}

func literalToValue(v interface{}) types.Value {
	switch x := v.(type) {
	case nil:
		return types.Null
	case bool:
		return types.BoolValue(x)
	case int64:
		return types.IntValue(x)
	case float64:
		return types.FloatValue(x)
	case string:
		return types.StringValue(x)
	default:
		return types.Null
	}
}

// seekExistingBinding seeds a correlated subpath from a variable already
// bound earlier in the pattern (e.g. MATCH (a)-->(b), (b)-->(c)): it reads
// the entity straight out of the carried-forward row rather than
// rescanning, since the row already IS the single candidate.
type seekExistingBinding struct {
	Slot int

	row  operator.Tuple
	done bool
}

func (s *seekExistingBinding) Open(ctx *operator.ExecContext) error {
	s.done = false
	return nil
}

func (s *seekExistingBinding) Next() (operator.Tuple, error) {
	if s.done {
		return nil, nil
	}
	s.done = true
	return s.row.Clone(), nil
}

func (s *seekExistingBinding) Close() error { return nil }
