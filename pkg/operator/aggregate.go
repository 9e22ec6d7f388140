package operator

import "github.com/nexusdb/nexus/pkg/types"

// AggSpec is one aggregate projection: its function, its (optional)
// argument expression, DISTINCT and the count(*) star flag.
type AggSpec struct {
	Func     string
	Arg      CompiledExpr
	HasArg   bool
	Distinct bool
	Star     bool
}

// Aggregate groups its input by GroupExprs and accumulates Aggs per group,
// emitting one row per distinct group key (or exactly one row with
// empty-group defaults when GroupExprs is empty and the input produced no
// rows at all, matching count(*)=0 / sum,avg,min,max=null / collect=[]).
type Aggregate struct {
	Input      Op
	GroupExprs []CompiledExpr
	Aggs       []AggSpec

	rows []Tuple
	pos  int
}

type aggAccum struct {
	count     int64
	sum       float64
	sumSet    bool
	min, max  types.Value
	minSet    bool
	collected []types.Value
	distinct  map[string]bool
}

func newAccum() *aggAccum { return &aggAccum{distinct: map[string]bool{}} }

func (a *aggAccum) add(spec AggSpec, v types.Value) {
	if spec.Star {
		a.count++
		return
	}
	if v.IsNull() {
		return
	}
	if spec.Distinct {
		key := valueKey(v)
		if a.distinct[key] {
			return
		}
		a.distinct[key] = true
	}
	a.count++
	switch spec.Func {
	case "sum", "avg":
		a.sum += asFloat(v)
		a.sumSet = true
	case "min":
		if !a.minSet || CompareValues(v, a.min) < 0 {
			a.min = v
			a.minSet = true
		}
	case "max":
		if !a.minSet || CompareValues(v, a.max) > 0 {
			a.max = v
			a.minSet = true
		}
	case "collect":
		a.collected = append(a.collected, v)
	}
}

func (a *aggAccum) result(spec AggSpec) types.Value {
	switch spec.Func {
	case "count":
		return types.IntValue(a.count)
	case "sum":
		if !a.sumSet {
			return types.Null
		}
		return types.FloatValue(a.sum)
	case "avg":
		if !a.sumSet || a.count == 0 {
			return types.Null
		}
		return types.FloatValue(a.sum / float64(a.count))
	case "min":
		if !a.minSet {
			return types.Null
		}
		return a.min
	case "max":
		if !a.minSet {
			return types.Null
		}
		return a.max
	case "collect":
		if a.collected == nil {
			return types.ListValue(nil)
		}
		return types.ListValue(a.collected)
	default:
		return types.Null
	}
}

func (a *Aggregate) Open(ctx *ExecContext) error {
	if err := a.Input.Open(ctx); err != nil {
		return err
	}

	groups := map[string][]Binding{}
	order := []string{}
	accums := map[string][]*aggAccum{}

	sawRow := false
	for {
		row, err := a.Input.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}
		sawRow = true
		keys := make([]Binding, len(a.GroupExprs))
		for i, g := range a.GroupExprs {
			b, err := g.EvalBinding(ctx, row)
			if err != nil {
				return err
			}
			keys[i] = b
		}
		gk := rowKeyFromTuple(keys)
		if _, ok := groups[gk]; !ok {
			groups[gk] = keys
			order = append(order, gk)
			accs := make([]*aggAccum, len(a.Aggs))
			for i := range accs {
				accs[i] = newAccum()
			}
			accums[gk] = accs
		}
		accs := accums[gk]
		for i, spec := range a.Aggs {
			var v types.Value
			if spec.HasArg {
				v, err = spec.Arg.Eval(ctx, row)
				if err != nil {
					return err
				}
				if spec.Func == "count" && v.IsNull() {
					// A bound node or relationship counts as one non-null
					// value; its id keys count(DISTINCT ...).
					if b, err := spec.Arg.EvalBinding(ctx, row); err == nil && b.Kind == BindNode {
						v = types.IntValue(int64(b.Node))
					} else if err == nil && b.Kind == BindRel {
						v = types.IntValue(int64(b.Rel))
					}
				}
			}
			accs[i].add(spec, v)
		}
	}

	if !sawRow && len(a.GroupExprs) == 0 {
		accs := make([]*aggAccum, len(a.Aggs))
		for i := range accs {
			accs[i] = newAccum()
		}
		order = []string{""}
		groups[""] = nil
		accums[""] = accs
	}

	a.rows = make([]Tuple, 0, len(order))
	for _, gk := range order {
		keys := groups[gk]
		accs := accums[gk]
		out := make(Tuple, len(keys)+len(a.Aggs))
		for i, k := range keys {
			out[i] = k
		}
		for i, spec := range a.Aggs {
			out[len(keys)+i] = ValueBinding(accs[i].result(spec))
		}
		a.rows = append(a.rows, out)
	}
	a.pos = 0
	return nil
}

func (a *Aggregate) Next() (Tuple, error) {
	if a.pos >= len(a.rows) {
		return nil, nil
	}
	row := a.rows[a.pos]
	a.pos++
	return row, nil
}

func (a *Aggregate) Close() error { return a.Input.Close() }
