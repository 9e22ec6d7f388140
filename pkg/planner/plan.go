package planner

import (
	"github.com/nexusdb/nexus/pkg/catalog"
	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
)

// Plan is one compiled query: a runnable operator tree, the Scope its
// Tuples were compiled against, and the output column names RETURN (or
// the trailing WITH, for a query with no RETURN) named.
type Plan struct {
	Root    operator.Op
	Scope   *operator.Scope
	Columns []string
}

// planner carries the catalog/index stats used for seed and expand
// cardinality estimates, and the Scope being built up clause by clause.
type planner struct {
	catalog *catalog.Catalog
	index   *index.Manager
	scope   *operator.Scope
}

// Compile lowers q into a physical operator tree. Catalog/index are
// consulted for label/type/key interning and for cardinality estimates;
// Compile never mutates stored data, only (when a CREATE/SET/MERGE/DELETE
// clause is present) the operator tree it returns will, once run.
func Compile(q *parser.Query, cat *catalog.Catalog, idx *index.Manager) (*Plan, error) {
	p := &planner{catalog: cat, index: idx, scope: operator.NewScope()}

	var root operator.Op
	var columns []string

	for _, clause := range q.Clauses {
		var err error
		root, columns, err = p.compileClause(clause, root)
		if err != nil {
			return nil, err
		}
	}

	if root == nil {
		return nil, nexuserr.PlanError("query has no clauses")
	}
	return &Plan{Root: root, Scope: p.scope, Columns: columns}, nil
}

func (p *planner) compileClause(clause parser.Clause, root operator.Op) (operator.Op, []string, error) {
	switch c := clause.(type) {
	case parser.MatchClause:
		next, err := p.compileMatch(c, root)
		return next, nil, err
	case parser.CreateClause:
		next, err := p.compileCreate(c, root)
		return next, nil, err
	case parser.MergeClause:
		next, err := p.compileMerge(c, root)
		return next, nil, err
	case parser.SetClause:
		next, err := p.compileSet(c, root)
		return next, nil, err
	case parser.DeleteClause:
		next, err := p.compileDelete(c, root)
		return next, nil, err
	case parser.UnwindClause:
		next, err := p.compileUnwind(c, root)
		return next, nil, err
	case parser.WithClause:
		return p.compileWith(c, root)
	case parser.ReturnClause:
		return p.compileReturn(c, root)
	default:
		return nil, nil, nexuserr.PlanError("unsupported clause type")
	}
}

