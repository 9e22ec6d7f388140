package engine

import (
	"strings"
	"time"

	"github.com/nexusdb/nexus/pkg/operator"
	"github.com/nexusdb/nexus/pkg/parser"
	"github.com/nexusdb/nexus/pkg/planner"
	"github.com/nexusdb/nexus/pkg/types"
)

// cachedPlan is what the plan cache stores: a compiled Plan plus the
// catalog version it was compiled against, since a label/type/key interned
// after caching would otherwise leave scan operators pointed at stale ids.
type cachedPlan struct {
	plan       *planner.Plan
	catalogVer uint64
}

// Cell is one column's value in a result Row: either a live node/
// relationship (by reference into the Store, as Cypher returns entities,
// not copies) or a plain scalar.
type Cell struct {
	Kind operator.BindingKind
	Node *types.Node
	Rel  *types.Relationship
	Val  types.Value
}

// Row is one output record, one Cell per ResultSet.Columns entry.
type Row []Cell

// ResultSet is the outcome of one ExecuteCypher call.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// QueryRecord is one entry in the Engine's bounded recent-query ring
// buffer, read by Engine.RecentQueries.
type QueryRecord struct {
	Text     string
	Duration time.Duration
	Rows     int
	Err      error
}

const recentQueryCapacity = 100

// ExecuteCypher parses, plans (or reuses a cached plan) and runs one Cypher
// statement, returning every row it produces. A write clause's operator
// commits its own transaction as it runs (see pkg/operator); by the time
// ExecuteCypher returns, any write in text is already durable.
func (e *Engine) ExecuteCypher(text string, params map[string]types.Value) (*ResultSet, error) {
	start := time.Now()
	rs, err := e.executeCypher(text, params)
	e.recordQuery(text, time.Since(start), rs, err)
	return rs, err
}

func (e *Engine) executeCypher(text string, params map[string]types.Value) (*ResultSet, error) {
	plan, err := e.planFor(text)
	if err != nil {
		return nil, err
	}

	var cancel chan struct{}
	if timeout := e.queryTimeout(); timeout > 0 {
		cancel = make(chan struct{})
		timer := time.AfterFunc(timeout, func() { close(cancel) })
		defer timer.Stop()
	}

	ctx := &operator.ExecContext{
		Store:   e.store,
		Index:   e.index,
		Catalog: e.catalog,
		TxnMgr:  e.txnMgr,
		Params:  params,
		Cancel:  cancel,
	}

	root := plan.plan.Root
	if err := root.Open(ctx); err != nil {
		return nil, err
	}
	defer root.Close()

	rs := &ResultSet{Columns: plan.plan.Columns}
	for {
		tuple, err := root.Next()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			break
		}
		row, err := e.renderRow(tuple)
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, row)
	}
	return rs, nil
}

// renderRow resolves each output Tuple slot's live Binding into a
// user-facing Cell, fetching the full node/relationship record for an
// entity binding.
func (e *Engine) renderRow(tuple operator.Tuple) (Row, error) {
	row := make(Row, len(tuple))
	for i, b := range tuple {
		cell := Cell{Kind: b.Kind, Val: b.Val}
		switch b.Kind {
		case operator.BindNode:
			n, err := e.store.GetNode(b.Node)
			if err != nil {
				return nil, err
			}
			cell.Node = n
		case operator.BindRel:
			r, err := e.store.GetRel(b.Rel)
			if err != nil {
				return nil, err
			}
			cell.Rel = r
		}
		row[i] = cell
	}
	return row, nil
}

// planFor compiles text, or returns the cached plan if one exists for this
// exact query text and the catalog hasn't changed since it was cached.
func (e *Engine) planFor(text string) (*cachedPlan, error) {
	key := cacheKey(text)
	ver := e.catalog.Snapshot().Version

	if cp, ok := e.planCache.Get(key); ok && cp.catalogVer == ver {
		return cp, nil
	}

	q, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Compile(q, e.catalog, e.index)
	if err != nil {
		return nil, err
	}

	cp := &cachedPlan{plan: plan, catalogVer: ver}
	e.planCache.Add(key, cp)
	return cp, nil
}

// cacheKey keys the plan cache purely on query text: the planner compiles
// parameter *references* ($param), never parameter values, so two calls
// with the same text and different Params hit the same cached plan.
func cacheKey(text string) string {
	return strings.TrimSpace(text)
}

func (e *Engine) recordQuery(text string, d time.Duration, rs *ResultSet, err error) {
	rec := QueryRecord{Text: text, Duration: d, Err: err}
	if rs != nil {
		rec.Rows = len(rs.Rows)
	}
	e.recentMu.Lock()
	defer e.recentMu.Unlock()
	e.recent = append(e.recent, rec)
	if len(e.recent) > recentQueryCapacity {
		e.recent = e.recent[len(e.recent)-recentQueryCapacity:]
	}
}

// RecentQueries returns the most recent queries this Engine has executed,
// oldest first, bounded to recentQueryCapacity entries.
func (e *Engine) RecentQueries() []QueryRecord {
	e.recentMu.Lock()
	defer e.recentMu.Unlock()
	out := make([]QueryRecord, len(e.recent))
	copy(out, e.recent)
	return out
}
