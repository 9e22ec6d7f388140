/*
Package planner lowers a parsed Cypher AST (pkg/parser) into a physical
operator tree (pkg/operator). It chooses each path's seed scan by smallest
estimated cardinality and walks the path's relationships in order,
following the teacher's min-candidate selection loop (pkg/scheduler's
selectNode, which tracked a running minimum container count per node —
adapted here to track a running minimum label cardinality per candidate
seed label instead of container load).

Every pattern path after the plan's first is joined in through Apply: its
chain is re-opened per left row, seeded from the left row's binding
(seekExistingBinding) when its first variable is already bound and from
its own scan otherwise. OPTIONAL MATCH sets Apply's Optional flag; an
OPTIONAL MATCH that opens the query compiles like a plain MATCH. WITH acts
as a horizon — a Project that narrows the live variable set before the
next clause compiles its own Scope. MERGE lowers to Merge(matchPlan,
createPlan): the same pattern compiled twice, once as a read and once as
a write, so the create path only runs when the read found nothing.
*/
package planner
