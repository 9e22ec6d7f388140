/*
Package operator is the pull-based execution runtime: every physical
operator exposes Open/Next/Close over a shared ExecContext. Row-at-a-time
is the only path implemented for predicates and aggregates that cannot
vectorize; the batch constant (1024) bounds cancellation checks, so a
long-running query notices a canceled context at least once per 1024-row
batch.

Scan/Expand/Filter/Project/Distinct/OrderBy/Limit/Skip/Unwind/Aggregate/
Apply operators read through the Record Store and Index Manager. Create/
Set/Delete operators stage writes against a txn.Manager-issued
*types.Transaction and commit it inside their own Open, before yielding
any row, following the
teacher's dispatch-loop idiom (pkg/worker's per-item loop, generalized
from container lifecycle steps to graph mutation ops) rather than a
container-orchestration shape.
*/
package operator
