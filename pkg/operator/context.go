package operator

import (
	"github.com/nexusdb/nexus/pkg/catalog"
	"github.com/nexusdb/nexus/pkg/index"
	"github.com/nexusdb/nexus/pkg/nexuserr"
	"github.com/nexusdb/nexus/pkg/store"
	"github.com/nexusdb/nexus/pkg/txn"
	"github.com/nexusdb/nexus/pkg/types"
)

// BatchSize bounds cancellation-check cadence: CheckCancel looks at the
// cancel signal once per BatchSize rows.
const BatchSize = 1024

// ExecContext is threaded through every operator's Open/Next: the storage
// dependencies a read needs, the txn.Manager and staged Transaction a
// write stages into, query parameters, and a cancellation signal checked
// every BatchSize rows.
type ExecContext struct {
	Store   *store.Store
	Index   *index.Manager
	Catalog *catalog.Catalog
	TxnMgr  *txn.Manager
	Params  map[string]types.Value
	Tx      *types.Transaction
	Cancel  <-chan struct{}

	rowsSinceCheck int
}

// CheckCancel returns Canceled once every BatchSize calls if Cancel has
// fired, and is a no-op otherwise; operators call it once per produced
// row.
func (c *ExecContext) CheckCancel() error {
	c.rowsSinceCheck++
	if c.rowsSinceCheck < BatchSize {
		return nil
	}
	c.rowsSinceCheck = 0
	if c.Cancel == nil {
		return nil
	}
	select {
	case <-c.Cancel:
		return nexuserr.Canceled()
	default:
		return nil
	}
}

// Op is a pull-based physical operator: Open prepares iteration (and may
// itself perform the operator's work, e.g. a Create), Next returns the
// next Tuple or (nil, nil) at end, Close releases resources. Next must
// not be called after it has returned (nil, nil) or a non-nil error.
type Op interface {
	Open(ctx *ExecContext) error
	Next() (Tuple, error)
	Close() error
}

// Source reads types.Node/types.Relationship by id, used by ops that
// bind entities and by expression evaluation (property access).
type Source interface {
	GetNode(id types.NodeID) (*types.Node, error)
	GetRel(id types.RelID) (*types.Relationship, error)
}
