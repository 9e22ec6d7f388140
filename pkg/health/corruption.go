package health

import (
	"context"
	"time"
)

// StoreCorruptChecker runs Probe (typically a cheap store/catalog
// consistency check supplied by pkg/engine) and reports unhealthy if it
// returns an error.
type StoreCorruptChecker struct {
	Probe func() error
}

func NewStoreCorruptChecker(probe func() error) *StoreCorruptChecker {
	return &StoreCorruptChecker{Probe: probe}
}

func (c *StoreCorruptChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := c.Probe(); err != nil {
		return Result{Healthy: false, Message: err.Error(), CheckedAt: start, Duration: time.Since(start)}
	}
	return Result{Healthy: true, Message: "store consistent", CheckedAt: start, Duration: time.Since(start)}
}

func (c *StoreCorruptChecker) Type() CheckType { return CheckTypeStoreCorrupt }
