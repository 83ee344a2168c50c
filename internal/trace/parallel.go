package trace

import (
	"context"
	"sync"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/optics"
)

// Ensemble traces the same initial batch through several column
// variants concurrently, one goroutine per variant. Columns and the
// initial batch are read-only during the runs, so no locking is needed.
type Ensemble struct {
	variants []*column.Column
	build    func() *Tracer
}

// NewEnsemble runs one trace per column. build constructs a fresh
// tracer (with its own metric instances) per run; nil means a bare
// tracer.
func NewEnsemble(variants []*column.Column, build func() *Tracer) *Ensemble {
	if build == nil {
		build = New
	}
	return &Ensemble{variants: variants, build: build}
}

// Run returns one result per variant, in variant order. The first
// error (context cancellation is the only possibility) wins.
func (e *Ensemble) Run(ctx context.Context, initial *optics.Batch) ([]*Result, error) {
	results := make([]*Result, len(e.variants))
	errs := make([]error, len(e.variants))

	var wg sync.WaitGroup
	for i, col := range e.variants {
		wg.Add(1)
		go func(idx int, c *column.Column) {
			defer wg.Done()
			results[idx], errs[idx] = e.build().Trace(ctx, c, initial)
		}(i, col)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
