package trace

import (
	"context"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/optics"
)

// Propagate runs the column over the batch without recording snapshots
// or metrics. It serves hot paths like parameter sweeps where only the
// final plane matters; the working buffer comes from pool and the
// caller returns the result with pool.Put when done with it.
func Propagate(ctx context.Context, col *column.Column, initial *optics.Batch, pool *optics.Pool) (*optics.Batch, error) {
	b := pool.GetAndCopy(initial)
	b.Z = col.SourceZ
	for _, stage := range col.Stages {
		if err := ctx.Err(); err != nil {
			pool.Put(b)
			return nil, err
		}
		stage.TransformInto(b, b)
	}
	return b, nil
}
