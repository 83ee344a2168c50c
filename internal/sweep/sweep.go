// Package sweep searches element parameter grids for the setting that
// minimizes a beam metric, e.g. the objective focal length giving the
// smallest detector spot.
package sweep

import (
	"context"
	"math"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/optics"
	"github.com/temgo/temtrace/internal/trace"
)

// Objective evaluates one parameter assignment and returns the value to
// minimize. Build errors (invalid parameter combinations) skip the
// point rather than aborting the search.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// GridSearch exhaustively evaluates the cross product of the per-
// parameter candidate values.
type GridSearch struct {
	names  []string
	ranges [][]float64
}

func NewGridSearch(names []string, ranges [][]float64) *GridSearch {
	return &GridSearch{names: names, ranges: ranges}
}

// Search returns the best assignment and its objective value. If every
// point fails to evaluate, best is nil and the value +Inf.
func (g *GridSearch) Search(ctx context.Context, eval Objective) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), eval, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	eval Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.names) {
		val, err := eval(ctx, current)
		if err != nil {
			return nil // invalid point, keep searching
		}
		if val < *best {
			*best = val
			picked := make(map[string]float64, len(current))
			for k, v := range current {
				picked[k] = v
			}
			*bestParams = picked
		}
		return nil
	}

	name := g.names[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, eval, best, bestParams); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

// Focus sweeps the focal length of the lens at explicit-element index
// lensIdx over the candidate values and returns the focal length whose
// trace yields the smallest RMS spot at the detector plane.
func Focus(ctx context.Context, col *column.Column, lensIdx int, focals []float64, initial *optics.Batch) (float64, float64, error) {
	gs := NewGridSearch([]string{"focal"}, [][]float64{focals})
	pool := optics.NewPool(initial.Len())

	best, spot, err := gs.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		lens, err := element.NewLens(col.Explicit[lensIdx].Z, params["focal"])
		if err != nil {
			return 0, err
		}
		variant, err := col.WithElement(lensIdx, lens)
		if err != nil {
			return 0, err
		}
		final, err := trace.Propagate(ctx, variant, initial, pool)
		if err != nil {
			return 0, err
		}
		r := final.RMSRadius()
		pool.Put(final)
		return r, nil
	})
	if err != nil {
		return 0, 0, err
	}
	if best == nil {
		return 0, spot, optics.ConfigErr(optics.ErrZeroFocalLength, "focal", 0)
	}
	return best["focal"], spot, nil
}
