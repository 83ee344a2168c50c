// Package trace drives ray batches through a column and records the
// per-stage trajectory.
//
// A Tracer holds no state between calls: every Trace is an independent
// pure computation over its inputs, so concurrent runs for different
// parameter sets need no coordination (see [Ensemble]).
package trace

import (
	"context"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/optics"
)

// Metric observes the batch after every stage and reduces it to one
// number for the run summary.
type Metric interface {
	Name() string
	Observe(b *optics.Batch, e element.Element)
	Value() float64
	Reset()
}

// Observer receives the batch after every stage.
type Observer interface {
	OnStage(b *optics.Batch, e element.Element)
}

// Trajectory is the full per-stage history of one run: the initial
// batch plus one snapshot after every stage, in z-order. Stages[i]
// produced Batches[i+1]. Owned by the caller; the engine keeps nothing.
type Trajectory struct {
	Batches []*optics.Batch
	Stages  []element.Element
}

// Final returns the batch at the detector plane.
func (t *Trajectory) Final() *optics.Batch {
	return t.Batches[len(t.Batches)-1]
}

// RayPath reconstructs the polyline of one ray across every stage by
// indexing the same slot in each snapshot.
func (t *Trajectory) RayPath(id int) ([]optics.Ray, bool) {
	path := make([]optics.Ray, 0, len(t.Batches))
	for _, b := range t.Batches {
		r, ok := b.Ray(id)
		if !ok {
			return nil, false
		}
		path = append(path, r)
	}
	return path, true
}

// Result bundles a trajectory with the run's metric values.
type Result struct {
	Trajectory *Trajectory
	Metrics    map[string]float64
	Blocked    int
}

// Tracer propagates batches through columns. Metrics and observers are
// fixed at setup; Trace itself mutates nothing on the tracer.
type Tracer struct {
	metrics   []Metric
	observers []Observer
}

func New() *Tracer {
	return &Tracer{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (tr *Tracer) AddMetric(m Metric)     { tr.metrics = append(tr.metrics, m) }
func (tr *Tracer) AddObserver(o Observer) { tr.observers = append(tr.observers, o) }

// Trace applies every column stage to the initial batch exactly once,
// in z-order, recording each snapshot. The initial batch is never
// mutated. The context is checked between stages only; over validated
// inputs the run cannot fail otherwise.
func (tr *Tracer) Trace(ctx context.Context, col *column.Column, initial *optics.Batch) (*Result, error) {
	for _, m := range tr.metrics {
		m.Reset()
	}

	traj := &Trajectory{
		Batches: make([]*optics.Batch, 0, len(col.Stages)+1),
		Stages:  make([]element.Element, 0, len(col.Stages)),
	}

	b := initial.Clone()
	b.Z = col.SourceZ
	traj.Batches = append(traj.Batches, b)

	for _, stage := range col.Stages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		b = stage.Transform(b)
		traj.Batches = append(traj.Batches, b)
		traj.Stages = append(traj.Stages, stage)

		for _, m := range tr.metrics {
			m.Observe(b, stage)
		}
		for _, o := range tr.observers {
			o.OnStage(b, stage)
		}
	}

	res := &Result{
		Trajectory: traj,
		Metrics:    make(map[string]float64, len(tr.metrics)),
		Blocked:    traj.Final().BlockedCount(),
	}
	for _, m := range tr.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}
