package trace

import (
	"context"
	"math"
	"testing"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/metrics"
	"github.com/temgo/temtrace/internal/optics"
	"github.com/temgo/temtrace/internal/source"
)

func TestTrace_SingleLensEndToEnd(t *testing.T) {
	// One thin lens (f=5) at z=5 in a 0..10 column. A ray leaving the
	// source on axis with dx=0.1 reaches the lens at x=0.5, so the lens
	// removes its slope entirely (0.1 - 0.5/5 = 0) and it arrives at
	// the detector still at x=0.5. f equals the lens-to-detector
	// distance, so a parallel ray focuses onto the axis there.
	lens, err := element.NewLens(5, 5)
	if err != nil {
		t.Fatal(err)
	}
	col, err := column.Build([]element.Element{lens}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	b := optics.NewBatch(1)
	b.Dx[0] = 0.1

	res, err := New().Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	// Stages: drift(5), lens, drift(5) -> 4 snapshots.
	traj := res.Trajectory
	if len(traj.Batches) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(traj.Batches))
	}

	atLens := traj.Batches[2]
	if math.Abs(atLens.X[0]-0.5) > 1e-12 {
		t.Errorf("x at lens = %g, want 0.5", atLens.X[0])
	}
	wantDx := 0.1 - 0.5/5.0
	if math.Abs(atLens.Dx[0]-wantDx) > 1e-12 {
		t.Errorf("dx after lens = %g, want %g", atLens.Dx[0], wantDx)
	}

	final := traj.Final()
	wantX := 0.5 + wantDx*5
	if math.Abs(final.X[0]-wantX) > 1e-12 {
		t.Errorf("final x = %g, want %g", final.X[0], wantX)
	}
	if math.Abs(final.Z-10) > 1e-12 {
		t.Errorf("final z = %g, want 10", final.Z)
	}
}

func TestTrace_LensPlaneOnAxisRay(t *testing.T) {
	// A ray crossing the axis exactly at the lens plane keeps its
	// slope, so final x = 0.1*10 = 1.0. Start the ray at x=-0.5 so it
	// reaches x=0 at z=5.
	lens, _ := element.NewLens(5, 5)
	col, err := column.Build([]element.Element{lens}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	b := optics.NewBatch(1)
	b.X[0] = -0.5
	b.Dx[0] = 0.1

	res, err := New().Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	final := res.Trajectory.Final()
	if math.Abs(final.Dx[0]-0.1) > 1e-12 {
		t.Errorf("final dx = %g, want 0.1 (lens is a no-op on axis)", final.Dx[0])
	}
	if math.Abs(final.X[0]-0.5) > 1e-12 {
		t.Errorf("final x = %g, want 0.5", final.X[0])
	}
}

func TestTrace_ApertureLine(t *testing.T) {
	// Five parallel rays on a horizontal line through a circular
	// aperture of radius 2 at z=3: |x| > 2 blocks, |x| <= 2 passes
	// unchanged.
	ap, err := element.NewAperture(3, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	col, err := column.Build([]element.Element{ap}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	b, err := source.Generate(source.Spec{Shape: source.Line, Count: 5, Radius: 4})
	if err != nil {
		t.Fatal(err)
	}

	res, err := New().Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	final := res.Trajectory.Final()
	// Positions -4 -2 0 2 4: only the outermost two are blocked.
	wantBlocked := []bool{true, false, false, false, true}
	for i, w := range wantBlocked {
		if final.Blocked[i] != w {
			t.Errorf("ray %d blocked = %v, want %v", i, final.Blocked[i], w)
		}
	}
	if res.Blocked != 2 {
		t.Errorf("Result.Blocked = %d, want 2", res.Blocked)
	}

	// Admitted rays keep their line positions (zero slope).
	for _, i := range []int{1, 2, 3} {
		if final.X[i] != b.X[i] {
			t.Errorf("admitted ray %d moved: %g -> %g", i, b.X[i], final.X[i])
		}
	}
	// Blocked rays froze at the aperture plane.
	if final.X[0] != -4 || final.X[4] != 4 {
		t.Errorf("blocked rays moved: %g, %g", final.X[0], final.X[4])
	}
}

func TestTrace_BlockedSetMonotone(t *testing.T) {
	ap1, _ := element.NewAperture(2, 0, 3)
	ap2, _ := element.NewAperture(6, 0, 1.5)
	col, err := column.Build([]element.Element{ap1, ap2}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	b, err := source.Generate(source.Spec{Shape: source.Line, Count: 9, Radius: 4})
	if err != nil {
		t.Fatal(err)
	}

	res, err := New().Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	prev := map[int]bool{}
	for stage, snap := range res.Trajectory.Batches {
		for _, id := range snap.BlockedIDs() {
			prev[id] = true
		}
		// Every previously blocked id must still be blocked here.
		blocked := map[int]bool{}
		for _, id := range snap.BlockedIDs() {
			blocked[id] = true
		}
		for id := range prev {
			if !blocked[id] {
				t.Fatalf("ray %d unblocked at stage %d", id, stage)
			}
		}
	}
}

func TestTrace_DoesNotMutateInitialBatch(t *testing.T) {
	lens, _ := element.NewLens(5, 5)
	col, _ := column.Build([]element.Element{lens}, 0, 10)

	b := optics.NewBatch(2)
	b.Dx[0] = 0.1

	if _, err := New().Trace(context.Background(), col, b); err != nil {
		t.Fatal(err)
	}
	if b.X[0] != 0 || b.Dx[0] != 0.1 || b.Z != 0 {
		t.Errorf("initial batch mutated: %+v", b)
	}
}

func TestTrace_Metrics(t *testing.T) {
	ap, _ := element.NewAperture(5, 0, 1)
	col, _ := column.Build([]element.Element{ap}, 0, 10)

	b, _ := source.Generate(source.Spec{Shape: source.Line, Count: 5, Radius: 2})

	tr := New()
	tr.AddMetric(metrics.NewSpotRadius())
	tr.AddMetric(metrics.NewBlockedFraction())

	res, err := tr.Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	// Line at -2 -1 0 1 2: the two outer rays block at the aperture.
	if got := res.Metrics["blocked_fraction"]; math.Abs(got-0.4) > 1e-12 {
		t.Errorf("blocked_fraction = %g, want 0.4", got)
	}
	if _, ok := res.Metrics["spot_radius"]; !ok {
		t.Error("spot_radius metric missing from result")
	}
}

func TestTrace_RayPath(t *testing.T) {
	lens, _ := element.NewLens(5, 5)
	col, _ := column.Build([]element.Element{lens}, 0, 10)

	b := optics.NewBatch(3)
	b.Dx[1] = 0.1

	res, err := New().Trace(context.Background(), col, b)
	if err != nil {
		t.Fatal(err)
	}

	path, ok := res.Trajectory.RayPath(1)
	if !ok {
		t.Fatal("RayPath(1) not found")
	}
	if len(path) != len(res.Trajectory.Batches) {
		t.Fatalf("path has %d points, want %d", len(path), len(res.Trajectory.Batches))
	}
	if path[0].Z != 0 || path[len(path)-1].Z != 10 {
		t.Errorf("path spans z %g..%g, want 0..10", path[0].Z, path[len(path)-1].Z)
	}

	if _, ok := res.Trajectory.RayPath(7); ok {
		t.Error("RayPath(7) should not exist")
	}
}

func TestTrace_Canceled(t *testing.T) {
	col, _ := column.Build(nil, 0, 10)
	b := optics.NewBatch(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Trace(ctx, col, b); err == nil {
		t.Error("expected context error")
	}
}

func TestEnsemble(t *testing.T) {
	focals := []float64{2, 4, 6, 8}
	variants := make([]*column.Column, len(focals))
	for i, f := range focals {
		lens, _ := element.NewLens(5, f)
		col, err := column.Build([]element.Element{lens}, 0, 10)
		if err != nil {
			t.Fatal(err)
		}
		variants[i] = col
	}

	b, _ := source.Generate(source.Spec{Shape: source.Parallel, Count: 32, Radius: 1})

	ens := NewEnsemble(variants, nil)
	results, err := ens.Run(context.Background(), b)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(focals) {
		t.Fatalf("got %d results", len(results))
	}

	// f=5 would focus exactly at the detector; among the variants the
	// finals must simply differ, confirming independent runs.
	r0 := results[0].Trajectory.Final().RMSRadius()
	r3 := results[3].Trajectory.Final().RMSRadius()
	if r0 == r3 {
		t.Error("ensemble variants produced identical final spots")
	}
}

func TestPropagate_MatchesTrace(t *testing.T) {
	lens, _ := element.NewLens(4, 2.5)
	ap, _ := element.NewAperture(6, 0, 0.5)
	col, err := column.Build([]element.Element{lens, ap}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	beam, err := source.Generate(source.Spec{Shape: source.Parallel, Count: 24, Radius: 1})
	if err != nil {
		t.Fatal(err)
	}

	res, err := New().Trace(context.Background(), col, beam)
	if err != nil {
		t.Fatal(err)
	}
	want := res.Trajectory.Final()

	pool := optics.NewPool(beam.Len())
	got, err := Propagate(context.Background(), col, beam, pool)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Put(got)

	if got.Z != want.Z {
		t.Errorf("z = %g, want %g", got.Z, want.Z)
	}
	for i := range want.X {
		if got.X[i] != want.X[i] || got.Y[i] != want.Y[i] || got.Blocked[i] != want.Blocked[i] {
			t.Errorf("ray %d: got (%g, %g, %v), want (%g, %g, %v)",
				i, got.X[i], got.Y[i], got.Blocked[i], want.X[i], want.Y[i], want.Blocked[i])
		}
	}
}

func TestPropagate_Canceled(t *testing.T) {
	lens, _ := element.NewLens(5, 5)
	col, err := column.Build([]element.Element{lens}, 0, 10)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := optics.NewPool(1)
	if _, err := Propagate(ctx, col, optics.NewBatch(1), pool); err == nil {
		t.Error("Propagate() with canceled context did not fail")
	}
}
