package element

import (
	"errors"
	"math"
	"testing"

	"github.com/temgo/temtrace/internal/optics"
)

func TestConstructorValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() error
		wantErr error
	}{
		{"lens zero focal", func() error { _, err := NewLens(5, 0); return err }, optics.ErrZeroFocalLength},
		{"lens diverging ok", func() error { _, err := NewLens(5, -2); return err }, nil},
		{"lens infinite ok", func() error { _, err := NewLens(5, math.Inf(1)); return err }, nil},
		{"drift negative", func() error { _, err := NewDrift(-1); return err }, optics.ErrNegativeDrift},
		{"drift zero ok", func() error { _, err := NewDrift(0); return err }, nil},
		{"aperture negative outer", func() error { _, err := NewAperture(3, 0, -2); return err }, optics.ErrBadAperture},
		{"aperture inverted", func() error { _, err := NewAperture(3, 2, 1); return err }, optics.ErrBadAperture},
		{"aperture ok", func() error { _, err := NewAperture(3, 0, 2); return err }, nil},
		{"biprism negative wire", func() error { _, err := NewBiprism(3, -0.1, 0.01); return err }, optics.ErrBadAperture},
		{"double deflector inverted", func() error { _, err := NewDoubleDeflector(2, 1, 0.1, -0.1); return err }, optics.ErrDuplicateZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var cfgErr *optics.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %v is not a ConfigurationError", err)
			}
		})
	}
}

func TestDriftAdditivity(t *testing.T) {
	// Drift(d1) then Drift(d2) must equal Drift(d1+d2).
	cases := []struct{ d1, d2 float64 }{
		{1, 2}, {0, 5}, {3.5, 0}, {0.1, 0.9},
	}

	for _, c := range cases {
		b := optics.NewBatch(3)
		b.X[0], b.Dx[0] = 0.5, 0.1
		b.Y[1], b.Dy[1] = -0.2, 0.05
		b.Dx[2], b.Dy[2] = -0.03, 0.02

		d1, _ := NewDrift(c.d1)
		d2, _ := NewDrift(c.d2)
		dSum, _ := NewDrift(c.d1 + c.d2)

		stepped := d2.Transform(d1.Transform(b))
		direct := dSum.Transform(b)

		for i := range stepped.X {
			if math.Abs(stepped.X[i]-direct.X[i]) > 1e-12 ||
				math.Abs(stepped.Y[i]-direct.Y[i]) > 1e-12 {
				t.Errorf("d1=%g d2=%g ray %d: stepped (%g,%g) direct (%g,%g)",
					c.d1, c.d2, i, stepped.X[i], stepped.Y[i], direct.X[i], direct.Y[i])
			}
			if stepped.Dx[i] != direct.Dx[i] || stepped.Dy[i] != direct.Dy[i] {
				t.Errorf("drift changed slope of ray %d", i)
			}
		}
		if math.Abs(stepped.Z-direct.Z) > 1e-12 {
			t.Errorf("z mismatch: %g vs %g", stepped.Z, direct.Z)
		}
	}
}

func TestLensTransform(t *testing.T) {
	lens, _ := NewLens(5, 2.0)

	b := optics.NewBatch(2)
	b.X[0], b.Y[0] = 1.0, -0.5
	b.Dx[1] = 0.1

	out := lens.Transform(b)

	// dx -= x/f, position unchanged.
	if out.X[0] != 1.0 || out.Y[0] != -0.5 {
		t.Errorf("lens moved ray position: (%g,%g)", out.X[0], out.Y[0])
	}
	if math.Abs(out.Dx[0]-(-0.5)) > 1e-12 || math.Abs(out.Dy[0]-0.25) > 1e-12 {
		t.Errorf("lens slope = (%g,%g), want (-0.5,0.25)", out.Dx[0], out.Dy[0])
	}
	// On-axis ray keeps its slope.
	if out.Dx[1] != 0.1 {
		t.Errorf("on-axis ray slope changed: %g", out.Dx[1])
	}
}

func TestLensInfiniteFocalIsIdentity(t *testing.T) {
	lens, _ := NewLens(5, math.Inf(1))

	b := optics.NewBatch(3)
	b.X[0], b.Dx[0] = 2.0, 0.3
	b.Y[1], b.Dy[1] = -1.0, -0.2

	out := lens.Transform(b)
	for i := range b.X {
		if out.Dx[i] != b.Dx[i] || out.Dy[i] != b.Dy[i] {
			t.Errorf("ray %d slope changed under f=Inf", i)
		}
		if out.X[i] != b.X[i] || out.Y[i] != b.Y[i] {
			t.Errorf("ray %d position changed under f=Inf", i)
		}
	}
}

func TestDeflectorUniformOffset(t *testing.T) {
	defl, _ := NewDeflector(3, 0.05, -0.02, 0.1, 0)

	b := optics.NewBatch(2)
	b.Dx[1] = 0.2
	b.X[1] = 1.0

	out := defl.Transform(b)
	for i := range out.X {
		if math.Abs(out.Dx[i]-(b.Dx[i]+0.05)) > 1e-12 || math.Abs(out.Dy[i]-(b.Dy[i]-0.02)) > 1e-12 {
			t.Errorf("ray %d slope offset wrong: (%g,%g)", i, out.Dx[i], out.Dy[i])
		}
		if math.Abs(out.X[i]-(b.X[i]+0.1)) > 1e-12 {
			t.Errorf("ray %d shift wrong: %g", i, out.X[i])
		}
	}
}

func TestApertureBoundaryInclusive(t *testing.T) {
	ap, _ := NewAperture(3, 0, 2.0)

	b := optics.NewBatch(4)
	b.X[0] = 2.0  // exactly on the rim: admitted
	b.X[1] = 2.01 // outside: blocked
	b.X[2] = -1.0 // inside
	b.Y[3] = 3.0  // outside on y

	out := ap.Transform(b)
	want := []bool{false, true, false, true}
	for i, w := range want {
		if out.Blocked[i] != w {
			t.Errorf("ray %d blocked = %v, want %v", i, out.Blocked[i], w)
		}
	}
}

func TestAnnularAperture(t *testing.T) {
	ap, _ := NewAperture(3, 1.0, 2.0)

	b := optics.NewBatch(3)
	b.X[0] = 0.5 // inside the stop
	b.X[1] = 1.5 // in the annulus
	b.X[2] = 1.0 // on the inner rim: admitted

	out := ap.Transform(b)
	if !out.Blocked[0] || out.Blocked[1] || out.Blocked[2] {
		t.Errorf("annular blocking = %v", out.Blocked)
	}
}

func TestBlockedRaysAreFrozen(t *testing.T) {
	b := optics.NewBatch(2)
	b.X[0], b.Dx[0] = 1.0, 0.1
	b.X[1], b.Dx[1] = 1.0, 0.1
	b.Blocked[0] = true

	drift, _ := NewDrift(5)
	lens, _ := NewLens(5, 2)
	defl, _ := NewDeflector(5, 0.1, 0, 0, 0)

	out := defl.Transform(lens.Transform(drift.Transform(b)))

	if out.X[0] != 1.0 || out.Dx[0] != 0.1 {
		t.Errorf("blocked ray state changed: x=%g dx=%g", out.X[0], out.Dx[0])
	}
	if !out.Blocked[0] {
		t.Error("blocked ray was unblocked")
	}
	if out.X[1] == 1.0 && out.Dx[1] == 0.1 {
		t.Error("live ray was not transformed")
	}
}

func TestBiprism(t *testing.T) {
	bp, _ := NewBiprism(4, 0.1, 0.02)

	b := optics.NewBatch(3)
	b.X[0] = 1.0
	b.X[1] = -1.0
	b.X[2] = 0.05 // inside the wire shadow

	out := bp.Transform(b)
	if math.Abs(out.Dx[0]-(-0.02)) > 1e-12 {
		t.Errorf("right half deflection = %g, want -0.02", out.Dx[0])
	}
	if math.Abs(out.Dx[1]-0.02) > 1e-12 {
		t.Errorf("left half deflection = %g, want 0.02", out.Dx[1])
	}
	if !out.Blocked[2] {
		t.Error("ray in wire shadow not blocked")
	}
}

func TestMarkersAreIdentity(t *testing.T) {
	b := optics.NewBatch(1)
	b.X[0], b.Dx[0] = 0.7, -0.03

	for _, e := range []Element{NewSample(2), NewDetector(8)} {
		out := e.Transform(b)
		if out.X[0] != b.X[0] || out.Dx[0] != b.Dx[0] {
			t.Errorf("%s altered ray state", e.Kind)
		}
		if out.Z != e.Z {
			t.Errorf("%s did not stamp z: %g", e.Kind, out.Z)
		}
		if !e.IsMarker() {
			t.Errorf("%s should be a marker", e.Kind)
		}
	}
}

func TestTransformIsPure(t *testing.T) {
	lens, _ := NewLens(5, 2)
	b := optics.NewBatch(1)
	b.X[0] = 1.0

	_ = lens.Transform(b)
	if b.Dx[0] != 0 {
		t.Error("Transform mutated its input batch")
	}
}

func TestKindNames(t *testing.T) {
	for _, k := range []Kind{Drift, Lens, Deflector, Aperture, Biprism, Sample, Detector} {
		got, ok := KindFromName(k.String())
		if !ok || got != k {
			t.Errorf("KindFromName(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := KindFromName("prism"); ok {
		t.Error("unknown kind name accepted")
	}
}
