package element

import (
	"math"

	"github.com/temgo/temtrace/internal/optics"
)

// Transform applies the element to a batch and returns the resulting
// batch. The input is never mutated. Rays already blocked upstream pass
// through frozen; an aperture-class element may newly block rays but
// never unblocks one. Transform is total over finite ray states.
func (e Element) Transform(in *optics.Batch) *optics.Batch {
	out := in.Clone()
	e.apply(out)
	return out
}

// TransformInto is Transform writing into a caller-provided batch, for
// use with a buffer pool. dst must have the same ray count as in.
func (e Element) TransformInto(in, dst *optics.Batch) *optics.Batch {
	dst.Z = in.Z
	copy(dst.X, in.X)
	copy(dst.Y, in.Y)
	copy(dst.Dx, in.Dx)
	copy(dst.Dy, in.Dy)
	copy(dst.Path, in.Path)
	copy(dst.ID, in.ID)
	copy(dst.Blocked, in.Blocked)
	e.apply(dst)
	return dst
}

func (e Element) apply(b *optics.Batch) {
	switch e.Kind {
	case Drift:
		e.applyDrift(b)
	case Lens:
		e.applyLens(b)
	case Deflector:
		e.applyDeflector(b)
	case Aperture:
		e.applyAperture(b)
	case Biprism:
		e.applyBiprism(b)
	case Sample, Detector:
		b.Z = e.Z
	}
}

func (e Element) applyDrift(b *optics.Batch) {
	d := e.Distance
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		b.X[i] += b.Dx[i] * d
		b.Y[i] += b.Dy[i] * d
		b.Path[i] += pathStep(d, b.Dx[i], b.Dy[i])
	}
	b.Z += d
}

func (e Element) applyLens(b *optics.Batch) {
	f := e.Focal
	b.Z = e.Z
	if math.IsInf(f, 0) {
		return
	}
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		b.Dx[i] -= b.X[i] / f
		b.Dy[i] -= b.Y[i] / f
	}
}

func (e Element) applyDeflector(b *optics.Batch) {
	b.Z = e.Z
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		b.Dx[i] += e.TiltX
		b.Dy[i] += e.TiltY
		b.X[i] += e.ShiftX
		b.Y[i] += e.ShiftY
	}
}

func (e Element) applyAperture(b *optics.Batch) {
	b.Z = e.Z
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		r := math.Hypot(b.X[i], b.Y[i])
		// Boundary rays are admitted.
		if r < e.RadiusInner || r > e.RadiusOuter {
			b.Blocked[i] = true
		}
	}
}

func (e Element) applyBiprism(b *optics.Batch) {
	b.Z = e.Z
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		x := b.X[i]
		switch {
		case math.Abs(x) < e.WireRadius:
			b.Blocked[i] = true
		case x > 0:
			b.Dx[i] -= e.Deflection
		case x < 0:
			b.Dx[i] += e.Deflection
		}
		// x == 0 with a zero-width wire passes undeflected.
	}
}
