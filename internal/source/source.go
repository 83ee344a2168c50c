// Package source generates initial ray batches from beam shape
// specifications.
//
// Sampling is reproducible by construction: ring, grid and line layouts
// are deterministic, and the random disc fills draw from math/rand
// seeded with Spec.Seed, so identical specs yield identical batches.
package source

import (
	"math"
	"math/rand"

	"github.com/temgo/temtrace/internal/optics"
)

// Shape selects the beam geometry.
type Shape int

const (
	// Point fans rays out of one position with slopes filling a cone
	// of semiangle Radius.
	Point Shape = iota
	// Parallel fills a disc of radius Radius with zero-slope rays.
	Parallel
	// Grid lays rays on a deterministic square lattice spanning
	// [-Radius, Radius] in x and y. Exact count.
	Grid
	// Line spaces rays evenly along x over [-Radius, Radius]. Exact
	// count.
	Line
)

func (s Shape) String() string {
	switch s {
	case Point:
		return "point"
	case Parallel:
		return "parallel"
	case Grid:
		return "grid"
	case Line:
		return "line"
	}
	return "unknown"
}

// ShapeFromName maps a config/CLI name back to a Shape.
func ShapeFromName(name string) (Shape, bool) {
	for _, s := range []Shape{Point, Parallel, Grid, Line} {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Spec describes a beam. Radius is the disc radius for Parallel/Grid/
// Line and the cone semiangle for Point. Ring-filled shapes (Point and
// Parallel with Random false) honor Count approximately; Grid and Line
// are exact.
type Spec struct {
	Shape  Shape
	Count  int
	Radius float64
	Z      float64

	// Beam origin and initial tilt, applied uniformly.
	X, Y         float64
	TiltX, TiltY float64

	// Random switches ring fills to uniform random sampling over the
	// same disc, reproducible from Seed.
	Random bool
	Seed   int64
}

// Generate builds the initial batch for the spec. Ray identifiers are
// assigned 0..n-1 in generation order and never reused.
func Generate(spec Spec) (*optics.Batch, error) {
	if spec.Count <= 0 {
		return nil, optics.ConfigErr(optics.ErrBadRayCount, "count", float64(spec.Count))
	}
	if spec.Radius < 0 {
		return nil, optics.ConfigErr(optics.ErrBadAperture, "radius", spec.Radius)
	}

	var u, v []float64
	switch spec.Shape {
	case Point, Parallel:
		if spec.Random {
			u, v = randomDisc(spec.Count, spec.Radius, spec.Seed)
		} else {
			u, v = concentricRings(spec.Count, spec.Radius)
		}
	case Grid:
		u, v = gridLattice(spec.Count, spec.Radius)
	case Line:
		u = lineSpread(spec.Count, spec.Radius)
		v = make([]float64, len(u))
	default:
		return nil, optics.ConfigErr(optics.ErrBadRayCount, "shape", float64(spec.Shape))
	}

	b := optics.NewBatch(len(u))
	b.Z = spec.Z
	for i := range u {
		if spec.Shape == Point {
			// Sampled values are slopes; all rays share the origin.
			b.X[i] = spec.X
			b.Y[i] = spec.Y
			b.Dx[i] = u[i] + spec.TiltX
			b.Dy[i] = v[i] + spec.TiltY
		} else {
			b.X[i] = u[i] + spec.X
			b.Y[i] = v[i] + spec.Y
			b.Dx[i] = spec.TiltX
			b.Dy[i] = spec.TiltY
		}
	}
	return b, nil
}

// concentricRings distributes approximately count points over a disc as
// equally-filled rings, one point at a time around each ring. radius 0
// collapses to count copies of the origin.
func concentricRings(count int, radius float64) ([]float64, []float64) {
	numRings := int(math.Floor((-1 + math.Sqrt(1+4*float64(count)/math.Pi)) / 2))
	if numRings < 1 {
		numRings = 1
	}

	// Ring circumference decides its share of the points.
	circum := make([]int, numRings)
	totalCircum := 0
	for k := 0; k < numRings; k++ {
		circum[k] = int(math.Round(2 * math.Pi * float64(k+1)))
		totalCircum += circum[k]
	}

	us := make([]float64, 0, count)
	vs := make([]float64, 0, count)
	for k := 0; k < numRings; k++ {
		points := int(math.Round(float64(circum[k]) * float64(count) / float64(totalCircum)))
		if points < 1 {
			points = 1
		}
		r := radius * float64(k+1) / float64(numRings)
		step := 2 * math.Pi / float64(points)
		for p := 0; p < points; p++ {
			a := step * float64(p)
			us = append(us, r*math.Sin(a))
			vs = append(vs, r*math.Cos(a))
		}
	}
	return us, vs
}

// randomDisc rejection-samples exactly count points uniformly over a
// centred disc, reproducibly from seed.
func randomDisc(count int, radius float64, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	us := make([]float64, 0, count)
	vs := make([]float64, 0, count)
	for len(us) < count {
		u := (2*rng.Float64() - 1) * radius
		v := (2*rng.Float64() - 1) * radius
		if u*u+v*v > radius*radius {
			continue
		}
		us = append(us, u)
		vs = append(vs, v)
	}
	return us, vs
}

// gridLattice fills a side x side lattice row-major, truncated to
// exactly count points.
func gridLattice(count int, radius float64) ([]float64, []float64) {
	side := int(math.Ceil(math.Sqrt(float64(count))))
	us := make([]float64, 0, count)
	vs := make([]float64, 0, count)
	for row := 0; row < side && len(us) < count; row++ {
		for col := 0; col < side && len(us) < count; col++ {
			us = append(us, lattice(col, side, radius))
			vs = append(vs, lattice(row, side, radius))
		}
	}
	return us, vs
}

func lattice(i, side int, radius float64) float64 {
	if side == 1 {
		return 0
	}
	return -radius + 2*radius*float64(i)/float64(side-1)
}

func lineSpread(count int, radius float64) []float64 {
	us := make([]float64, count)
	for i := range us {
		us[i] = lattice(i, count, radius)
	}
	return us
}
