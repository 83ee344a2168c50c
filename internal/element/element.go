// Package element defines the optical elements of a microscope column
// and their paraxial transforms over ray batches.
//
// The kind set is closed: Drift, Lens, Deflector, Aperture, Biprism and
// the Sample/Detector plane markers. Elements are immutable after
// construction; a parameter edit builds a new element. All validation
// happens in the constructors, so Transform is total and never fails.
package element

import (
	"fmt"
	"math"

	"github.com/temgo/temtrace/internal/optics"
)

// Kind identifies one element variant.
type Kind int

const (
	Drift Kind = iota
	Lens
	Deflector
	Aperture
	Biprism
	Sample
	Detector
)

func (k Kind) String() string {
	switch k {
	case Drift:
		return "drift"
	case Lens:
		return "lens"
	case Deflector:
		return "deflector"
	case Aperture:
		return "aperture"
	case Biprism:
		return "biprism"
	case Sample:
		return "sample"
	case Detector:
		return "detector"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindFromName maps a config/CLI name back to a Kind.
func KindFromName(name string) (Kind, bool) {
	for _, k := range []Kind{Drift, Lens, Deflector, Aperture, Biprism, Sample, Detector} {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Element is one optical component at axial position Z. Only the fields
// relevant to its Kind are meaningful; constructors validate them.
type Element struct {
	Kind  Kind
	Z     float64
	Label string

	// Drift
	Distance float64

	// Lens
	Focal float64

	// Deflector
	TiltX, TiltY   float64
	ShiftX, ShiftY float64

	// Aperture: admits inner <= r <= outer.
	RadiusInner, RadiusOuter float64

	// Biprism: wire of half-width WireRadius along y, deflecting the
	// two half-beams toward the axis by Deflection.
	WireRadius float64
	Deflection float64
}

func (e Element) String() string {
	switch e.Kind {
	case Drift:
		return fmt.Sprintf("drift(d=%g)", e.Distance)
	case Lens:
		return fmt.Sprintf("lens(z=%g, f=%g)", e.Z, e.Focal)
	case Deflector:
		return fmt.Sprintf("deflector(z=%g, tilt=(%g,%g))", e.Z, e.TiltX, e.TiltY)
	case Aperture:
		return fmt.Sprintf("aperture(z=%g, r=[%g,%g])", e.Z, e.RadiusInner, e.RadiusOuter)
	case Biprism:
		return fmt.Sprintf("biprism(z=%g, w=%g, defl=%g)", e.Z, e.WireRadius, e.Deflection)
	default:
		return fmt.Sprintf("%s(z=%g)", e.Kind, e.Z)
	}
}

// NewDrift builds a free-space segment of length d. Drifts carry a
// distance rather than a z position because the column synthesizes them
// to fill gaps between explicit elements.
func NewDrift(d float64) (Element, error) {
	if d < 0 {
		return Element{}, optics.ConfigErr(optics.ErrNegativeDrift, "distance", d)
	}
	return Element{Kind: Drift, Distance: d}, nil
}

// NewLens builds a thin lens with focal length f at z. Negative f is a
// diverging lens and ±Inf the no-op limit; exactly zero is rejected.
func NewLens(z, f float64) (Element, error) {
	if f == 0 {
		return Element{}, optics.ConfigErr(optics.ErrZeroFocalLength, "focal", f)
	}
	return Element{Kind: Lens, Z: z, Focal: f}, nil
}

// NewDeflector builds a beam tilt/shift element adding a uniform slope
// offset (and optional position offset) to every ray.
func NewDeflector(z, tiltX, tiltY, shiftX, shiftY float64) (Element, error) {
	return Element{Kind: Deflector, Z: z, TiltX: tiltX, TiltY: tiltY, ShiftX: shiftX, ShiftY: shiftY}, nil
}

// NewDoubleDeflector builds the upper/lower deflector pair used for
// pivot-point beam shift and tilt. It expands to two elements.
func NewDoubleDeflector(z1, z2, tilt1, tilt2 float64) ([]Element, error) {
	if z2 <= z1 {
		return nil, optics.ConfigErr(optics.ErrDuplicateZ, "z2", z2)
	}
	first, err := NewDeflector(z1, tilt1, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	second, err := NewDeflector(z2, tilt2, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return []Element{first, second}, nil
}

// NewAperture builds an annular aperture admitting inner <= r <= outer.
// inner = 0 gives the usual circular hole.
func NewAperture(z, inner, outer float64) (Element, error) {
	if inner < 0 || outer <= 0 || inner >= outer {
		return Element{}, optics.ConfigErr(optics.ErrBadAperture, "outer", outer)
	}
	return Element{Kind: Aperture, Z: z, RadiusInner: inner, RadiusOuter: outer}, nil
}

// NewBiprism builds a biprism wire of half-width w that blocks the wire
// shadow and deflects each half-beam toward the axis by defl.
func NewBiprism(z, w, defl float64) (Element, error) {
	if w < 0 {
		return Element{}, optics.ConfigErr(optics.ErrBadAperture, "wire", w)
	}
	return Element{Kind: Biprism, Z: z, WireRadius: w, Deflection: defl}, nil
}

// NewSample builds the sample-plane marker at z.
func NewSample(z float64) Element {
	return Element{Kind: Sample, Z: z}
}

// NewDetector builds the detector-plane marker at z.
func NewDetector(z float64) Element {
	return Element{Kind: Detector, Z: z}
}

// IsMarker reports whether the element has no optical effect.
func (e Element) IsMarker() bool {
	return e.Kind == Sample || e.Kind == Detector
}

// pathStep is the path length a ray accumulates across a drift of
// length d at slope (dx, dy).
func pathStep(d, dx, dy float64) float64 {
	return d * math.Sqrt(1+dx*dx+dy*dy)
}
