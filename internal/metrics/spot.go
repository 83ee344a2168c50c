// Package metrics provides per-stage beam statistics observed during a
// propagation run.
package metrics

import (
	"math"

	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/optics"
)

// SpotRadius reports the RMS transverse radius of the live beam at the
// last observed stage, typically the detector plane.
type SpotRadius struct {
	name string
	last float64
	seen int
}

func NewSpotRadius() *SpotRadius {
	return &SpotRadius{name: "spot_radius"}
}

func (s *SpotRadius) Name() string { return s.name }

func (s *SpotRadius) Observe(b *optics.Batch, e element.Element) {
	s.last = b.RMSRadius()
	s.seen++
}

func (s *SpotRadius) Value() float64 {
	return s.last
}

func (s *SpotRadius) Reset() {
	s.last = 0
	s.seen = 0
}

// MinSpot tracks the smallest RMS radius along the column and the z at
// which it occurred, an estimate of the beam crossover position.
type MinSpot struct {
	name    string
	min     float64
	z       float64
	samples int
}

func NewMinSpot() *MinSpot {
	return &MinSpot{name: "min_spot", min: math.Inf(1)}
}

func (m *MinSpot) Name() string { return m.name }

func (m *MinSpot) Observe(b *optics.Batch, e element.Element) {
	r := b.RMSRadius()
	if r < m.min {
		m.min = r
		m.z = b.Z
	}
	m.samples++
}

func (m *MinSpot) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.min
}

// CrossoverZ returns the axial position of the smallest observed spot.
func (m *MinSpot) CrossoverZ() float64 { return m.z }

func (m *MinSpot) Reset() {
	m.min = math.Inf(1)
	m.z = 0
	m.samples = 0
}

// BlockedFraction reports the fraction of rays blocked by the end of
// the run. Monotone across stages since blocked rays stay blocked.
type BlockedFraction struct {
	name string
	frac float64
}

func NewBlockedFraction() *BlockedFraction {
	return &BlockedFraction{name: "blocked_fraction"}
}

func (f *BlockedFraction) Name() string { return f.name }

func (f *BlockedFraction) Observe(b *optics.Batch, e element.Element) {
	if n := b.Len(); n > 0 {
		f.frac = float64(b.BlockedCount()) / float64(n)
	}
}

func (f *BlockedFraction) Value() float64 { return f.frac }

func (f *BlockedFraction) Reset() { f.frac = 0 }
