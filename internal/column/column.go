// Package column assembles ordered element sequences for propagation.
//
// A column is built once from the explicit elements and the source and
// detector planes; Build synthesizes drift segments so the stage list
// accounts for every unit of axial distance. Columns are immutable after
// Build, so concurrent propagation runs can share one safely.
package column

import (
	"sort"

	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/optics"
)

// Column is an ordered element sequence spanning [SourceZ, DetectorZ].
// Stages alternates synthesized drifts with the explicit elements in
// ascending z; Explicit keeps the sorted input for display and editing.
type Column struct {
	SourceZ   float64
	DetectorZ float64
	Explicit  []element.Element
	Stages    []element.Element
}

// Build validates the layout and fills every axial gap with a drift.
// It fails with a ConfigurationError for a duplicate z, an element
// outside [sourceZ, detectorZ], or a detector plane at or before the
// source plane. Zero explicit elements degenerate to a single drift.
func Build(elems []element.Element, sourceZ, detectorZ float64) (*Column, error) {
	if detectorZ <= sourceZ {
		return nil, optics.ConfigErr(optics.ErrEmptyColumn, "detector_z", detectorZ)
	}

	sorted := make([]element.Element, len(elems))
	copy(sorted, elems)
	// Stable keeps declaration order for distinct elements that sort
	// equal only through float comparison quirks.
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Z < sorted[j].Z })

	for i, e := range sorted {
		if e.Z < sourceZ || e.Z > detectorZ {
			return nil, optics.ConfigErr(optics.ErrZOutOfRange, "z", e.Z)
		}
		if i > 0 && e.Z == sorted[i-1].Z {
			return nil, optics.ConfigErr(optics.ErrDuplicateZ, "z", e.Z)
		}
	}

	stages := make([]element.Element, 0, 2*len(sorted)+1)
	z := sourceZ
	for _, e := range sorted {
		if gap := e.Z - z; gap > 0 {
			d, err := element.NewDrift(gap)
			if err != nil {
				return nil, err
			}
			stages = append(stages, d)
		}
		stages = append(stages, e)
		z = e.Z
	}
	if gap := detectorZ - z; gap > 0 {
		d, err := element.NewDrift(gap)
		if err != nil {
			return nil, err
		}
		stages = append(stages, d)
	}

	return &Column{
		SourceZ:   sourceZ,
		DetectorZ: detectorZ,
		Explicit:  sorted,
		Stages:    stages,
	}, nil
}

// Length returns the axial extent of the column.
func (c *Column) Length() float64 { return c.DetectorZ - c.SourceZ }

// WithElement returns a new column with the explicit element at index i
// replaced, leaving the receiver untouched. Parameter edits from the
// shell layer go through here between runs, never mid-propagation.
func (c *Column) WithElement(i int, e element.Element) (*Column, error) {
	elems := make([]element.Element, len(c.Explicit))
	copy(elems, c.Explicit)
	elems[i] = e
	return Build(elems, c.SourceZ, c.DetectorZ)
}
