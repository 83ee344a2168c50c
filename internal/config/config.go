// Package config loads and saves column layouts and beam settings as
// YAML. It owns only the file format; hard validity checks (zero focal
// length, duplicate z positions) stay with the column and element
// constructors.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/temgo/temtrace/internal/column"
	"github.com/temgo/temtrace/internal/element"
	"github.com/temgo/temtrace/internal/source"
)

const (
	DefaultDetectorZ = 10.0
	DefaultCount     = 64
	DefaultRadius    = 1.0
	DefaultVoltage   = 100e3
)

type Config struct {
	Name    string       `yaml:"name"`
	Voltage float64      `yaml:"voltage"`
	Column  ColumnConfig `yaml:"column"`
	Beam    BeamConfig   `yaml:"beam"`
}

type ColumnConfig struct {
	SourceZ   float64         `yaml:"source_z"`
	DetectorZ float64         `yaml:"detector_z"`
	Elements  []ElementConfig `yaml:"elements"`
}

// ElementConfig is the on-disk form of one element. Only the fields for
// its kind are read; zero values elsewhere are ignored.
type ElementConfig struct {
	Kind       string  `yaml:"kind"`
	Label      string  `yaml:"label,omitempty"`
	Z          float64 `yaml:"z"`
	Focal      float64 `yaml:"focal,omitempty"`
	TiltX      float64 `yaml:"tilt_x,omitempty"`
	TiltY      float64 `yaml:"tilt_y,omitempty"`
	ShiftX     float64 `yaml:"shift_x,omitempty"`
	ShiftY     float64 `yaml:"shift_y,omitempty"`
	Inner      float64 `yaml:"inner,omitempty"`
	Outer      float64 `yaml:"outer,omitempty"`
	Wire       float64 `yaml:"wire,omitempty"`
	Deflection float64 `yaml:"deflection,omitempty"`
}

type BeamConfig struct {
	Shape  string  `yaml:"shape"`
	Count  int     `yaml:"count"`
	Radius float64 `yaml:"radius"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	TiltX  float64 `yaml:"tilt_x,omitempty"`
	TiltY  float64 `yaml:"tilt_y,omitempty"`
	Random bool    `yaml:"random,omitempty"`
	Seed   int64   `yaml:"seed,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:    "single-lens",
		Voltage: DefaultVoltage,
		Column: ColumnConfig{
			SourceZ:   0,
			DetectorZ: DefaultDetectorZ,
			Elements: []ElementConfig{
				{Kind: "lens", Label: "objective", Z: 5, Focal: 5},
			},
		},
		Beam: BeamConfig{
			Shape:  "parallel",
			Count:  DefaultCount,
			Radius: DefaultRadius,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Column.Elements = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildColumn reconstructs the column from the stored element specs.
// Rebuilding from a saved config yields an identical transform
// sequence.
func (c *Config) BuildColumn() (*column.Column, error) {
	elems := make([]element.Element, 0, len(c.Column.Elements))
	for i, ec := range c.Column.Elements {
		e, err := buildElement(ec)
		if err != nil {
			return nil, fmt.Errorf("element %d (%s): %w", i, ec.Kind, err)
		}
		elems = append(elems, e)
	}
	return column.Build(elems, c.Column.SourceZ, c.Column.DetectorZ)
}

func buildElement(ec ElementConfig) (element.Element, error) {
	kind, ok := element.KindFromName(ec.Kind)
	if !ok {
		return element.Element{}, fmt.Errorf("unknown element kind %q", ec.Kind)
	}

	var (
		e   element.Element
		err error
	)
	switch kind {
	case element.Lens:
		e, err = element.NewLens(ec.Z, ec.Focal)
	case element.Deflector:
		e, err = element.NewDeflector(ec.Z, ec.TiltX, ec.TiltY, ec.ShiftX, ec.ShiftY)
	case element.Aperture:
		e, err = element.NewAperture(ec.Z, ec.Inner, ec.Outer)
	case element.Biprism:
		e, err = element.NewBiprism(ec.Z, ec.Wire, ec.Deflection)
	case element.Sample:
		e = element.NewSample(ec.Z)
	case element.Detector:
		e = element.NewDetector(ec.Z)
	default:
		return element.Element{}, fmt.Errorf("element kind %q not allowed in a layout", ec.Kind)
	}
	if err != nil {
		return element.Element{}, err
	}
	e.Label = ec.Label
	return e, nil
}

// ElementConfigFor is the inverse of buildElement, used when saving an
// edited column back to disk.
func ElementConfigFor(e element.Element) ElementConfig {
	return ElementConfig{
		Kind:       e.Kind.String(),
		Label:      e.Label,
		Z:          e.Z,
		Focal:      e.Focal,
		TiltX:      e.TiltX,
		TiltY:      e.TiltY,
		ShiftX:     e.ShiftX,
		ShiftY:     e.ShiftY,
		Inner:      e.RadiusInner,
		Outer:      e.RadiusOuter,
		Wire:       e.WireRadius,
		Deflection: e.Deflection,
	}
}

// BeamSpec converts the beam section to a source spec. Shape validation
// happens here; count and radius checks stay with source.Generate.
func (c *Config) BeamSpec() (source.Spec, error) {
	shape, ok := source.ShapeFromName(c.Beam.Shape)
	if !ok {
		return source.Spec{}, fmt.Errorf("unknown beam shape %q", c.Beam.Shape)
	}
	return source.Spec{
		Shape:  shape,
		Count:  c.Beam.Count,
		Radius: c.Beam.Radius,
		Z:      c.Column.SourceZ,
		X:      c.Beam.X,
		Y:      c.Beam.Y,
		TiltX:  c.Beam.TiltX,
		TiltY:  c.Beam.TiltY,
		Random: c.Beam.Random,
		Seed:   c.Beam.Seed,
	}, nil
}
