package config

// Presets are ready-made column layouts. Distances are in arbitrary
// column units with the gun at z=0 and the detector at the bottom.
var Presets = map[string]*Config{
	"single-lens": DefaultConfig(),
	"tem": {
		Name:    "tem",
		Voltage: 100e3,
		Column: ColumnConfig{
			SourceZ:   0,
			DetectorZ: 12,
			Elements: []ElementConfig{
				{Kind: "lens", Label: "condenser", Z: 2, Focal: 2.5},
				{Kind: "aperture", Label: "condenser aperture", Z: 3.5, Outer: 0.8},
				{Kind: "sample", Label: "specimen", Z: 5},
				{Kind: "lens", Label: "objective", Z: 6, Focal: 1.5},
				{Kind: "aperture", Label: "objective aperture", Z: 7, Outer: 0.6},
				{Kind: "lens", Label: "projector", Z: 9, Focal: 2.0},
				{Kind: "detector", Label: "screen", Z: 12},
			},
		},
		Beam: BeamConfig{Shape: "point", Count: 128, Radius: 0.15},
	},
	"stem": {
		Name:    "stem",
		Voltage: 200e3,
		Column: ColumnConfig{
			SourceZ:   0,
			DetectorZ: 10,
			Elements: []ElementConfig{
				{Kind: "lens", Label: "condenser", Z: 1.5, Focal: 2.0},
				{Kind: "deflector", Label: "scan upper", Z: 3, TiltX: 0.02},
				{Kind: "deflector", Label: "scan lower", Z: 4, TiltX: -0.04},
				{Kind: "lens", Label: "objective", Z: 5.5, Focal: 1.0},
				{Kind: "sample", Label: "specimen", Z: 6.5},
				{Kind: "detector", Label: "adf", Z: 10},
			},
		},
		Beam: BeamConfig{Shape: "parallel", Count: 96, Radius: 0.5},
	},
	"biprism": {
		Name:    "biprism",
		Voltage: 80e3,
		Column: ColumnConfig{
			SourceZ:   0,
			DetectorZ: 10,
			Elements: []ElementConfig{
				{Kind: "lens", Label: "condenser", Z: 2, Focal: 3.0},
				{Kind: "biprism", Label: "wire", Z: 5, Wire: 0.02, Deflection: 0.05},
				{Kind: "detector", Label: "screen", Z: 10},
			},
		},
		Beam: BeamConfig{Shape: "parallel", Count: 80, Radius: 1.2},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
