package optics

import "math"

// CODATA values, SI units. Only what element parametrization needs.
const (
	ElectronCharge = 1.602176634e-19 // C
	ElectronMass   = 9.1093837015e-31
	Planck         = 6.62607015e-34
)

// Wavelength returns the non-relativistic de Broglie wavelength in
// metres for an electron accelerated through phi0 volts.
func Wavelength(phi0 float64) float64 {
	return Planck / math.Sqrt(2*ElectronCharge*ElectronMass*math.Abs(phi0))
}

// AcceleratingVoltage is the inverse of Wavelength: the potential in
// volts that yields the given wavelength in metres.
func AcceleratingVoltage(lambda float64) float64 {
	return Planck * Planck / (2 * lambda * lambda * ElectronCharge * ElectronMass)
}
