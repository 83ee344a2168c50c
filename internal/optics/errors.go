package optics

import (
	"errors"
	"fmt"
)

// Domain errors for column and beam construction. All validation is
// eager: these are only ever returned by constructors, never mid-run.
var (
	// ErrZeroFocalLength indicates a lens with f = 0, which has no
	// paraxial meaning. An effectively infinite f is the no-op lens.
	ErrZeroFocalLength = errors.New("optics: zero focal length")

	// ErrBadAperture indicates a negative or inverted aperture radius.
	ErrBadAperture = errors.New("optics: invalid aperture radii")

	// ErrNegativeDrift indicates a drift with negative length.
	ErrNegativeDrift = errors.New("optics: negative drift distance")

	// ErrDuplicateZ indicates two elements at the same axial position.
	ErrDuplicateZ = errors.New("optics: duplicate element z position")

	// ErrZOutOfRange indicates an element outside [source z, detector z].
	ErrZOutOfRange = errors.New("optics: element z outside column bounds")

	// ErrEmptyColumn indicates detector z at or before source z.
	ErrEmptyColumn = errors.New("optics: detector plane not after source plane")

	// ErrBadRayCount indicates a non-positive requested ray count.
	ErrBadRayCount = errors.New("optics: ray count must be positive")
)

// ConfigurationError wraps a domain error with the offending value so
// the shell layer can report which parameter edit to revert.
type ConfigurationError struct {
	Field   string
	Value   float64
	Wrapped error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v (%s=%g)", e.Wrapped, e.Field, e.Value)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Wrapped
}

// ConfigErr builds a ConfigurationError for a named parameter.
func ConfigErr(err error, field string, value float64) error {
	return &ConfigurationError{Field: field, Value: value, Wrapped: err}
}
