// Package optics provides the core numeric primitives for paraxial
// electron ray tracing.
//
// The package defines the batch ray container and the validation and
// parametrization helpers the rest of the engine is built on:
//
//   - [Batch]: N rays at a common axial position, stored column-wise
//   - [Ray]: a read-only single-ray view into a batch
//   - [Pool]: batch buffer reuse across propagation runs
//   - [Wavelength], [AcceleratingVoltage]: electron beam parametrization
//
// Slopes are small-angle tangents (paraxial approximation), so every
// element transform downstream is affine in this representation.
//
// # Thread Safety
//
// Batches are plain data with no internal locking. A propagation run
// owns its batches exclusively; independent runs share nothing.
package optics
