package optics

import "math"

// Batch holds N rays sharing a common z position, stored column-wise so
// element transforms run over whole slices rather than per-ray structs.
// The count is fixed at construction; blocked rays keep their slot and
// their last valid state so ray IDs index the same position at every
// trajectory stage.
type Batch struct {
	Z       float64
	X       []float64
	Y       []float64
	Dx      []float64
	Dy      []float64
	Path    []float64
	ID      []int
	Blocked []bool
}

// NewBatch allocates a zeroed batch of n rays with IDs 0..n-1.
func NewBatch(n int) *Batch {
	b := &Batch{
		X:       make([]float64, n),
		Y:       make([]float64, n),
		Dx:      make([]float64, n),
		Dy:      make([]float64, n),
		Path:    make([]float64, n),
		ID:      make([]int, n),
		Blocked: make([]bool, n),
	}
	for i := range b.ID {
		b.ID[i] = i
	}
	return b
}

func (b *Batch) Len() int { return len(b.X) }

// Clone returns a deep copy sharing no storage with the receiver.
func (b *Batch) Clone() *Batch {
	c := &Batch{
		Z:       b.Z,
		X:       make([]float64, len(b.X)),
		Y:       make([]float64, len(b.Y)),
		Dx:      make([]float64, len(b.Dx)),
		Dy:      make([]float64, len(b.Dy)),
		Path:    make([]float64, len(b.Path)),
		ID:      make([]int, len(b.ID)),
		Blocked: make([]bool, len(b.Blocked)),
	}
	copy(c.X, b.X)
	copy(c.Y, b.Y)
	copy(c.Dx, b.Dx)
	copy(c.Dy, b.Dy)
	copy(c.Path, b.Path)
	copy(c.ID, b.ID)
	copy(c.Blocked, b.Blocked)
	return c
}

// Ray is a read-only snapshot of a single ray within a batch.
type Ray struct {
	ID      int
	X, Y    float64
	Dx, Dy  float64
	Z       float64
	Path    float64
	Blocked bool
}

// Ray returns the state of the ray with the given identifier. IDs are
// assigned 0..n-1 at generation and never reused, so this is a direct
// index. ok is false for an out-of-range id.
func (b *Batch) Ray(id int) (Ray, bool) {
	if id < 0 || id >= b.Len() {
		return Ray{}, false
	}
	return Ray{
		ID:      b.ID[id],
		X:       b.X[id],
		Y:       b.Y[id],
		Dx:      b.Dx[id],
		Dy:      b.Dy[id],
		Z:       b.Z,
		Path:    b.Path[id],
		Blocked: b.Blocked[id],
	}, true
}

// IsValid reports whether every stored component is finite.
func (b *Batch) IsValid() bool {
	for _, col := range [][]float64{b.X, b.Y, b.Dx, b.Dy, b.Path} {
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// BlockedCount returns the number of rays currently marked blocked.
func (b *Batch) BlockedCount() int {
	n := 0
	for _, blocked := range b.Blocked {
		if blocked {
			n++
		}
	}
	return n
}

// BlockedIDs returns the identifiers of blocked rays in ascending order.
func (b *Batch) BlockedIDs() []int {
	ids := make([]int, 0)
	for i, blocked := range b.Blocked {
		if blocked {
			ids = append(ids, b.ID[i])
		}
	}
	return ids
}

// RMSRadius returns the root-mean-square transverse radius of the
// unblocked rays, or 0 if every ray is blocked.
func (b *Batch) RMSRadius() float64 {
	sum := 0.0
	n := 0
	for i := range b.X {
		if b.Blocked[i] {
			continue
		}
		sum += b.X[i]*b.X[i] + b.Y[i]*b.Y[i]
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
