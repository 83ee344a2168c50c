package optics

import "sync"

// Pool recycles batch buffers of a fixed ray count across propagation
// runs. Reuse is an optimization only; callers that skip the pool get
// identical results.
type Pool struct {
	pool sync.Pool
	size int
}

func NewPool(rayCount int) *Pool {
	return &Pool{
		size: rayCount,
		pool: sync.Pool{
			New: func() interface{} {
				return NewBatch(rayCount)
			},
		},
	}
}

func (p *Pool) Get() *Batch {
	return p.pool.Get().(*Batch)
}

// Put returns a batch to the pool after resetting it to the zero state.
// Batches of the wrong size are dropped.
func (p *Pool) Put(b *Batch) {
	if b.Len() != p.size {
		return
	}
	b.Z = 0
	for i := range b.X {
		b.X[i] = 0
		b.Y[i] = 0
		b.Dx[i] = 0
		b.Dy[i] = 0
		b.Path[i] = 0
		b.ID[i] = i
		b.Blocked[i] = false
	}
	p.pool.Put(b)
}

// GetAndCopy returns a pooled batch initialized from src.
func (p *Pool) GetAndCopy(src *Batch) *Batch {
	dst := p.Get()
	dst.Z = src.Z
	copy(dst.X, src.X)
	copy(dst.Y, src.Y)
	copy(dst.Dx, src.Dx)
	copy(dst.Dy, src.Dy)
	copy(dst.Path, src.Path)
	copy(dst.ID, src.ID)
	copy(dst.Blocked, src.Blocked)
	return dst
}
