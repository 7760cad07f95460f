package gpu

import (
	"sync"

	"github.com/cockroachdb/errors"
)

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count int
}

type DescriptorPoolOptions struct {
	// MaxSets caps how many sets may be live at once.
	MaxSets int

	// PoolSizes fixes the pool's capacity per descriptor type. The pool
	// never grows.
	PoolSizes []DescriptorPoolSize
}

// DescriptorPool owns a fixed capacity of descriptor slots by type. Sets
// allocated from it are generation-tagged: Reset bumps the pool generation,
// turning every outstanding set into an inert stale handle instead of a
// dangling one.
type DescriptorPool struct {
	device *Device

	mu            sync.Mutex
	capacity      map[DescriptorType]int
	remaining     map[DescriptorType]int
	maxSets       int
	remainingSets int
	generation    uint64
	destroyed     bool
}

func (d *Device) CreateDescriptorPool(o DescriptorPoolOptions) (*DescriptorPool, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createDescriptorPool")
	}
	if o.MaxSets <= 0 {
		return nil, errors.Newf("createDescriptorPool: MaxSets must be positive, got %d", o.MaxSets)
	}
	if len(o.PoolSizes) == 0 {
		return nil, errors.Newf("createDescriptorPool: at least one pool size is required")
	}

	pool := &DescriptorPool{
		device:        d,
		capacity:      make(map[DescriptorType]int, len(o.PoolSizes)),
		remaining:     make(map[DescriptorType]int, len(o.PoolSizes)),
		maxSets:       o.MaxSets,
		remainingSets: o.MaxSets,
	}
	for _, ps := range o.PoolSizes {
		if ps.Count <= 0 {
			return nil, errors.Newf("createDescriptorPool: pool size for %s must be positive, got %d", ps.Type, ps.Count)
		}
		pool.capacity[ps.Type] += ps.Count
		pool.remaining[ps.Type] += ps.Count
	}
	return pool, nil
}

// Allocate carves a set sized per the layout's binding counts out of the
// pool. Fails deterministically with ErrPoolExhausted as soon as MaxSets or
// any per-type capacity is insufficient; the pool does not auto-grow.
func (p *DescriptorPool) Allocate(layout *DescriptorSetLayout) (*DescriptorSet, error) {
	if layout == nil {
		return nil, errors.Newf("allocate: layout is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil, errors.Wrap(ErrSynchronization, "allocate: descriptor pool destroyed")
	}
	if p.remainingSets == 0 {
		return nil, errors.Wrapf(ErrPoolExhausted, "allocate: all %d sets in use", p.maxSets)
	}

	needs := layout.descriptorCounts()
	for dtype, n := range needs {
		if p.remaining[dtype] < n {
			return nil, errors.Wrapf(ErrPoolExhausted, "allocate: need %d %s descriptors, %d remaining",
				n, dtype, p.remaining[dtype])
		}
	}

	for dtype, n := range needs {
		p.remaining[dtype] -= n
	}
	p.remainingSets--

	return &DescriptorSet{
		pool:       p,
		layout:     layout,
		generation: p.generation,
		writes:     make(map[int]DescriptorWrite),
	}, nil
}

// Free returns a live set's slots to the pool and invalidates the set.
func (p *DescriptorPool) Free(set *DescriptorSet) error {
	if set == nil || set.pool != p {
		return errors.Newf("free: set was not allocated from this pool")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return errors.Wrap(ErrSynchronization, "free: descriptor pool destroyed")
	}
	if set.generation != p.generation || set.freed {
		return errors.Wrap(ErrSynchronization, "free: set was already invalidated")
	}

	for dtype, n := range set.layout.descriptorCounts() {
		p.remaining[dtype] += n
	}
	p.remainingSets++
	set.freed = true
	return nil
}

// Reset atomically invalidates every set allocated from the pool and
// restores its full capacity.
func (p *DescriptorPool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return errors.Wrap(ErrSynchronization, "reset: descriptor pool destroyed")
	}

	p.generation++
	for dtype, n := range p.capacity {
		p.remaining[dtype] = n
	}
	p.remainingSets = p.maxSets
	return nil
}

// Remaining reports the unallocated descriptor capacity for a type.
func (p *DescriptorPool) Remaining(dtype DescriptorType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining[dtype]
}

// RemainingSets reports how many more sets the pool can allocate.
func (p *DescriptorPool) RemainingSets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remainingSets
}

// Destroy invalidates the pool and every set allocated from it.
func (p *DescriptorPool) Destroy() {
	p.mu.Lock()
	p.destroyed = true
	p.generation++
	p.mu.Unlock()
}
