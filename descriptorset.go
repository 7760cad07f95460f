package gpu

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// DescriptorWrite records what a binding currently points at.
type DescriptorWrite struct {
	Type DescriptorType

	Buffer *Buffer
	Offset int
	Range  int

	Image   *Image
	Sampler *Sampler
}

// DescriptorSet is a grouping of shader-visible resource bindings allocated
// from a DescriptorPool against a DescriptorSetLayout.
//
// The set carries the pool generation it was allocated under. After the
// pool is reset, every operation on the set fails with ErrSynchronization:
// a stale set can never silently corrupt a reused slot.
type DescriptorSet struct {
	pool       *DescriptorPool
	layout     *DescriptorSetLayout
	generation uint64
	freed      bool

	mu     sync.Mutex
	writes map[int]DescriptorWrite
}

func (s *DescriptorSet) Layout() *DescriptorSetLayout {
	return s.layout
}

// live verifies the set has not been invalidated by a pool reset, free, or
// pool destruction.
func (s *DescriptorSet) live() error {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	if s.pool.destroyed {
		return errors.Wrap(ErrSynchronization, "descriptor set: owning pool destroyed")
	}
	if s.freed {
		return errors.Wrap(ErrSynchronization, "descriptor set: set was freed")
	}
	if s.generation != s.pool.generation {
		return errors.Wrap(ErrSynchronization, "descriptor set: set was invalidated by a pool reset")
	}
	return nil
}

// WriteBuffer points a buffer binding at buf. The binding must exist in the
// layout and hold the matching buffer descriptor type.
func (s *DescriptorSet) WriteBuffer(binding int, dtype DescriptorType, buf *Buffer, offset int) error {
	if err := s.live(); err != nil {
		return err
	}
	if buf == nil {
		return errors.Newf("writeBuffer: buffer is required")
	}
	if !dtype.isBuffer() {
		return errors.Newf("writeBuffer: %s is not a buffer descriptor type", dtype)
	}
	decl, ok := s.layout.byIndex[binding]
	if !ok {
		return errors.Newf("writeBuffer: layout has no binding %d", binding)
	}
	if decl.Type != dtype {
		return errors.Newf("writeBuffer: binding %d is %s, not %s", binding, decl.Type, dtype)
	}
	if offset < 0 || offset >= buf.Size() {
		return errors.Newf("writeBuffer: offset %d outside buffer of size %d", offset, buf.Size())
	}

	s.mu.Lock()
	s.writes[binding] = DescriptorWrite{
		Type:   dtype,
		Buffer: buf,
		Offset: offset,
		Range:  buf.Size() - offset,
	}
	s.mu.Unlock()
	return nil
}

// WriteCombinedImageSampler points an image binding at an image view and
// sampler pair.
func (s *DescriptorSet) WriteCombinedImageSampler(binding int, img *Image, sampler *Sampler) error {
	if err := s.live(); err != nil {
		return err
	}
	if img == nil || sampler == nil {
		return errors.Newf("writeCombinedImageSampler: image and sampler are required")
	}
	decl, ok := s.layout.byIndex[binding]
	if !ok {
		return errors.Newf("writeCombinedImageSampler: layout has no binding %d", binding)
	}
	if decl.Type != DescriptorTypeCombinedImageSampler {
		return errors.Newf("writeCombinedImageSampler: binding %d is %s", binding, decl.Type)
	}

	s.mu.Lock()
	s.writes[binding] = DescriptorWrite{
		Type:    DescriptorTypeCombinedImageSampler,
		Image:   img,
		Sampler: sampler,
	}
	s.mu.Unlock()
	return nil
}

// Binding reads back what a binding currently holds, the way command
// recording would consume the set.
func (s *DescriptorSet) Binding(binding int) (DescriptorWrite, error) {
	if err := s.live(); err != nil {
		return DescriptorWrite{}, err
	}
	if _, ok := s.layout.byIndex[binding]; !ok {
		return DescriptorWrite{}, errors.Newf("binding: layout has no binding %d", binding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.writes[binding]
	if !ok {
		return DescriptorWrite{}, errors.Newf("binding: binding %d has not been written", binding)
	}
	return w, nil
}
