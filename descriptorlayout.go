package gpu

import (
	"github.com/cockroachdb/errors"
)

// DescriptorType classifies what a binding holds.
type DescriptorType int

const (
	DescriptorTypeUniformBuffer DescriptorType = iota
	DescriptorTypeStorageBuffer
	DescriptorTypeCombinedImageSampler
	DescriptorTypeSampler
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorTypeUniformBuffer:
		return "uniform buffer"
	case DescriptorTypeStorageBuffer:
		return "storage buffer"
	case DescriptorTypeCombinedImageSampler:
		return "combined image sampler"
	case DescriptorTypeSampler:
		return "sampler"
	}
	return "unknown"
}

func (t DescriptorType) isBuffer() bool {
	return t == DescriptorTypeUniformBuffer || t == DescriptorTypeStorageBuffer
}

// ShaderStages flags which pipeline stages see a binding.
type ShaderStages uint32

const (
	StageVertex ShaderStages = 1 << iota
	StageFragment
	StageCompute
)

const StageAll = StageVertex | StageFragment | StageCompute

// DescriptorBinding describes one binding slot of a set layout. Count of
// zero means one descriptor.
type DescriptorBinding struct {
	Binding int
	Type    DescriptorType
	Count   int
	Stages  ShaderStages
}

// DescriptorSetLayout describes the bindings of sets allocated against it.
// Immutable once created.
type DescriptorSetLayout struct {
	device   *Device
	bindings []DescriptorBinding
	byIndex  map[int]DescriptorBinding
}

func (d *Device) CreateDescriptorSetLayout(bindings []DescriptorBinding) (*DescriptorSetLayout, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createDescriptorSetLayout")
	}
	if len(bindings) == 0 {
		return nil, errors.Newf("createDescriptorSetLayout: at least one binding is required")
	}

	layout := &DescriptorSetLayout{
		device:  d,
		byIndex: make(map[int]DescriptorBinding, len(bindings)),
	}
	for _, b := range bindings {
		if b.Count == 0 {
			b.Count = 1
		}
		if b.Count < 0 {
			return nil, errors.Newf("createDescriptorSetLayout: binding %d has negative count", b.Binding)
		}
		if _, dup := layout.byIndex[b.Binding]; dup {
			return nil, errors.Newf("createDescriptorSetLayout: binding %d declared twice", b.Binding)
		}
		layout.byIndex[b.Binding] = b
		layout.bindings = append(layout.bindings, b)
	}
	return layout, nil
}

func (l *DescriptorSetLayout) Bindings() []DescriptorBinding {
	out := make([]DescriptorBinding, len(l.bindings))
	copy(out, l.bindings)
	return out
}

// descriptorCounts totals the descriptors the layout consumes per type.
func (l *DescriptorSetLayout) descriptorCounts() map[DescriptorType]int {
	counts := make(map[DescriptorType]int)
	for _, b := range l.bindings {
		counts[b.Type] += b.Count
	}
	return counts
}
