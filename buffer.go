package gpu

import (
	"github.com/cockroachdb/errors"
)

// Buffer is a model resource carrying identity and size, enough to be the
// target of a descriptor write. Memory allocation strategy stays out of
// scope; the buffer has no backing storage.
type Buffer struct {
	device *Device
	size   int
}

func (d *Device) CreateBuffer(size int) (*Buffer, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createBuffer")
	}
	if size <= 0 {
		return nil, errors.Newf("createBuffer: size must be positive, got %d", size)
	}
	return &Buffer{device: d, size: size}, nil
}

func (b *Buffer) Size() int {
	return b.size
}

// Sampler is a model resource for combined image/sampler descriptor writes.
type Sampler struct {
	device *Device
}

func (d *Device) CreateSampler() (*Sampler, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createSampler")
	}
	return &Sampler{device: d}, nil
}
