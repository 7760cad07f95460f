package gpu

import (
	"github.com/cockroachdb/errors"
)

// QueueFlags describes the kinds of work a queue family accepts.
type QueueFlags uint32

const (
	QueueGraphics QueueFlags = 1 << iota
	QueueCompute
	QueueTransfer
)

// QueueFamily describes one queue family of a physical device. Presentation
// support is surface-dependent and queried through SupportsSurface rather
// than carried as a flag.
type QueueFamily struct {
	Index      int
	Flags      QueueFlags
	QueueCount int

	canPresent bool
}

// PhysicalDevice is one adapter enumerated from an Instance.
type PhysicalDevice struct {
	instance *Instance
	name     string

	families   []QueueFamily
	extensions map[string]bool

	// Presentation engine limits folded into surface capabilities.
	minImageCount int
	maxImageCount int
}

func newPhysicalDevice(instance *Instance, name string) *PhysicalDevice {
	return &PhysicalDevice{
		instance: instance,
		name:     name,
		families: []QueueFamily{
			{Index: 0, Flags: QueueGraphics | QueueCompute | QueueTransfer, QueueCount: 4, canPresent: true},
			{Index: 1, Flags: QueueTransfer, QueueCount: 2},
		},
		extensions: map[string]bool{
			SwapchainExtensionName: true,
		},
		minImageCount: 2,
		maxImageCount: 8,
	}
}

func (p *PhysicalDevice) Name() string {
	return p.name
}

// QueueFamilyProperties returns the queue families exposed by this device.
func (p *PhysicalDevice) QueueFamilyProperties() []QueueFamily {
	out := make([]QueueFamily, len(p.families))
	copy(out, p.families)
	return out
}

// AvailableExtensions reports the device-level extensions this adapter
// supports.
func (p *PhysicalDevice) AvailableExtensions() map[string]bool {
	out := make(map[string]bool, len(p.extensions))
	for k, v := range p.extensions {
		out[k] = v
	}
	return out
}

// SupportsSurface reports whether the given queue family can present to the
// surface.
func (p *PhysicalDevice) SupportsSurface(familyIndex int, surface *Surface) (bool, error) {
	if familyIndex < 0 || familyIndex >= len(p.families) {
		return false, errors.Newf("supportsSurface: no queue family %d", familyIndex)
	}
	if surface.isLost() {
		return false, errors.Wrap(ErrSurfaceLost, "supportsSurface")
	}
	return p.families[familyIndex].canPresent, nil
}

type QueueFamilyOptions struct {
	QueueFamilyIndex int
	QueuePriorities  []float32
}

type DeviceOptions struct {
	QueueFamilies  []QueueFamilyOptions
	ExtensionNames []string
}

// CreateDevice builds a logical device with one worker per requested queue.
// Requesting an extension the adapter does not support fails with
// ErrExtensionNotPresent.
func (p *PhysicalDevice) CreateDevice(o DeviceOptions) (*Device, error) {
	if len(o.QueueFamilies) == 0 {
		return nil, errors.Newf("createDevice: at least one queue family is required")
	}
	for _, ext := range o.ExtensionNames {
		if !p.extensions[ext] {
			return nil, errors.Wrapf(ErrExtensionNotPresent, "createDevice: %s", ext)
		}
	}

	device := &Device{
		physical:   p,
		lostCh:     make(chan struct{}),
		queues:     make(map[int][]*Queue),
		extensions: make(map[string]bool, len(o.ExtensionNames)),
	}
	for _, ext := range o.ExtensionNames {
		device.extensions[ext] = true
	}

	seen := make(map[int]bool)
	for _, qf := range o.QueueFamilies {
		if qf.QueueFamilyIndex < 0 || qf.QueueFamilyIndex >= len(p.families) {
			return nil, errors.Newf("createDevice: no queue family %d", qf.QueueFamilyIndex)
		}
		if seen[qf.QueueFamilyIndex] {
			return nil, errors.Newf("createDevice: queue family %d requested twice", qf.QueueFamilyIndex)
		}
		seen[qf.QueueFamilyIndex] = true

		count := len(qf.QueuePriorities)
		if count == 0 {
			count = 1
		}
		if count > p.families[qf.QueueFamilyIndex].QueueCount {
			return nil, errors.Newf("createDevice: queue family %d has %d queues, %d requested",
				qf.QueueFamilyIndex, p.families[qf.QueueFamilyIndex].QueueCount, count)
		}

		for i := 0; i < count; i++ {
			queue := newQueue(device, qf.QueueFamilyIndex, i)
			device.queues[qf.QueueFamilyIndex] = append(device.queues[qf.QueueFamilyIndex], queue)
			device.wg.Add(1)
			go queue.run()
		}
	}

	return device, nil
}
