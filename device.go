package gpu

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// NoTimeout makes a bounded wait effectively unbounded.
const NoTimeout = time.Duration(math.MaxInt64)

// Device is a logical device. It owns the queues created with it and every
// synchronization primitive, swapchain, and descriptor pool created from it.
//
// The device mutex guards the submission-time protocol state of fences and
// semaphores; queue workers execute asynchronously and only signal through
// channels.
type Device struct {
	physical *PhysicalDevice

	mu         sync.Mutex
	queues     map[int][]*Queue
	extensions map[string]bool
	lost       bool
	destroyed  bool

	// lostCh is closed when the device is lost, failing all pending and
	// future waits.
	lostCh chan struct{}

	wg sync.WaitGroup
}

// Physical returns the adapter this device was created from.
func (d *Device) Physical() *PhysicalDevice {
	return d.physical
}

// Queue returns the index-th queue of the given family, as requested at
// device creation.
func (d *Device) Queue(familyIndex, index int) (*Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	queues := d.queues[familyIndex]
	if index < 0 || index >= len(queues) {
		return nil, errors.Newf("getQueue: family %d has no queue %d", familyIndex, index)
	}
	return queues[index], nil
}

func (d *Device) hasExtension(name string) bool {
	return d.extensions[name]
}

// CreateFence creates a fence, optionally in the signaled state the way a
// frame loop wants its in-flight fences to start.
func (d *Device) CreateFence(signaled bool) (*Fence, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createFence")
	}
	f := &Fence{
		device:   d,
		signaled: signaled,
		done:     make(chan struct{}),
	}
	if signaled {
		close(f.done)
	}
	return f, nil
}

func (d *Device) CreateSemaphore() (*Semaphore, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createSemaphore")
	}
	return &Semaphore{device: d, ch: make(chan struct{}, 1)}, nil
}

func (d *Device) CreateEvent() (*Event, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createEvent")
	}
	return &Event{device: d, ch: make(chan struct{})}, nil
}

// WaitForFences waits for all (or, when waitAll is false, any) of the given
// fences, up to timeout.
func (d *Device) WaitForFences(waitAll bool, timeout time.Duration, fences []*Fence) error {
	if len(fences) == 0 {
		return nil
	}
	if waitAll {
		deadline := time.Now().Add(timeout)
		for _, f := range fences {
			remaining := timeout
			if timeout != NoTimeout {
				remaining = time.Until(deadline)
				if remaining < 0 {
					remaining = 0
				}
			}
			if err := f.Wait(remaining); err != nil {
				return err
			}
		}
		return nil
	}

	any := make(chan error, len(fences))
	for _, f := range fences {
		go func(f *Fence) {
			any <- f.Wait(timeout)
		}(f)
	}
	return <-any
}

// ResetFences resets every given fence, failing on the first fence still in
// flight.
func (d *Device) ResetFences(fences []*Fence) error {
	for _, f := range fences {
		if err := f.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// WaitIdle blocks until every queue of the device has drained.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	var queues []*Queue
	for _, qs := range d.queues {
		queues = append(queues, qs...)
	}
	d.mu.Unlock()

	for _, q := range queues {
		if err := q.WaitIdle(); err != nil {
			return err
		}
	}
	return nil
}

// usable must be called with d.mu not held.
func (d *Device) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usableLocked()
}

func (d *Device) usableLocked() error {
	if d.lost {
		return ErrDeviceLost
	}
	if d.destroyed {
		return errors.Wrap(ErrSynchronization, "device already destroyed")
	}
	return nil
}

// reportLost marks the device lost: pending fence waits fail with
// ErrDeviceLost and further submissions are rejected. Used for fault
// injection in tests.
func (d *Device) reportLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return
	}
	d.lost = true
	close(d.lostCh)
	for _, qs := range d.queues {
		for _, q := range qs {
			q.abort()
		}
	}
}

// Destroy drains and stops every queue, then releases the device. Destroying
// a lost device is allowed.
func (d *Device) Destroy() error {
	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return nil
	}
	d.destroyed = true
	var queues []*Queue
	for _, qs := range d.queues {
		queues = append(queues, qs...)
	}
	d.mu.Unlock()

	for _, q := range queues {
		q.stop()
	}
	d.wg.Wait()
	return nil
}

func (d *Device) debugf(severity DebugSeverity, format string, args ...interface{}) {
	d.physical.instance.debugf(severity, format, args...)
}
