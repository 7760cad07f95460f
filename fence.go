package gpu

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Fence is a CPU-waitable completion signal for submitted work. A fence is
// either unsignaled or signaled; it signals when the submission (or image
// acquisition) carrying it completes, and must be explicitly Reset before it
// can be carried again.
type Fence struct {
	device *Device

	// inFlight is guarded by device.mu together with the rest of the
	// submission protocol state.
	inFlight bool

	mu       sync.Mutex
	signaled bool
	done     chan struct{}
}

// Wait blocks until the fence signals, the timeout expires (ErrTimeout), or
// the device is lost (ErrDeviceLost). Pass NoTimeout to wait indefinitely.
func (f *Fence) Wait(timeout time.Duration) error {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()

	if timeout == NoTimeout {
		select {
		case <-done:
			return nil
		case <-f.device.lostCh:
			return errors.Wrap(ErrDeviceLost, "fence wait")
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-f.device.lostCh:
		return errors.Wrap(ErrDeviceLost, "fence wait")
	case <-timer.C:
		return errors.Wrap(ErrTimeout, "fence wait")
	}
}

// Signaled polls the fence state without blocking.
func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled
}

// Reset returns a signaled fence to the unsignaled state. Resetting a fence
// that is still carried by an in-flight submission fails with
// ErrSynchronization instead of corrupting the pending signal.
func (f *Fence) Reset() error {
	f.device.mu.Lock()
	defer f.device.mu.Unlock()
	if f.inFlight {
		return errors.Wrap(ErrSynchronization, "reset: fence is still in flight")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaled {
		f.signaled = false
		f.done = make(chan struct{})
	}
	return nil
}

// complete is called by the executing side when the work carrying the fence
// finishes.
func (f *Fence) complete() {
	f.device.mu.Lock()
	f.inFlight = false
	f.mu.Lock()
	if !f.signaled {
		f.signaled = true
		close(f.done)
	}
	f.mu.Unlock()
	f.device.mu.Unlock()
}

// fail releases the fence without signaling it, used when the device is lost
// while the carrying submission is in flight.
func (f *Fence) fail() {
	f.device.mu.Lock()
	f.inFlight = false
	f.device.mu.Unlock()
}
