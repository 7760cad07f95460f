package gpu

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Event is a general-purpose settable signal, finer grained than a fence:
// it can be set and reset from the CPU at any point, set by a queue
// submission (SubmitOptions.SetEvents), polled, and waited on by any number
// of goroutines. Its lifecycle is independent of any single submission.
type Event struct {
	device *Device

	mu  sync.Mutex
	set bool
	ch  chan struct{}
}

// Set transitions the event to the set state. Idempotent.
func (e *Event) Set() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.set {
		e.set = true
		close(e.ch)
	}
}

// Reset returns the event to the unset state. Idempotent.
func (e *Event) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set {
		e.set = false
		e.ch = make(chan struct{})
	}
}

// Signaled polls the event without blocking.
func (e *Event) Signaled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Wait blocks until the event is set, the timeout expires (ErrTimeout), or
// the device is lost (ErrDeviceLost).
func (e *Event) Wait(timeout time.Duration) error {
	e.mu.Lock()
	ch := e.ch
	set := e.set
	e.mu.Unlock()
	if set {
		return nil
	}

	if timeout == NoTimeout {
		select {
		case <-ch:
			return nil
		case <-e.device.lostCh:
			return errors.Wrap(ErrDeviceLost, "event wait")
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-e.device.lostCh:
		return errors.Wrap(ErrDeviceLost, "event wait")
	case <-timer.C:
		return errors.Wrap(ErrTimeout, "event wait")
	}
}
