package gpu

// Semaphore is a queue-side ordering edge between two operations. It has no
// CPU-observable wait: one operation signals it, exactly one later operation
// waits on it, and only then may it be signaled again.
//
// The device tracks a pending-signal bit per semaphore at submission and
// presentation time, so waiting without a prior signal, waiting twice on one
// signal, or double-signaling fails fast with ErrSynchronization instead of
// deadlocking on the queue timeline.
type Semaphore struct {
	device *Device

	// pendingSignal is guarded by device.mu: true from the moment a
	// signal operation is accepted until a wait operation consuming it is
	// accepted.
	pendingSignal bool

	// ch carries the runtime signal on the queue timeline. Capacity 1;
	// the pending-signal protocol guarantees at most one outstanding
	// send.
	ch chan struct{}
}

func (s *Semaphore) signal() {
	s.ch <- struct{}{}
}

// await blocks until the semaphore is signaled or the device is lost,
// reporting which.
func (s *Semaphore) await(lost <-chan struct{}) bool {
	select {
	case <-s.ch:
		return true
	case <-lost:
		return false
	}
}
