package gpu

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// SubmitOptions describes one batch of work submitted to a queue. Work
// stands in for a recorded command buffer; it runs on the queue worker after
// every wait semaphore has been signaled, and before the batch's signal
// semaphores, events, and fence fire.
type SubmitOptions struct {
	WaitSemaphores   []*Semaphore
	SignalSemaphores []*Semaphore
	Work             func()
	SetEvents        []*Event
}

type submission struct {
	waits   []*Semaphore
	work    func()
	signals []*Semaphore
	events  []*Event
	fence   *Fence

	// done marks idle-wait sentinels.
	done chan struct{}
}

// Queue executes submissions in order on a worker goroutine standing in for
// one GPU queue.
type Queue struct {
	device      *Device
	familyIndex int
	index       int

	mu      sync.Mutex
	cond    *sync.Cond
	pending []submission
	stopped bool
}

func newQueue(device *Device, familyIndex, index int) *Queue {
	q := &Queue{device: device, familyIndex: familyIndex, index: index}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue) FamilyIndex() int {
	return q.familyIndex
}

func (q *Queue) Index() int {
	return q.index
}

// Submit validates the semaphore and fence protocol fail-fast under the
// device lock, then hands the batches to the queue worker. The fence, when
// given, signals after the last batch completes.
//
// Protocol violations reported with ErrSynchronization:
//   - waiting on a semaphore with no pending signal
//   - signaling a semaphore whose previous signal has not been waited
//   - reusing a fence that is in flight or still signaled
func (q *Queue) Submit(fence *Fence, batches []SubmitOptions) error {
	d := q.device
	d.mu.Lock()
	if err := d.usableLocked(); err != nil {
		d.mu.Unlock()
		return errors.Wrap(err, "submit")
	}

	var undo []func()
	fail := func(err error) error {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		d.mu.Unlock()
		return err
	}

	if fence != nil {
		if fence.inFlight {
			return fail(errors.Wrap(ErrSynchronization, "submit: fence is already in flight"))
		}
		if fence.Signaled() {
			return fail(errors.Wrap(ErrSynchronization, "submit: fence is signaled and must be reset before reuse"))
		}
		fence.inFlight = true
		undo = append(undo, func() { fence.inFlight = false })
	}

	subs := make([]submission, 0, len(batches))
	for _, b := range batches {
		for _, s := range b.WaitSemaphores {
			s := s
			if !s.pendingSignal {
				return fail(errors.Wrap(ErrSynchronization, "submit: semaphore wait without a pending signal"))
			}
			s.pendingSignal = false
			undo = append(undo, func() { s.pendingSignal = true })
		}
		for _, s := range b.SignalSemaphores {
			s := s
			if s.pendingSignal {
				return fail(errors.Wrap(ErrSynchronization, "submit: semaphore already has a pending signal"))
			}
			s.pendingSignal = true
			undo = append(undo, func() { s.pendingSignal = false })
		}
		subs = append(subs, submission{
			waits:   b.WaitSemaphores,
			work:    b.Work,
			signals: b.SignalSemaphores,
			events:  b.SetEvents,
		})
	}

	if fence != nil {
		if len(subs) == 0 {
			subs = append(subs, submission{})
		}
		subs[len(subs)-1].fence = fence
	}
	d.mu.Unlock()

	q.enqueue(subs...)
	return nil
}

// WaitIdle blocks until every submission queued so far has executed.
func (q *Queue) WaitIdle() error {
	if err := q.device.usable(); err != nil {
		return errors.Wrap(err, "queueWaitIdle")
	}
	done := make(chan struct{})
	q.enqueue(submission{done: done})
	select {
	case <-done:
		return nil
	case <-q.device.lostCh:
		return ErrDeviceLost
	}
}

func (q *Queue) enqueue(subs ...submission) {
	q.mu.Lock()
	q.pending = append(q.pending, subs...)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *Queue) run() {
	defer q.device.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		sub := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.execute(sub)
	}
}

func (q *Queue) execute(sub submission) {
	lost := q.deviceLost()
	if !lost {
		for _, s := range sub.waits {
			if !s.await(q.device.lostCh) {
				lost = true
				break
			}
		}
	}
	if !lost {
		if sub.work != nil {
			sub.work()
		}
		for _, s := range sub.signals {
			s.signal()
		}
		for _, e := range sub.events {
			e.Set()
		}
	}
	if sub.fence != nil {
		if lost {
			sub.fence.fail()
		} else {
			sub.fence.complete()
		}
	}
	if sub.done != nil {
		close(sub.done)
	}
}

func (q *Queue) deviceLost() bool {
	select {
	case <-q.device.lostCh:
		return true
	default:
		return false
	}
}

// stop makes the worker exit after draining its pending submissions.
func (q *Queue) stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// abort wakes the worker so it can observe device loss.
func (q *Queue) abort() {
	q.cond.Broadcast()
}
