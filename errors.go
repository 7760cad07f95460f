package gpu

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for the failure classes the API can report. Callers match
// them with errors.Is; raise sites attach context with errors.Wrapf.
var (
	// ErrTimeout is returned by bounded waits that expire before the
	// awaited condition holds. Retryable.
	ErrTimeout = errors.New("timeout expired before wait completed")

	// ErrOutOfDate indicates a swapchain no longer matches its surface.
	// Recoverable: recreate the swapchain against the same surface.
	ErrOutOfDate = errors.New("swapchain is out of date and must be recreated")

	// ErrSurfaceLost indicates the platform surface became invalid, for
	// example because its window was destroyed. Fatal to the surface and
	// every swapchain built on it.
	ErrSurfaceLost = errors.New("surface lost")

	// ErrDeviceLost indicates the device became unusable. Fatal to the
	// device and everything created from it.
	ErrDeviceLost = errors.New("device lost")

	// ErrPoolExhausted is returned by DescriptorPool.Allocate when the
	// pool cannot cover the requested layout. Recoverable: free sets,
	// reset the pool, or create a larger one.
	ErrPoolExhausted = errors.New("descriptor pool exhausted")

	// ErrSynchronization reports a violation of the wait/signal protocol:
	// waiting on a semaphore with no pending signal, resetting a fence
	// that is still in flight, presenting an image that was never
	// acquired, or touching a descriptor set invalidated by a pool reset.
	ErrSynchronization = errors.New("synchronization protocol violation")

	// ErrExtensionNotPresent is returned when a requested extension is
	// not supported by the instance or device.
	ErrExtensionNotPresent = errors.New("extension not present")

	// ErrLayerNotPresent is returned when a requested layer is not
	// supported by the instance.
	ErrLayerNotPresent = errors.New("layer not present")
)
