package gpu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSwapchainImageCountNegotiation(t *testing.T) {
	env := newTestEnv(t)
	caps, err := env.surface.Capabilities(env.physical)
	require.NoError(t, err)

	// Zero requests minimum+1.
	s := env.createSwapchain(t, SwapchainCreateOptions{})
	require.Equal(t, caps.MinImageCount+1, s.ImageCount())
	require.Equal(t, caps.CurrentExtent, s.Extent())
	require.Equal(t, FormatB8G8R8A8SRGB, s.Format())

	// Too few is raised to the minimum.
	s = env.createSwapchain(t, SwapchainCreateOptions{MinImageCount: 1})
	require.Equal(t, caps.MinImageCount, s.ImageCount())

	// Too many is clamped to the maximum.
	s = env.createSwapchain(t, SwapchainCreateOptions{MinImageCount: caps.MaxImageCount + 10})
	require.Equal(t, caps.MaxImageCount, s.ImageCount())
}

func TestSwapchainRequiresDeviceExtension(t *testing.T) {
	env := newTestEnv(t)

	bare, err := env.physical.CreateDevice(DeviceOptions{
		QueueFamilies: []QueueFamilyOptions{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1.0}},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bare.Destroy() })

	_, err = bare.CreateSwapchain(SwapchainCreateOptions{
		Surface:     env.surface,
		ImageFormat: FormatB8G8R8A8SRGB,
	})
	require.ErrorIs(t, err, ErrExtensionNotPresent)
}

func TestSwapchainAcquireAllThenTimeout(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	seen := make(map[int]bool)
	for i := 0; i < s.ImageCount(); i++ {
		index := acquireWithFence(t, s)
		require.False(t, seen[index], "image %d acquired twice", index)
		seen[index] = true
	}
	require.Equal(t, s.ImageCount(), s.acquiredCount())

	// Every image is held by the application; the next acquire cannot
	// succeed until one is presented.
	fence, err := env.device.CreateFence(false)
	require.NoError(t, err)
	_, err = s.AcquireNextImage(50*time.Millisecond, nil, fence)
	require.ErrorIs(t, err, ErrTimeout)

	// The timed-out acquire rolled its fence back.
	require.NoError(t, env.queue.Submit(fence, []SubmitOptions{{}}))
	require.NoError(t, fence.Wait(time.Second))
}

func TestSwapchainAcquireRequiresSignalTarget(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	_, err := s.AcquireNextImage(time.Second, nil, nil)
	require.Error(t, err)
}

func TestSwapchainPresentStateValidation(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	// Presenting an image that was never acquired.
	err := s.Present(0, nil)
	require.ErrorIs(t, err, ErrSynchronization)

	// Presenting an index outside the ring.
	err = s.Present(s.ImageCount(), nil)
	require.Error(t, err)
	err = s.Present(-1, nil)
	require.Error(t, err)

	index := acquireWithFence(t, s)
	require.NoError(t, s.Present(index, nil))

	// The image left the acquired state; presenting it again is a
	// protocol violation whether it is still in flight or already free.
	err = s.Present(index, nil)
	require.ErrorIs(t, err, ErrSynchronization)

	eventually(t, func() bool { return env.window.presentCount() == 1 }, "frame delivered")
}

func TestSwapchainResizeOutOfDate(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	index := acquireWithFence(t, s)

	env.window.resize(1024, 768)

	// Acquire observes the stale extent.
	fence, err := env.device.CreateFence(false)
	require.NoError(t, err)
	_, err = s.AcquireNextImage(time.Second, nil, fence)
	require.ErrorIs(t, err, ErrOutOfDate)

	// Present reports out-of-date but still drains the image without
	// delivering it.
	err = s.Present(index, nil)
	require.ErrorIs(t, err, ErrOutOfDate)
	eventually(t, func() bool { return s.imageState(index) == imageFree }, "image drained")
	require.Equal(t, 0, env.window.presentCount())
}

func TestSwapchainRecreation(t *testing.T) {
	env := newTestEnv(t)
	old := env.createSwapchain(t, SwapchainCreateOptions{})

	env.window.resize(1024, 768)

	replacement := env.createSwapchain(t, SwapchainCreateOptions{OldSwapchain: old})
	require.Equal(t, Extent2D{Width: 1024, Height: 768}, replacement.Extent())

	// The old swapchain is retired: acquires fail even though the ring
	// still has free images.
	fence, err := env.device.CreateFence(false)
	require.NoError(t, err)
	_, err = old.AcquireNextImage(time.Second, nil, fence)
	require.ErrorIs(t, err, ErrOutOfDate)

	// The replacement works.
	index := acquireWithFence(t, replacement)
	require.NoError(t, replacement.Present(index, nil))
	eventually(t, func() bool { return env.window.presentCount() == 1 }, "frame delivered")
}

func TestSwapchainSurfaceLost(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	index := acquireWithFence(t, s)

	env.window.close()

	fence, err := env.device.CreateFence(false)
	require.NoError(t, err)
	_, err = s.AcquireNextImage(time.Second, nil, fence)
	require.ErrorIs(t, err, ErrSurfaceLost)

	err = s.Present(index, nil)
	require.ErrorIs(t, err, ErrSurfaceLost)
	eventually(t, func() bool { return s.imageState(index) == imageFree }, "image drained")
}

func TestSwapchainDestroyDrainsPresents(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	const frames = 5
	for i := 0; i < frames; i++ {
		index := acquireWithFence(t, s)
		require.NoError(t, s.Present(index, nil))
	}

	// Destroy blocks until the presentation worker has delivered
	// everything queued before it.
	s.Destroy()
	require.Equal(t, frames, env.window.presentCount())

	_, err := s.AcquireNextImage(time.Second, nil, mustFence(t, env.device))
	require.ErrorIs(t, err, ErrSynchronization)
}

func TestSwapchainFrameLoop(t *testing.T) {
	env := newTestEnv(t)
	s := env.createSwapchain(t, SwapchainCreateOptions{})

	const maxFramesInFlight = 2
	const frames = 20

	var imageAvailable, renderFinished []*Semaphore
	var inFlight []*Fence
	for i := 0; i < maxFramesInFlight; i++ {
		sem, err := env.device.CreateSemaphore()
		require.NoError(t, err)
		imageAvailable = append(imageAvailable, sem)
		sem, err = env.device.CreateSemaphore()
		require.NoError(t, err)
		renderFinished = append(renderFinished, sem)
		fence, err := env.device.CreateFence(true)
		require.NoError(t, err)
		inFlight = append(inFlight, fence)
	}

	rendered := 0
	for frame := 0; frame < frames; frame++ {
		slot := frame % maxFramesInFlight
		require.NoError(t, inFlight[slot].Wait(time.Second))

		index, err := s.AcquireNextImage(time.Second, imageAvailable[slot], nil)
		require.NoError(t, err)
		require.LessOrEqual(t, s.acquiredCount(), s.ImageCount())

		require.NoError(t, inFlight[slot].Reset())
		require.NoError(t, env.queue.Submit(inFlight[slot], []SubmitOptions{
			{
				WaitSemaphores:   []*Semaphore{imageAvailable[slot]},
				Work:             func() { rendered++ },
				SignalSemaphores: []*Semaphore{renderFinished[slot]},
			},
		}))

		require.NoError(t, s.Present(index, renderFinished[slot]))
	}

	require.NoError(t, env.device.WaitIdle())
	require.Equal(t, frames, rendered)

	eventually(t, func() bool { return env.window.presentCount() == frames }, "all frames delivered")
	eventually(t, func() bool { return s.FrameTimes().Count() == frames }, "all frames timed")
}

func mustFence(t *testing.T, d *Device) *Fence {
	t.Helper()
	fence, err := d.CreateFence(false)
	require.NoError(t, err)
	return fence
}
