package gpu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testWindow is an in-memory Windower with adjustable size, a closable
// lifetime, and a delivery counter.
type testWindow struct {
	mu        sync.Mutex
	width     int
	height    int
	closed    bool
	presented int
}

func newTestWindow() *testWindow {
	return &testWindow{width: 640, height: 480}
}

func (w *testWindow) RequiredExtensions() []string {
	return []string{SurfaceExtensionName}
}

func (w *testWindow) DrawableSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *testWindow) PresentPixels(img *Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.presented++
	return nil
}

func (w *testWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *testWindow) resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width = width
	w.height = height
}

func (w *testWindow) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *testWindow) presentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.presented
}

type testEnv struct {
	instance *Instance
	physical *PhysicalDevice
	device   *Device
	queue    *Queue
	window   *testWindow
	surface  *Surface
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	window := newTestWindow()
	instance, err := CreateInstance(InstanceOptions{
		ApplicationName: "gpu-test",
		ExtensionNames:  window.RequiredExtensions(),
		Debug:           func(DebugSeverity, string) {},
	})
	require.NoError(t, err)

	surface, err := instance.CreateSurface(window)
	require.NoError(t, err)

	physical := instance.PhysicalDevices()[0]
	device, err := physical.CreateDevice(DeviceOptions{
		QueueFamilies: []QueueFamilyOptions{
			{QueueFamilyIndex: 0, QueuePriorities: []float32{1.0}},
		},
		ExtensionNames: []string{SwapchainExtensionName},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = device.Destroy()
	})

	queue, err := device.Queue(0, 0)
	require.NoError(t, err)

	return &testEnv{
		instance: instance,
		physical: physical,
		device:   device,
		queue:    queue,
		window:   window,
		surface:  surface,
	}
}

func (env *testEnv) createSwapchain(t *testing.T, o SwapchainCreateOptions) *Swapchain {
	t.Helper()
	if o.Surface == nil {
		o.Surface = env.surface
	}
	if o.ImageFormat == FormatUndefined {
		o.ImageFormat = FormatB8G8R8A8SRGB
	}
	swapchain, err := env.device.CreateSwapchain(o)
	require.NoError(t, err)
	t.Cleanup(swapchain.Destroy)
	return swapchain
}

// acquireWithFence acquires one image and blocks until it is ready.
func acquireWithFence(t *testing.T, s *Swapchain) int {
	t.Helper()
	fence, err := s.device.CreateFence(false)
	require.NoError(t, err)
	index, err := s.AcquireNextImage(time.Second, nil, fence)
	require.NoError(t, err)
	require.NoError(t, fence.Wait(time.Second))
	return index
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition never reached: %s", msg)
}
