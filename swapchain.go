package gpu

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// imageState is the per-image phase of the acquire/present handoff. The
// state arena in Swapchain is the sole arbiter of image ownership: free
// images belong to the swapchain, acquired images to the application,
// presenting images to the presentation worker.
type imageState int

const (
	imageFree imageState = iota
	imageAcquired
	imagePresenting
)

func (s imageState) String() string {
	switch s {
	case imageFree:
		return "free"
	case imageAcquired:
		return "acquired"
	case imagePresenting:
		return "presenting"
	}
	return "unknown"
}

type SwapchainCreateOptions struct {
	Surface *Surface

	// MinImageCount is clamped into the surface's supported range. Zero
	// requests the usual minimum+1.
	MinImageCount int

	ImageFormat     Format
	ImageColorSpace ColorSpace

	// PresentMode falls back to FIFO when the requested mode is not
	// supported, FIFO support being mandatory.
	PresentMode PresentMode

	// OldSwapchain retires the previous swapchain of the same surface.
	// Its in-flight images drain normally; new acquires on it fail with
	// ErrOutOfDate.
	OldSwapchain *Swapchain
}

type presentRequest struct {
	imageIndex int
	wait       *Semaphore
	deliver    bool
}

// Swapchain owns a fixed ring of presentable images bound to a Surface.
// Each image cycles free -> acquired -> presenting -> free; the presentation
// worker goroutine stands in for the presentation engine, waiting the
// present semaphore, delivering pixels through the Windower, and returning
// the image to the free ring.
type Swapchain struct {
	device  *Device
	surface *Surface
	extent  Extent2D
	format  Format
	mode    PresentMode
	images  []*Image

	mu        sync.Mutex
	states    []imageState
	retired   bool
	destroyed bool

	// freeCh carries the indexes of free images in rotation order. Its
	// capacity is the image count, so handoffs never block the workers.
	freeCh    chan int
	presentCh chan presentRequest
	wg        sync.WaitGroup

	times *FrameTimes
}

// CreateSwapchain negotiates image count, format, extent, and present mode
// against the surface's current capabilities and starts the presentation
// worker. The device must have been created with SwapchainExtensionName.
func (d *Device) CreateSwapchain(o SwapchainCreateOptions) (*Swapchain, error) {
	if err := d.usable(); err != nil {
		return nil, errors.Wrap(err, "createSwapchain")
	}
	if !d.hasExtension(SwapchainExtensionName) {
		return nil, errors.Wrapf(ErrExtensionNotPresent, "createSwapchain: device created without %s", SwapchainExtensionName)
	}
	if o.Surface == nil {
		return nil, errors.Newf("createSwapchain: surface is required")
	}

	caps, err := o.Surface.Capabilities(d.physical)
	if err != nil {
		return nil, errors.Wrap(err, "createSwapchain")
	}

	imageCount := o.MinImageCount
	if imageCount == 0 {
		imageCount = caps.MinImageCount + 1
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	extent := caps.CurrentExtent
	if extent.Width < caps.MinImageExtent.Width || extent.Height < caps.MinImageExtent.Height ||
		extent.Width > caps.MaxImageExtent.Width || extent.Height > caps.MaxImageExtent.Height {
		return nil, errors.Newf("createSwapchain: surface extent %dx%d outside supported range", extent.Width, extent.Height)
	}

	format := o.ImageFormat
	if format == FormatUndefined {
		format = FormatB8G8R8A8SRGB
	}
	formats, err := o.Surface.Formats(d.physical)
	if err != nil {
		return nil, errors.Wrap(err, "createSwapchain")
	}
	supported := false
	for _, f := range formats {
		if f.Format == format && f.ColorSpace == o.ImageColorSpace {
			supported = true
			break
		}
	}
	if !supported {
		return nil, errors.Newf("createSwapchain: format %s is not supported by the surface", format)
	}

	mode := o.PresentMode
	modes, err := o.Surface.PresentModes(d.physical)
	if err != nil {
		return nil, errors.Wrap(err, "createSwapchain")
	}
	modeSupported := false
	for _, m := range modes {
		if m == mode {
			modeSupported = true
			break
		}
	}
	if !modeSupported {
		mode = PresentFIFO
	}

	if o.OldSwapchain != nil {
		o.OldSwapchain.retire()
	}

	s := &Swapchain{
		device:    d,
		surface:   o.Surface,
		extent:    extent,
		format:    format,
		mode:      mode,
		images:    make([]*Image, imageCount),
		states:    make([]imageState, imageCount),
		freeCh:    make(chan int, imageCount),
		presentCh: make(chan presentRequest, imageCount),
		times:     newFrameTimes(),
	}
	for i := range s.images {
		s.images[i] = newImage(i, extent, format)
		s.freeCh <- i
	}

	s.wg.Add(1)
	go s.presentLoop()

	return s, nil
}

// Images returns the swapchain's image ring. The caller may render into an
// image only between acquiring and presenting its index.
func (s *Swapchain) Images() []*Image {
	out := make([]*Image, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

func (s *Swapchain) Extent() Extent2D {
	return s.extent
}

func (s *Swapchain) Format() Format {
	return s.format
}

func (s *Swapchain) PresentMode() PresentMode {
	return s.mode
}

// FrameTimes exposes presentation timing statistics.
func (s *Swapchain) FrameTimes() *FrameTimes {
	return s.times
}

// AcquireNextImage hands the application the next free image, in
// implementation-defined rotation order, and arranges for the given
// semaphore and/or fence to signal when the image is ready to be rendered
// into. At least one of semaphore and fence must be given.
//
// Fails with ErrOutOfDate when the surface no longer matches the swapchain
// (recreate and retry), ErrSurfaceLost, ErrTimeout, or ErrDeviceLost.
func (s *Swapchain) AcquireNextImage(timeout time.Duration, semaphore *Semaphore, fence *Fence) (int, error) {
	if semaphore == nil && fence == nil {
		return -1, errors.Newf("acquireNextImage: a semaphore or fence is required")
	}

	if err := s.acquirable(); err != nil {
		return -1, err
	}

	// Reserve the signal targets before blocking so a concurrent misuse
	// of the same semaphore or fence fails fast.
	d := s.device
	d.mu.Lock()
	if err := d.usableLocked(); err != nil {
		d.mu.Unlock()
		return -1, errors.Wrap(err, "acquireNextImage")
	}
	if semaphore != nil {
		if semaphore.pendingSignal {
			d.mu.Unlock()
			return -1, errors.Wrap(ErrSynchronization, "acquireNextImage: semaphore already has a pending signal")
		}
		semaphore.pendingSignal = true
	}
	if fence != nil {
		if fence.inFlight {
			if semaphore != nil {
				semaphore.pendingSignal = false
			}
			d.mu.Unlock()
			return -1, errors.Wrap(ErrSynchronization, "acquireNextImage: fence is already in flight")
		}
		if fence.Signaled() {
			if semaphore != nil {
				semaphore.pendingSignal = false
			}
			d.mu.Unlock()
			return -1, errors.Wrap(ErrSynchronization, "acquireNextImage: fence is signaled and must be reset before reuse")
		}
		fence.inFlight = true
	}
	d.mu.Unlock()

	rollback := func() {
		d.mu.Lock()
		if semaphore != nil {
			semaphore.pendingSignal = false
		}
		if fence != nil {
			fence.inFlight = false
		}
		d.mu.Unlock()
	}

	index, err := s.nextFree(timeout)
	if err != nil {
		rollback()
		return -1, err
	}

	s.mu.Lock()
	if s.destroyed || s.retired {
		s.states[index] = imageFree
		s.freeCh <- index
		s.mu.Unlock()
		rollback()
		return -1, errors.Wrap(ErrOutOfDate, "acquireNextImage")
	}
	s.states[index] = imageAcquired
	s.mu.Unlock()

	// A free image is ready immediately; signal on the spot.
	if semaphore != nil {
		semaphore.signal()
	}
	if fence != nil {
		fence.complete()
	}
	return index, nil
}

func (s *Swapchain) acquirable() error {
	s.mu.Lock()
	retired := s.retired
	destroyed := s.destroyed
	s.mu.Unlock()

	if destroyed {
		return errors.Wrap(ErrSynchronization, "acquireNextImage: swapchain destroyed")
	}
	if s.surface.isLost() {
		return errors.Wrap(ErrSurfaceLost, "acquireNextImage")
	}
	if retired || s.surface.currentExtent() != s.extent {
		return errors.Wrap(ErrOutOfDate, "acquireNextImage")
	}
	return nil
}

func (s *Swapchain) nextFree(timeout time.Duration) (int, error) {
	if timeout == NoTimeout {
		select {
		case index := <-s.freeCh:
			return index, nil
		case <-s.device.lostCh:
			return -1, errors.Wrap(ErrDeviceLost, "acquireNextImage")
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case index := <-s.freeCh:
		return index, nil
	case <-s.device.lostCh:
		return -1, errors.Wrap(ErrDeviceLost, "acquireNextImage")
	case <-timer.C:
		return -1, errors.Wrap(ErrTimeout, "acquireNextImage")
	}
}

// Present hands an acquired image to the presentation worker. The worker
// waits on waitSemaphore (when given) before delivering the pixels to the
// window, then returns the image to the free ring.
//
// Presenting an image that is not in the acquired state is rejected with
// ErrSynchronization. ErrOutOfDate and ErrSurfaceLost report that the
// image was drained without delivery and the swapchain needs recreating
// (or the whole surface chain is gone).
func (s *Swapchain) Present(imageIndex int, waitSemaphore *Semaphore) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return errors.Wrap(ErrSynchronization, "present: swapchain destroyed")
	}
	if imageIndex < 0 || imageIndex >= len(s.images) {
		s.mu.Unlock()
		return errors.Newf("present: no image %d", imageIndex)
	}
	if s.states[imageIndex] != imageAcquired {
		state := s.states[imageIndex]
		s.mu.Unlock()
		return errors.Wrapf(ErrSynchronization, "present: image %d is %s, want acquired", imageIndex, state)
	}

	surfaceLost := s.surface.isLost()
	outOfDate := s.retired || (!surfaceLost && s.surface.currentExtent() != s.extent)

	if waitSemaphore != nil {
		d := s.device
		d.mu.Lock()
		if !waitSemaphore.pendingSignal {
			d.mu.Unlock()
			s.mu.Unlock()
			return errors.Wrap(ErrSynchronization, "present: semaphore wait without a pending signal")
		}
		waitSemaphore.pendingSignal = false
		d.mu.Unlock()
	}

	s.states[imageIndex] = imagePresenting
	s.presentCh <- presentRequest{
		imageIndex: imageIndex,
		wait:       waitSemaphore,
		deliver:    !surfaceLost && !outOfDate,
	}
	s.mu.Unlock()

	if surfaceLost {
		return errors.Wrap(ErrSurfaceLost, "present")
	}
	if outOfDate {
		return errors.Wrap(ErrOutOfDate, "present")
	}
	return nil
}

func (s *Swapchain) presentLoop() {
	defer s.wg.Done()
	for req := range s.presentCh {
		ok := true
		if req.wait != nil {
			ok = req.wait.await(s.device.lostCh)
		}

		if ok && req.deliver && !s.surface.isLost() {
			img := s.images[req.imageIndex]
			if err := s.surface.windower.PresentPixels(img); err != nil {
				s.device.debugf(DebugWarning, "present: image %d not delivered: %v", req.imageIndex, err)
			} else {
				s.times.record()
			}
		}

		s.mu.Lock()
		s.states[req.imageIndex] = imageFree
		s.mu.Unlock()
		s.freeCh <- req.imageIndex
	}
}

// retire marks the swapchain superseded: acquires fail with ErrOutOfDate
// while queued presents drain normally.
func (s *Swapchain) retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

// Destroy retires the swapchain and blocks until every in-flight present
// has drained, then releases the image ring.
func (s *Swapchain) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.retired = true
	close(s.presentCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// acquiredCount reports how many images are currently held by the
// application.
func (s *Swapchain) acquiredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, st := range s.states {
		if st == imageAcquired {
			n++
		}
	}
	return n
}

func (s *Swapchain) imageState(index int) imageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[index]
}
