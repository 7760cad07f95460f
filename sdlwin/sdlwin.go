// Package sdlwin adapts an SDL2 window to the gpu.Windower interface.
// Presentation delivers finished images to the window surface with a
// software blit, so examples and applications run without a native graphics
// driver.
package sdlwin

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/aerogfx/gpu"
)

// Window wraps an SDL2 window as a gpu.Windower.
type Window struct {
	win *sdl.Window

	mu     sync.Mutex
	closed bool
}

// New initializes SDL video if needed and opens a window.
func New(title string, width, height int32) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdlwin: init")
	}

	win, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		width, height,
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, errors.Wrap(err, "sdlwin: create window")
	}
	return &Window{win: win}, nil
}

// Wrap adapts an existing SDL window the caller keeps ownership of.
func Wrap(win *sdl.Window) *Window {
	return &Window{win: win}
}

// SDLWindow exposes the underlying window for event handling.
func (w *Window) SDLWindow() *sdl.Window {
	return w.win
}

// RequiredExtensions names the surface extensions an instance must enable
// for windows of this platform.
func (w *Window) RequiredExtensions() []string {
	return []string{gpu.SurfaceExtensionName, platformSurfaceExtension()}
}

func platformSurfaceExtension() string {
	switch runtime.GOOS {
	case "windows":
		return gpu.Win32SurfaceExtensionName
	case "darwin":
		return gpu.MetalSurfaceExtensionName
	default:
		return gpu.XlibSurfaceExtensionName
	}
}

func (w *Window) DrawableSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, 0
	}
	width, height := w.win.GetSize()
	return int(width), int(height)
}

// PresentPixels blits the image into the window surface.
func (w *Window) PresentPixels(img *gpu.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.Newf("sdlwin: window closed")
	}

	target, err := w.win.GetSurface()
	if err != nil {
		return errors.Wrap(err, "sdlwin: window surface")
	}

	extent := img.Extent()
	src, err := sdl.CreateRGBSurfaceWithFormatFrom(
		unsafe.Pointer(&img.Pix[0]),
		int32(extent.Width), int32(extent.Height),
		32, int32(4*extent.Width),
		sdl.PIXELFORMAT_ABGR8888)
	if err != nil {
		return errors.Wrap(err, "sdlwin: wrap pixels")
	}
	defer src.Free()

	if err := src.Blit(nil, target, nil); err != nil {
		return errors.Wrap(err, "sdlwin: blit")
	}
	return errors.Wrap(w.win.UpdateSurface(), "sdlwin: update surface")
}

func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Destroy closes the window. Surfaces built on it become lost.
func (w *Window) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.win.Destroy()
}
