package gpu

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Windower is the external windowing collaborator: the platform library
// that owns the native window. The core consumes only what it needs to
// build a surface - the instance extensions the platform requires, the
// drawable size, a way to deliver finished pixels, and whether the window
// still exists. See the sdlwin subpackage for the SDL2 implementation.
type Windower interface {
	// RequiredExtensions names the instance extensions that must be
	// enabled for surfaces of this window to work.
	RequiredExtensions() []string

	// DrawableSize returns the current size of the presentable area.
	DrawableSize() (width, height int)

	// PresentPixels delivers a finished image to the window.
	PresentPixels(img *Image) error

	// Closed reports whether the native window has been destroyed.
	Closed() bool
}

// SurfaceCapabilities describes what swapchains the surface supports on a
// given physical device.
type SurfaceCapabilities struct {
	MinImageCount int
	MaxImageCount int

	CurrentExtent  Extent2D
	MinImageExtent Extent2D
	MaxImageExtent Extent2D

	CurrentTransform    Transform
	SupportedTransforms []Transform
}

// Surface is an opaque handle to a platform-presentable target. It is
// immutable once created; capability queries never mutate it.
type Surface struct {
	instance *Instance
	windower Windower

	mu        sync.Mutex
	destroyed bool
}

// CreateSurface builds a surface over the given window. It fails with
// ErrExtensionNotPresent if the instance was created without one of the
// extensions the windower requires.
func (i *Instance) CreateSurface(w Windower) (*Surface, error) {
	for _, ext := range w.RequiredExtensions() {
		if !i.extensions[ext] {
			return nil, errors.Wrapf(ErrExtensionNotPresent, "createSurface: instance created without %s", ext)
		}
	}
	return &Surface{instance: i, windower: w}, nil
}

// Capabilities queries supported image counts, extents, and transforms for
// the given physical device. Fails with ErrSurfaceLost once the platform
// window is gone.
func (s *Surface) Capabilities(p *PhysicalDevice) (*SurfaceCapabilities, error) {
	if s.isLost() {
		return nil, errors.Wrap(ErrSurfaceLost, "surface capabilities")
	}
	w, h := s.windower.DrawableSize()
	return &SurfaceCapabilities{
		MinImageCount:    p.minImageCount,
		MaxImageCount:    p.maxImageCount,
		CurrentExtent:    Extent2D{Width: w, Height: h},
		MinImageExtent:   Extent2D{Width: 1, Height: 1},
		MaxImageExtent:   Extent2D{Width: 16384, Height: 16384},
		CurrentTransform: TransformIdentity,
		SupportedTransforms: []Transform{
			TransformIdentity,
		},
	}, nil
}

// Formats queries the surface formats supported on the given physical
// device.
func (s *Surface) Formats(p *PhysicalDevice) ([]SurfaceFormat, error) {
	if s.isLost() {
		return nil, errors.Wrap(ErrSurfaceLost, "surface formats")
	}
	return []SurfaceFormat{
		{Format: FormatB8G8R8A8SRGB, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatB8G8R8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
		{Format: FormatR8G8B8A8Unorm, ColorSpace: ColorSpaceSRGBNonlinear},
	}, nil
}

// PresentModes queries the present modes supported on the given physical
// device.
func (s *Surface) PresentModes(p *PhysicalDevice) ([]PresentMode, error) {
	if s.isLost() {
		return nil, errors.Wrap(ErrSurfaceLost, "surface present modes")
	}
	return []PresentMode{PresentFIFO, PresentMailbox, PresentImmediate}, nil
}

func (s *Surface) isLost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed || s.windower.Closed()
}

func (s *Surface) currentExtent() Extent2D {
	w, h := s.windower.DrawableSize()
	return Extent2D{Width: w, Height: h}
}

// Destroy invalidates the surface. Swapchains built on it fail with
// ErrSurfaceLost from then on.
func (s *Surface) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.mu.Unlock()
}
