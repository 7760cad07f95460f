package gpu

type Extent2D struct {
	Width  int
	Height int
}

// Format is the pixel format of a presentable image. The model stores every
// image as tightly packed RGBA bytes; the format records what the
// application negotiated.
type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8SRGB
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8Unorm
)

func (f Format) String() string {
	switch f {
	case FormatB8G8R8A8SRGB:
		return "B8G8R8A8_SRGB"
	case FormatB8G8R8A8Unorm:
		return "B8G8R8A8_UNORM"
	case FormatR8G8B8A8Unorm:
		return "R8G8B8A8_UNORM"
	}
	return "UNDEFINED"
}

type ColorSpace int

const (
	ColorSpaceSRGBNonlinear ColorSpace = iota
)

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode selects how presentation requests are paced.
type PresentMode int

const (
	PresentFIFO PresentMode = iota
	PresentMailbox
	PresentImmediate
)

func (m PresentMode) String() string {
	switch m {
	case PresentFIFO:
		return "FIFO"
	case PresentMailbox:
		return "MAILBOX"
	case PresentImmediate:
		return "IMMEDIATE"
	}
	return "UNKNOWN"
}

// Transform is a surface pre-transform.
type Transform int

const (
	TransformIdentity Transform = iota
	TransformRotate90
	TransformRotate180
	TransformRotate270
)

// Image is one presentable image of a swapchain: a CPU-addressable RGBA
// framebuffer. Pix holds 4*Width*Height bytes in row-major order.
type Image struct {
	index  int
	extent Extent2D
	format Format

	Pix []byte
}

func newImage(index int, extent Extent2D, format Format) *Image {
	return &Image{
		index:  index,
		extent: extent,
		format: format,
		Pix:    make([]byte, 4*extent.Width*extent.Height),
	}
}

func (img *Image) Index() int {
	return img.index
}

func (img *Image) Extent() Extent2D {
	return img.extent
}

func (img *Image) Format() Format {
	return img.format
}

// Set writes one pixel, ignoring out-of-bounds coordinates.
func (img *Image) Set(x, y int, r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= img.extent.Width || y >= img.extent.Height {
		return
	}
	i := 4 * (y*img.extent.Width + x)
	img.Pix[i] = r
	img.Pix[i+1] = g
	img.Pix[i+2] = b
	img.Pix[i+3] = a
}

// Clear fills the whole image with one color.
func (img *Image) Clear(r, g, b, a uint8) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
}
