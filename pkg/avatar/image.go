package avatar

import (
	"bytes"
	"image"
	"image/color"
)

// BytesPerPixel is the footprint of one RGBA pixel.
const BytesPerPixel = 4

// Image is a decoded, square RGBA avatar.
//
// An Image is immutable once constructed: the pixel buffer is owned by the
// Image and callers must not modify what RGBA returns. This lets the cache
// hand the same Image to any number of slots and goroutines.
type Image struct {
	rgba *image.RGBA
}

// NewImage wraps rgba. The caller hands over ownership of the buffer.
func NewImage(rgba *image.RGBA) *Image {
	return &Image{rgba: rgba}
}

// Dimension returns the width of the image in pixels. Avatars are square.
func (i *Image) Dimension() int {
	return i.rgba.Rect.Dx()
}

// ByteSize returns the resident size of the pixel buffer in bytes
// (width × height × bytes per pixel).
func (i *Image) ByteSize() int64 {
	b := i.rgba.Rect
	return int64(b.Dx()) * int64(b.Dy()) * BytesPerPixel
}

// RGBA returns the underlying pixel buffer. It must be treated as read-only.
func (i *Image) RGBA() *image.RGBA {
	return i.rgba
}

// Equal reports whether both images have identical bounds and pixels.
func (i *Image) Equal(other *Image) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.rgba.Rect.Eq(other.rgba.Rect) && bytes.Equal(i.rgba.Pix, other.rgba.Pix)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (i *Image) Bounds() image.Rectangle {
	return i.rgba.Rect
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.rgba.At(x, y)
}
