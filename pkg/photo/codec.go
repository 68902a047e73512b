package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/marmos91/contactpic/pkg/avatar"
)

const (
	// DefaultMaxSourceBytes caps the encoded photo size.
	DefaultMaxSourceBytes = 8 << 20

	// DefaultMaxSourcePixels caps the decoded photo area.
	DefaultMaxSourcePixels = 40_000_000
)

// Codec decodes photos and scales them to square avatars. The zero value
// uses the default limits.
type Codec struct {
	// MaxSourceBytes rejects encoded input larger than this.
	MaxSourceBytes int64

	// MaxSourcePixels rejects images whose header declares more pixels,
	// before any pixel data is decoded.
	MaxSourcePixels int64
}

// NewCodec returns a codec with the given byte limit (0 for the default).
func NewCodec(maxSourceBytes int64) *Codec {
	return &Codec{MaxSourceBytes: maxSourceBytes}
}

// DecodeAndScale implements loader.Codec. Non-square photos are stretched
// to fill the square.
func (c *Codec) DecodeAndScale(r io.Reader, size int) (*avatar.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", avatar.ErrInvalidInput, size)
	}

	limit := c.MaxSourceBytes
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}
	maxPixels := c.MaxSourcePixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxSourcePixels
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: photo exceeds %d bytes", avatar.ErrDecode, limit)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", avatar.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %s image of %dx%d rejected", avatar.ErrDecode, format, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", avatar.ErrDecode, format, err)
	}

	return Scale(src, size), nil
}

// Scale resamples src into a size × size avatar with Catmull-Rom filtering.
func Scale(src image.Image, size int) *avatar.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return avatar.NewImage(dst)
}

// Formats lists the encodings Encode accepts.
var Formats = []string{"png", "jpeg", "bmp"}

// Encode writes img in format ("png", "jpeg"/"jpg" or "bmp").
func Encode(w io.Writer, img *avatar.Image, format string) error {
	switch strings.ToLower(format) {
	case "", "png":
		return png.Encode(w, img.RGBA())
	case "jpeg", "jpg":
		return jpeg.Encode(w, img.RGBA(), &jpeg.Options{Quality: 90})
	case "bmp":
		return bmp.Encode(w, img.RGBA())
	default:
		return fmt.Errorf("%w: unsupported format %q", avatar.ErrInvalidInput, format)
	}
}

// ContentType returns the MIME type for an Encode format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}
