// Package fallback renders deterministic placeholder avatars: a solid
// palette color chosen from the contact address, with the contact's initial
// drawn in white on top.
package fallback

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// UnknownLetter is drawn when the contact has no ASCII letter to show.
const UnknownLetter = '?'

// Generator renders placeholder avatars of a fixed size.
//
// Generate is safe for concurrent use. The output is a pure function of the
// identity and the size: no randomness, no dependence on time or host.
type Generator struct {
	size int

	// mu guards face: opentype faces keep scratch buffers and are not safe
	// for concurrent use.
	mu   sync.Mutex
	face font.Face
}

// New creates a generator for size × size avatars using the embedded Go
// Regular font scaled to three quarters of the image.
func New(size int) (*Generator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("fallback: invalid picture size %d", size)
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("fallback: failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size * 3 / 4),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback: failed to create font face: %w", err)
	}

	return &Generator{size: size, face: face}, nil
}

// Size returns the avatar dimension in pixels.
func (g *Generator) Size() int {
	return g.size
}

// Generate renders the placeholder for id.
func (g *Generator) Generate(id avatar.Identity) *avatar.Image {
	rgba := image.NewRGBA(image.Rect(0, 0, g.size, g.size))

	bg := Palette[colorIndex(id)].Color
	draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	g.drawLetter(rgba, string(Letter(id)))

	return avatar.NewImage(rgba)
}

// drawLetter centers the glyph on its ink bounds rather than on its
// advance box, so letters with descenders or narrow strokes still look
// centered.
func (g *Generator) drawLetter(dst *image.RGBA, letter string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	bounds, _ := font.BoundString(g.face, letter)
	center := fixed.I(g.size) / 2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: g.face,
		Dot: fixed.Point26_6{
			X: center - (bounds.Min.X+bounds.Max.X)/2,
			Y: center - (bounds.Min.Y+bounds.Max.Y)/2,
		},
	}
	d.DrawString(letter)
}

// Letter returns the initial shown on the placeholder: the first ASCII
// letter of the display name (or of the address when there is no display
// name), upper-cased, or UnknownLetter when there is none.
func Letter(id avatar.Identity) rune {
	source := id.DisplayName
	if source == "" {
		source = id.Address
	}

	for _, r := range source {
		switch {
		case r >= 'A' && r <= 'Z':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
	}
	return UnknownLetter
}

// ColorFor returns the background swatch used for id.
func ColorFor(id avatar.Identity) Swatch {
	return Palette[colorIndex(id)]
}

func colorIndex(id avatar.Identity) int {
	key, err := avatar.KeyFor(id.Address)
	if err != nil {
		return 0
	}
	return PaletteIndex(key.String())
}
