package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/contactpic/pkg/avatar"
)

func TestLetter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   avatar.Identity
		want rune
	}{
		{"display name wins", avatar.NewIdentity("bob@x.com", "Alice"), 'A'},
		{"address when no name", avatar.NewIdentity("bob@example.com", ""), 'B'},
		{"skips non-letter prefix", avatar.NewIdentity("123@test.com", ""), 'T'},
		{"lower-case name", avatar.NewIdentity("x@y.z", "zoe"), 'Z'},
		{"name prefix skipped", avatar.NewIdentity("x@y.z", "  (42) carol"), 'C'},
		{"non-ascii ignored", avatar.NewIdentity("x@y.z", "Émile"), 'M'},
		{"no letters", avatar.NewIdentity("123@456", ""), UnknownLetter},
		{"name without letters", avatar.NewIdentity("bob@x.com", "123"), UnknownLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, string(tt.want), string(Letter(tt.id)))
		})
	}
}

func TestStringHashMatchesClassicHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(0), stringHash(""))
	assert.Equal(t, int32(99162322), stringHash("hello"))
	assert.Equal(t, 2, PaletteIndex("hello"))

	// Long strings wrap around int32; the index must still be in range.
	idx := PaletteIndex("a-very-long-address-that-overflows@example.com")
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, len(Palette))
}

func TestColorIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	a := ColorFor(avatar.NewIdentity("Bob@Example.com", ""))
	b := ColorFor(avatar.NewIdentity("bob@example.com", "Robert"))
	assert.Equal(t, a, b)
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()

	g, err := New(40)
	require.NoError(t, err)

	id := avatar.NewIdentity("alice@example.com", "Alice")
	first := g.Generate(id)
	second := g.Generate(id)

	assert.Equal(t, 40, first.Dimension())
	assert.True(t, first.Equal(second))

	// A fresh generator must produce the same pixels.
	g2, err := New(40)
	require.NoError(t, err)
	assert.True(t, first.Equal(g2.Generate(id)))
}

func TestGenerateFillsBackgroundAndDrawsLetter(t *testing.T) {
	t.Parallel()

	g, err := New(40)
	require.NoError(t, err)

	id := avatar.NewIdentity("carol@example.com", "Carol")
	img := g.Generate(id)
	bg := ColorFor(id).Color

	assert.Equal(t, bg, img.RGBA().RGBAAt(0, 0))
	assert.Equal(t, bg, img.RGBA().RGBAAt(39, 39))

	var glyphPixels int
	rgba := img.RGBA()
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if rgba.RGBAAt(x, y) != bg {
				glyphPixels++
			}
		}
	}
	assert.Greater(t, glyphPixels, 0, "letter should be rendered")
}

func TestGenerateConcurrent(t *testing.T) {
	t.Parallel()

	g, err := New(32)
	require.NoError(t, err)

	id := avatar.NewIdentity("dave@example.com", "")
	want := g.Generate(id)

	done := make(chan *avatar.Image, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- g.Generate(id) }()
	}
	for i := 0; i < 8; i++ {
		assert.True(t, want.Equal(<-done))
	}
}

func TestNewRejectsInvalidSize(t *testing.T) {
	t.Parallel()

	_, err := New(0)
	assert.Error(t, err)
}
