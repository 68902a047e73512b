package avatar

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    Key
		wantErr bool
	}{
		{"lowercases", "Bob@Example.COM", "bob@example.com", false},
		{"trims", "  alice@x.com\t", "alice@x.com", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyFor(tt.address)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	id, err := ParseIdentity("Alice Example <Alice@Example.com>")
	require.NoError(t, err)
	assert.Equal(t, "Alice@Example.com", id.Address)
	assert.Equal(t, "Alice Example", id.DisplayName)

	id, err = ParseIdentity("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", id.Address)
	assert.Empty(t, id.DisplayName)

	_, err = ParseIdentity("not an address")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseIdentity("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bob@x.com", NewIdentity("bob@x.com", "").String())
	assert.Equal(t, "Bob <bob@x.com>", NewIdentity("bob@x.com", "Bob").String())
}

func TestImage(t *testing.T) {
	t.Parallel()

	a := NewImage(image.NewRGBA(image.Rect(0, 0, 40, 40)))
	b := NewImage(image.NewRGBA(image.Rect(0, 0, 40, 40)))

	assert.Equal(t, 40, a.Dimension())
	assert.Equal(t, int64(40*40*BytesPerPixel), a.ByteSize())
	assert.True(t, a.Equal(b))

	b.RGBA().Pix[0] = 0xff
	assert.False(t, a.Equal(b))

	var nilImage *Image
	assert.False(t, a.Equal(nilImage))
	assert.True(t, nilImage.Equal(nil))
}
