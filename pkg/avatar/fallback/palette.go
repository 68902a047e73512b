package fallback

import (
	"image/color"
	"unicode/utf16"
)

// Swatch is a named palette color.
type Swatch struct {
	Name  string
	Color color.RGBA
}

// Palette holds the placeholder background colors. The order is part of
// the output contract: reordering it changes every generated avatar.
var Palette = [10]Swatch{
	{"holo_blue_light", rgb(0x33b5e5)},
	{"holo_purple", rgb(0xaa66cc)},
	{"holo_green_light", rgb(0x99cc00)},
	{"holo_orange_light", rgb(0xffbb33)},
	{"holo_red_light", rgb(0xff4444)},
	{"holo_blue_dark", rgb(0x0099cc)},
	{"holo_purple_dark", rgb(0x9933cc)},
	{"holo_green_dark", rgb(0x669900)},
	{"holo_orange_dark", rgb(0xff8800)},
	{"holo_red_dark", rgb(0xcc0000)},
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// PaletteIndex returns the palette slot for a normalized address.
func PaletteIndex(normalizedAddress string) int {
	h := int64(stringHash(normalizedAddress))
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(Palette)))
}

// stringHash is the classic 31-multiplier string hash over UTF-16 code
// units with int32 wraparound. Placeholder colors must stay stable across
// releases, so this must never be swapped for a seeded hash.
func stringHash(s string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	return h
}
