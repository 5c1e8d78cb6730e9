package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestIndexExact(t *testing.T) {
	for i, c := range Default {
		assert.Equal(t, Index(i), Default.NearestIndex(c), "color %v", c)
	}
}

func TestNearestIndex(t *testing.T) {
	tests := []struct {
		name  string
		color color.RGBA
		want  Index
	}{
		{"near black", color.RGBA{10, 10, 10, 0xff}, Black},
		{"dark gray", color.RGBA{60, 60, 60, 0xff}, Black},
		// Mid grays sit closer to ORANGE (255,128,0) than to BLACK or WHITE
		{"gray 127", color.RGBA{127, 127, 127, 0xff}, Orange},
		{"gray 128", color.RGBA{128, 128, 128, 0xff}, Orange},
		{"light gray", color.RGBA{200, 200, 200, 0xff}, White},
		{"alpha ignored", color.RGBA{255, 0, 0, 0x00}, Red},
		{"dark orange", color.RGBA{230, 120, 10, 0xff}, Orange},
		{"olive", color.RGBA{200, 220, 30, 0xff}, Yellow},
		{"navy", color.RGBA{0, 0, 140, 0xff}, Blue},
		// Equidistant from GREEN and BLUE, GREEN comes first
		{"tie green blue", color.RGBA{0, 200, 200, 0xff}, Green},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.NearestIndex(tt.color))
		})
	}
}

func TestNearestIndexTieBreak(t *testing.T) {
	p := Palette{
		{0, 0, 0, 0xff},
		{0, 0, 20, 0xff},
	}
	assert.Equal(t, Index(0), p.NearestIndex(color.RGBA{0, 0, 10, 0xff}))

	reversed := Palette{p[1], p[0]}
	assert.Equal(t, Index(0), reversed.NearestIndex(color.RGBA{0, 0, 10, 0xff}))

	// Mid gray is often assumed to be a BLACK/WHITE tie. It isn't: WHITE is
	// nearer than BLACK and ORANGE nearer than both, so the result is fixed.
	for i := 0; i < 10; i++ {
		assert.Equal(t, Orange, Default.NearestIndex(color.RGBA{128, 128, 128, 0xff}))
	}
}

func TestColorPalette(t *testing.T) {
	cp := Default.ColorPalette()
	require.Len(t, cp, 7)
	assert.Equal(t, 3, cp.Index(color.RGBA{0, 0, 0xff, 0xff}))
}

func TestIndexString(t *testing.T) {
	assert.Equal(t, "BLACK", Black.String())
	assert.Equal(t, "ORANGE", Orange.String())
	assert.Equal(t, "Index(7)", Index(7).String())
}

func TestParse(t *testing.T) {
	p, err := Parse(Default.String())
	require.NoError(t, err)
	assert.Equal(t, Default, p)

	p, err = Parse(" 000000, #FFFFFF ")
	require.NoError(t, err)
	assert.Equal(t, Palette{{0, 0, 0, 0xff}, {0xff, 0xff, 0xff, 0xff}}, p)

	tests := []string{
		"",
		"#12345",
		"#gggggg",
		"000000,",
		"000000,111111,222222,333333,444444,555555,666666,777777,888888",
	}
	for _, s := range tests {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "#000000,#ffffff,#00ff00,#0000ff,#ff0000,#ffff00,#ff8000", Default.String())
}
