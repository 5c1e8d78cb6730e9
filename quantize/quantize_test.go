package quantize

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromPixels(w, h int, pixels ...color.NRGBA) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range pixels {
		m.SetNRGBA(i%w, i/w, c)
	}
	return m
}

func fill(w, h int, c color.NRGBA) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(m, m.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return m
}

func indices(m *image.Paletted) []palette.Index {
	var out []palette.Index
	for y := 0; y < m.Rect.Dy(); y++ {
		for x := 0; x < m.Rect.Dx(); x++ {
			out = append(out, palette.Index(m.ColorIndexAt(x, y)))
		}
	}
	return out
}

func TestCurrentPixel(t *testing.T) {
	q := New(palette.Default, raster.Size{Width: 1, Height: 1})
	assert.Equal(t, 1, currentPixel(q.matrix))
	require.Len(t, q.matrix, 2)
	assert.Equal(t, []float64{0, 0, 7.0 / 16}, []float64{float64(q.matrix[0][0]), float64(q.matrix[0][1]), float64(q.matrix[0][2])})
	assert.Equal(t, []float64{3.0 / 16, 5.0 / 16, 1.0 / 16}, []float64{float64(q.matrix[1][0]), float64(q.matrix[1][1]), float64(q.matrix[1][2])})
}

func TestQuantizeSolid(t *testing.T) {
	size := raster.Size{Width: 48, Height: 80}
	q := New(palette.Default, size)

	for i, c := range palette.Default {
		m, err := q.Quantize(fill(size.Width, size.Height, color.NRGBA{c.R, c.G, c.B, 0xff}))
		require.NoError(t, err)
		for _, idx := range indices(m) {
			if !assert.Equal(t, palette.Index(i), idx) {
				break
			}
		}
	}
}

func TestQuantizeExactColors(t *testing.T) {
	q := New(palette.Default, raster.Size{Width: 2, Height: 2})
	m, err := q.Quantize(fromPixels(2, 2,
		color.NRGBA{0, 0, 0, 0xff},
		color.NRGBA{255, 255, 255, 0xff},
		color.NRGBA{0, 255, 0, 0xff},
		color.NRGBA{10, 10, 10, 0xff},
	))
	require.NoError(t, err)
	assert.Equal(t, []palette.Index{palette.Black, palette.White, palette.Green, palette.Black}, indices(m))
}

func TestQuantizeDiffusion(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want []palette.Index
	}{
		// Without diffusion every pixel would be BLACK
		{"row", 2, 1, []palette.Index{palette.Black, palette.Orange}},
		{"column", 1, 2, []palette.Index{palette.Black, palette.Orange}},
		{"square", 2, 2, []palette.Index{palette.Black, palette.Orange, palette.Blue, palette.Orange}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(palette.Default, raster.Size{Width: tt.w, Height: tt.h})
			m, err := q.Quantize(fill(tt.w, tt.h, color.NRGBA{100, 100, 100, 0xff}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, indices(m))
		})
	}
}

func TestQuantizeClamps(t *testing.T) {
	// The error pushed from the first pixel would take the second below zero
	q := New(palette.Default, raster.Size{Width: 3, Height: 1})
	m, err := q.Quantize(fromPixels(3, 1,
		color.NRGBA{200, 200, 200, 0xff},
		color.NRGBA{0, 0, 0, 0xff},
		color.NRGBA{0, 0, 0, 0xff},
	))
	require.NoError(t, err)
	assert.Equal(t, []palette.Index{palette.White, palette.Black, palette.Black}, indices(m))
}

func TestQuantizePreservesAverageTone(t *testing.T) {
	size := raster.Size{Width: 64, Height: 64}
	q := New(palette.Default, size)
	m, err := q.Quantize(fill(size.Width, size.Height, color.NRGBA{60, 60, 60, 0xff}))
	require.NoError(t, err)

	counts := make(map[palette.Index]int)
	for _, idx := range indices(m) {
		counts[idx]++
	}
	assert.Less(t, counts[palette.Black], size.Pixels(), "dark gray must dither in some lighter pixels")
	for idx, n := range counts {
		if idx != palette.Black {
			assert.Greater(t, counts[palette.Black], n, "%s", idx)
		}
	}
}

func TestQuantizeDeterministic(t *testing.T) {
	size := raster.Size{Width: 32, Height: 16}
	src := image.NewNRGBA(size.Rect())
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			src.SetNRGBA(x, y, color.NRGBA{uint8(x * 8), uint8(y * 16), uint8(x * y), 0xff})
		}
	}
	before := append([]byte(nil), src.Pix...)

	q := New(palette.Default, size)
	a, err := q.Quantize(src)
	require.NoError(t, err)
	b, err := q.Quantize(src)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, before, src.Pix)
}

func TestQuantizeOffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(3, 7, 5, 9))
	src.SetNRGBA(3, 7, color.NRGBA{0, 0, 255, 0xff})
	src.SetNRGBA(4, 7, color.NRGBA{255, 0, 0, 0xff})
	src.SetNRGBA(3, 8, color.NRGBA{255, 255, 0, 0xff})
	src.SetNRGBA(4, 8, color.NRGBA{255, 128, 0, 0xff})

	q := New(palette.Default, raster.Size{Width: 2, Height: 2})
	m, err := q.Quantize(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), m.Bounds())
	assert.Equal(t, []palette.Index{palette.Blue, palette.Red, palette.Yellow, palette.Orange}, indices(m))
}

func TestQuantizeDimensionMismatch(t *testing.T) {
	q := New(palette.Default, raster.Size{Width: 480, Height: 800})
	_, err := q.Quantize(fill(2, 2, color.NRGBA{0, 0, 0, 0xff}))
	assert.True(t, errors.Is(err, raster.ErrDimensionMismatch))

	_, err = q.Quantize(nil)
	assert.True(t, errors.Is(err, raster.ErrInvalidInput))
}
