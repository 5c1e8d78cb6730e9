/*
Package quantize maps an image onto a fixed palette using Floyd-Steinberg
error diffusion.

Pixels are visited in row-major order. Each pixel's error-adjusted value is
rounded, clamped to [0, 255] and matched to the nearest palette color; the
difference is then spread to the unvisited neighbors:

	      *   7/16
	3/16 5/16 1/16

Neighbors outside the image are skipped. Because every decision depends on
the error accumulated from earlier pixels a single image cannot be
quantized in parallel.
*/
package quantize

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
	"github.com/makeworld-the-better-one/dither/v2"
)

const stage = "quantize"

// Quantizer converts images of a fixed size to palette indices.
type Quantizer struct {
	palette palette.Palette
	size    raster.Size
	matrix  dither.ErrorDiffusionMatrix
}

// New returns a Quantizer for images of the given size.
func New(p palette.Palette, size raster.Size) *Quantizer {
	return &Quantizer{
		palette: p,
		size:    size,
		matrix:  dither.FloydSteinberg,
	}
}

// Size returns the image size the Quantizer accepts.
func (q *Quantizer) Size() raster.Size {
	return q.size
}

// currentPixel returns the column of the first matrix row that corresponds
// to the pixel being quantized; error is only ever pushed to the right of it.
func currentPixel(m dither.ErrorDiffusionMatrix) int {
	for i, v := range m[0] {
		if v != 0 {
			return i - 1
		}
	}
	return 0
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Quantize returns m reduced to the Quantizer's palette. The input is not
// modified. The returned image has its origin at (0, 0).
func (q *Quantizer) Quantize(m *image.NRGBA) (*image.Paletted, error) {
	if m == nil {
		return nil, fmt.Errorf("quantize: nil image: %w", raster.ErrInvalidInput)
	}
	if err := q.palette.Validate(); err != nil {
		return nil, err
	}
	if err := raster.Check(stage, q.size, raster.SizeOf(m.Bounds())); err != nil {
		return nil, err
	}

	w, h := q.size.Width, q.size.Height

	// Working copy of the RGB channels that accumulates diffused error
	buf := make([]float64, w*h*3)
	for y := 0; y < h; y++ {
		row := m.Pix[m.PixOffset(m.Rect.Min.X, m.Rect.Min.Y+y):]
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			buf[i+0] = float64(row[x*4+0])
			buf[i+1] = float64(row[x*4+1])
			buf[i+2] = float64(row[x*4+2])
		}
	}

	out := image.NewPaletted(q.size.Rect(), q.palette.ColorPalette())
	cur := currentPixel(q.matrix)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			c := color.RGBA{clamp(buf[i+0]), clamp(buf[i+1]), clamp(buf[i+2]), 0xff}

			idx := q.palette.NearestIndex(c)
			out.Pix[y*out.Stride+x] = uint8(idx)

			p := q.palette[idx]
			er := float64(c.R) - float64(p.R)
			eg := float64(c.G) - float64(p.G)
			eb := float64(c.B) - float64(p.B)
			if er == 0 && eg == 0 && eb == 0 {
				continue
			}

			for dy, weights := range q.matrix {
				ny := y + dy
				if ny >= h {
					break
				}
				for col, weight := range weights {
					dx := col - cur
					if weight == 0 || (dy == 0 && dx <= 0) {
						continue
					}
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					f := float64(weight)
					j := (ny*w + nx) * 3
					buf[j+0] += er * f
					buf[j+1] += eg * f
					buf[j+2] += eb * f
				}
			}
		}
	}

	return out, nil
}
