/*
Package pack implements the frame buffer layout of the Waveshare 7.3" (F)
e-paper controller.

The buffer has no header. Pixels are taken in row-major order over the whole
frame and stored two to a byte, the first pixel in the upper nibble and the
second in the lower nibble. Only the low three bits of each nibble are
used, holding the palette index of the pixel. A pair may span the end of
one row and the start of the next. If the frame has an odd number of pixels
the final lower nibble is padded with WHITE.

A 480 by 800 frame is therefore exactly 192000 bytes.
*/
package pack

import (
	"fmt"
	"image"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
)

const (
	stage     = "pack"
	indexMask = 0x07
	padding   = byte(palette.White)
)

// Pack returns the packed frame buffer for m, which must have the given size.
func Pack(m *image.Paletted, size raster.Size) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("pack: nil image: %w", raster.ErrInvalidInput)
	}
	if err := raster.Check(stage, size, raster.SizeOf(m.Bounds())); err != nil {
		return nil, err
	}

	b := make([]byte, size.PackedLen())

	i := 0
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		for x := m.Rect.Min.X; x < m.Rect.Max.X; x++ {
			// This is masking off any bits leaving a 0-7 value
			c := m.ColorIndexAt(x, y) & indexMask
			if i&1 == 0 {
				b[i>>1] = c<<4 | padding
			} else {
				b[i>>1] = b[i>>1]&0xf0 | c
			}
			i++
		}
	}

	return b, nil
}
