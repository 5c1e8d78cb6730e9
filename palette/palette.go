/*
Package palette implements the fixed color palette of the Waveshare 7.3" (F)
seven color e-paper panel.

The position of a color in the palette is also its 3-bit device code, so the
palette order is significant:

	0 BLACK   #000000
	1 WHITE   #ffffff
	2 GREEN   #00ff00
	3 BLUE    #0000ff
	4 RED     #ff0000
	5 YELLOW  #ffff00
	6 ORANGE  #ff8000

Nearest color matching uses plain squared RGB distance and the first entry
achieving the minimum distance wins.
*/
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// MaxColors is the number of device codes that fit in three bits.
const MaxColors = 8

// Index is a palette position and device color code.
type Index uint8

// Device color codes.
const (
	Black Index = iota
	White
	Green
	Blue
	Red
	Yellow
	Orange
)

var names = [...]string{"BLACK", "WHITE", "GREEN", "BLUE", "RED", "YELLOW", "ORANGE"}

func (i Index) String() string {
	if int(i) < len(names) {
		return names[i]
	}
	return "Index(" + strconv.Itoa(int(i)) + ")"
}

// Palette is an ordered list of colors indexed by device code.
type Palette []color.RGBA

// Default is the palette of the 7.3" (F) panel.
var Default = Palette{
	{0x00, 0x00, 0x00, 0xff},
	{0xff, 0xff, 0xff, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0xff, 0x00, 0x00, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0xff, 0x80, 0x00, 0xff},
}

func sqDiff(x, y uint8) uint32 {
	d := int32(x) - int32(y)
	return uint32(d * d)
}

// NearestIndex returns the index of the palette color closest to c. Alpha is
// ignored. If several colors are equally close the lowest index is returned.
func (p Palette) NearestIndex(c color.RGBA) Index {
	var best Index
	bestSum := uint32(1<<32 - 1)
	for i, e := range p {
		sum := sqDiff(c.R, e.R) + sqDiff(c.G, e.G) + sqDiff(c.B, e.B)
		if sum < bestSum {
			best, bestSum = Index(i), sum
			if sum == 0 {
				break
			}
		}
	}
	return best
}

// ColorPalette returns p as a color.Palette suitable for image.Paletted.
func (p Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c
	}
	return cp
}

// String formats p as a comma separated list of hex colors, the same form
// accepted by Parse.
func (p Palette) String() string {
	s := make([]string, len(p))
	for i, c := range p {
		s[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return strings.Join(s, ",")
}

// Validate checks that p can be addressed with 3-bit device codes.
func (p Palette) Validate() error {
	switch {
	case len(p) == 0:
		return errors.New("palette: no colors")
	case len(p) > MaxColors:
		return fmt.Errorf("palette: %d colors, at most %d supported", len(p), MaxColors)
	}
	return nil
}

// Parse reads a comma separated list of hex colors such as
// "#000000,#ffffff". The leading '#' is optional.
func Parse(s string) (Palette, error) {
	var p Palette
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimPrefix(strings.TrimSpace(field), "#")
		if len(field) != 6 {
			return nil, fmt.Errorf("palette: invalid color %q", field)
		}
		v, err := strconv.ParseUint(field, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("palette: invalid color %q", field)
		}
		p = append(p, color.RGBA{byte(v >> 16), byte(v >> 8), byte(v), 0xff})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
