// Package resample scales images to the panel resolution with a Lanczos-3
// filter. Aspect ratio is not preserved; the source is stretched to fill the
// target exactly.
package resample

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"github.com/everframe/epaper/raster"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// Backend selects the library performing the Lanczos-3 resampling.
type Backend string

// Supported backends.
const (
	Imaging Backend = "imaging"
	Gift    Backend = "gift"
	Resize  Backend = "resize"
	XDraw   Backend = "xdraw"
)

// Backends lists every supported backend, default first.
var Backends = []Backend{Imaging, Gift, Resize, XDraw}

// ParseBackend returns the Backend named s. An empty string selects Imaging.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return Imaging, nil
	}
	for _, b := range Backends {
		if string(b) == s {
			return b, nil
		}
	}
	return "", fmt.Errorf("resample: unknown backend %q", s)
}

// lanczos3 is the Lanczos kernel with a = 3 for golang.org/x/image/draw.
var lanczos3 = &draw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		x := math.Pi * t
		return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
	},
}

// Resample returns a copy of m scaled to size using backend b. The result
// always has its origin at (0, 0). If m already has the requested size its
// pixels are copied unchanged.
func Resample(m image.Image, size raster.Size, b Backend) (*image.NRGBA, error) {
	if m == nil || raster.SizeOf(m.Bounds()).Empty() {
		return nil, fmt.Errorf("resample: empty source image: %w", raster.ErrInvalidInput)
	}
	if size.Empty() {
		return nil, fmt.Errorf("resample: invalid target size %s: %w", size, raster.ErrInvalidInput)
	}

	if raster.SizeOf(m.Bounds()) == size {
		return imaging.Clone(m), nil
	}

	switch b {
	case Imaging, "":
		return imaging.Resize(m, size.Width, size.Height, imaging.Lanczos), nil
	case Gift:
		g := gift.New(gift.Resize(size.Width, size.Height, gift.LanczosResampling))
		dst := image.NewNRGBA(g.Bounds(m.Bounds()))
		g.Draw(dst, m)
		return dst, nil
	case Resize:
		return imaging.Clone(resize.Resize(uint(size.Width), uint(size.Height), m, resize.Lanczos3)), nil
	case XDraw:
		dst := image.NewNRGBA(size.Rect())
		lanczos3.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Src, nil)
		return dst, nil
	default:
		return nil, fmt.Errorf("resample: unknown backend %q", b)
	}
}
