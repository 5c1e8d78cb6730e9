/*
Package epaper converts images into frame buffers for seven color e-paper
panels such as the Waveshare 7.3" (F).

An image is resampled to the panel resolution with a Lanczos-3 filter,
reduced to the panel palette with Floyd-Steinberg error diffusion and packed
two pixels per byte. The resulting buffer has no header and is exactly
ceil(width*height/2) bytes, 192000 bytes for a 480x800 panel:

	Offset  Bits  Content
	0       7..4  palette index of pixel (0, 0)
	0       3..0  palette index of pixel (1, 0)
	1       7..4  palette index of pixel (2, 0)
	...

Pixels are stored in row-major order. Only the low three bits of each nibble
are used. If the number of pixels is odd the final low nibble is WHITE.
*/
package epaper

import (
	"io"
	"log"

	"github.com/everframe/epaper/cache"
	"github.com/everframe/epaper/quantize"
)

// Encoder turns images into packed frame buffers. It is safe for concurrent
// use.
type Encoder struct {
	cfg         Config
	fingerprint string
	quantizer   *quantize.Quantizer
	cache       *cache.DB
	logger      *log.Logger
}

// New returns an Encoder for cfg. db may be nil to disable caching and
// logger may be nil to discard log output.
func New(cfg Config, db *cache.DB, logger *log.Logger) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Encoder{
		cfg:         cfg,
		fingerprint: cfg.Fingerprint(),
		quantizer:   quantize.New(cfg.Palette, cfg.Size()),
		cache:       db,
		logger:      logger,
	}, nil
}

// Config returns the configuration of the encoder.
func (e *Encoder) Config() Config {
	return e.cfg
}
