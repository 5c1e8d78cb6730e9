package epaper

import (
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
	"github.com/everframe/epaper/resample"
)

// FloydSteinberg is the only supported dithering algorithm.
const FloydSteinberg = "floyd-steinberg"

// Panel dimensions of the Waveshare 7.3" (F) in portrait orientation.
const (
	DefaultWidth  = 480
	DefaultHeight = 800
)

const defaultWorkers = 10

// Config holds the encoding parameters.
type Config struct {
	Width      int
	Height     int
	Palette    palette.Palette
	Dither     string
	Backend    resample.Backend
	AutoOrient bool
	// Workers is the number of images Scan encodes concurrently
	Workers int
}

// DefaultConfig returns the configuration for the 480x800 panel.
func DefaultConfig() Config {
	return Config{
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Palette: palette.Default,
		Dither:  FloydSteinberg,
		Backend: resample.Imaging,
		Workers: defaultWorkers,
	}
}

// Size returns the target resolution.
func (c Config) Size() raster.Size {
	return raster.Size{Width: c.Width, Height: c.Height}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("epaper: invalid resolution %dx%d", c.Width, c.Height)
	}
	if err := c.Palette.Validate(); err != nil {
		return err
	}
	if c.Dither != FloydSteinberg {
		return fmt.Errorf("epaper: unsupported dithering algorithm %q", c.Dither)
	}
	if _, err := resample.ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.New("epaper: at least one worker is required")
	}
	return nil
}

// Fingerprint identifies the parameters that affect the encoded output. Two
// configurations with the same fingerprint produce identical frames from
// the same source.
func (c Config) Fingerprint() string {
	backend := c.Backend
	if b, err := resample.ParseBackend(string(backend)); err == nil {
		backend = b
	}
	s := fmt.Sprintf("%s;%s;%s;%s;%t", c.Size(), c.Palette, c.Dither, backend, c.AutoOrient)
	return fmt.Sprintf("%X", sha1.Sum([]byte(s)))
}
