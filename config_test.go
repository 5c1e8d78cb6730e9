package epaper

import (
	"testing"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
	"github.com/everframe/epaper/resample"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, raster.Size{Width: 480, Height: 800}, cfg.Size())
	assert.Equal(t, palette.Default, cfg.Palette)
	assert.Equal(t, FloydSteinberg, cfg.Dither)
	assert.Equal(t, resample.Imaging, cfg.Backend)
	assert.False(t, cfg.AutoOrient)
	assert.Equal(t, 10, cfg.Workers)
}

func TestConfigValidate(t *testing.T) {
	tables := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"empty backend", func(c *Config) { c.Backend = "" }, true},
		{"xdraw", func(c *Config) { c.Backend = resample.XDraw }, true},
		{"zero width", func(c *Config) { c.Width = 0 }, false},
		{"negative height", func(c *Config) { c.Height = -1 }, false},
		{"no palette", func(c *Config) { c.Palette = nil }, false},
		{"large palette", func(c *Config) { c.Palette = make(palette.Palette, 9) }, false},
		{"atkinson", func(c *Config) { c.Dither = "atkinson" }, false},
		{"unknown backend", func(c *Config) { c.Backend = "bicubic" }, false},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			cfg := DefaultConfig()
			table.modify(&cfg)
			if table.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestConfigFingerprint(t *testing.T) {
	fp := DefaultConfig().Fingerprint()
	assert.Len(t, fp, 40)
	assert.Equal(t, fp, DefaultConfig().Fingerprint())

	// The empty backend selects imaging
	cfg := DefaultConfig()
	cfg.Backend = ""
	assert.Equal(t, fp, cfg.Fingerprint())

	// Worker count doesn't change the output
	cfg = DefaultConfig()
	cfg.Workers = 1
	assert.Equal(t, fp, cfg.Fingerprint())

	for _, modify := range []func(*Config){
		func(c *Config) { c.Width = 800 },
		func(c *Config) { c.Palette = palette.Default[:6] },
		func(c *Config) { c.Backend = resample.Gift },
		func(c *Config) { c.AutoOrient = true },
	} {
		cfg := DefaultConfig()
		modify(&cfg)
		assert.NotEqual(t, fp, cfg.Fingerprint())
	}
}
