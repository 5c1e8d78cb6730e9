package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/everframe/epaper"
	"github.com/everframe/epaper/cache"
	"github.com/everframe/epaper/epd"
	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/resample"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func newConfig(c *cli.Context) (epaper.Config, error) {
	cfg := epaper.DefaultConfig()
	cfg.Width = c.Int("width")
	cfg.Height = c.Int("height")
	cfg.AutoOrient = c.Bool("auto-orient")
	cfg.Dither = c.String("dither")

	p, err := palette.Parse(c.String("palette"))
	if err != nil {
		return cfg, err
	}
	cfg.Palette = p

	b, err := resample.ParseBackend(c.String("backend"))
	if err != nil {
		return cfg, err
	}
	cfg.Backend = b

	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}

	return cfg, cfg.Validate()
}

// newEncoder builds an encoder from the global flags. The returned function
// closes the cache, if any.
func newEncoder(c *cli.Context) (*epaper.Encoder, func(), error) {
	cfg, err := newConfig(c)
	if err != nil {
		return nil, nil, err
	}

	var db *cache.DB
	closer := func() {}
	if file := c.Path("cache"); file != "" {
		if db, err = cache.Open(file); err != nil {
			return nil, nil, err
		}
		closer = func() { db.Close() }
	}

	e, err := epaper.New(cfg, db, newLogger(c))
	if err != nil {
		closer()
		return nil, nil, err
	}

	return e, closer, nil
}

// loadFrame returns the packed frame buffer in file, encoding it first if
// it is an image.
func loadFrame(e *epaper.Encoder, file string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(file), epaper.Ext) {
		return os.ReadFile(file)
	}

	m, err := imaging.Open(file, imaging.AutoOrientation(e.Config().AutoOrient))
	if err != nil {
		return nil, err
	}

	r, err := e.Encode(m)
	if err != nil {
		return nil, err
	}

	return r.Data, nil
}

var errNoCache = errors.New("no cache database, set --cache")

// openCache opens the database named by --cache, which is required.
func openCache(c *cli.Context) (*cache.DB, error) {
	file := c.Path("cache")
	if file == "" {
		return nil, errNoCache
	}
	return cache.Open(file)
}

func display(c *cli.Context) error {
	if c.NArg() < 1 && !c.Bool("clear") {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	e, closer, err := newEncoder(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closer()

	var frame []byte
	if !c.Bool("clear") {
		if frame, err = loadFrame(e, c.Args().First()); err != nil {
			return cli.Exit(err, 1)
		}
	}

	names := epd.PinNames{
		DC:   c.String("dc"),
		RST:  c.String("rst"),
		Busy: c.String("busy"),
		PWR:  c.String("pwr"),
	}

	dev, err := epd.OpenSPI(c.String("spi"), names, e.Config().Size())
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer dev.Halt()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	if err := dev.Init(ctx); err != nil {
		return cli.Exit(err, 1)
	}

	if frame == nil {
		err = dev.Clear(ctx, palette.White)
	} else {
		err = dev.Display(ctx, frame)
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "everframe"
	app.Usage = "Seven color e-paper image encoder"
	app.Version = "1.0.0"

	cfg := epaper.DefaultConfig()

	flags := []cli.Flag{
		&cli.PathFlag{
			Name:    "config",
			EnvVars: []string{"EVERFRAME_CONFIG"},
			Usage:   "load flag values from a YAML `FILE`",
		},
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "width",
			EnvVars: []string{"EVERFRAME_WIDTH"},
			Value:   cfg.Width,
			Usage:   "panel width in pixels",
		}),
		altsrc.NewIntFlag(&cli.IntFlag{
			Name:    "height",
			EnvVars: []string{"EVERFRAME_HEIGHT"},
			Value:   cfg.Height,
			Usage:   "panel height in pixels",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "palette",
			EnvVars: []string{"EVERFRAME_PALETTE"},
			Value:   cfg.Palette.String(),
			Usage:   "comma separated panel colors in device code order",
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "backend",
			EnvVars: []string{"EVERFRAME_BACKEND"},
			Value:   string(cfg.Backend),
			Usage:   fmt.Sprintf("Lanczos resampling backend (%s)", joinBackends()),
		}),
		altsrc.NewStringFlag(&cli.StringFlag{
			Name:    "dither",
			EnvVars: []string{"EVERFRAME_DITHER"},
			Value:   cfg.Dither,
			Usage:   "dithering algorithm",
		}),
		altsrc.NewBoolFlag(&cli.BoolFlag{
			Name:    "auto-orient",
			EnvVars: []string{"EVERFRAME_AUTO_ORIENT"},
			Usage:   "rotate images according to their EXIF orientation",
		}),
		altsrc.NewPathFlag(&cli.PathFlag{
			Name:    "cache",
			EnvVars: []string{"EVERFRAME_CACHE"},
			Usage:   "path to frame cache database",
		}),
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			EnvVars: []string{"EVERFRAME_VERBOSE"},
			Usage:   "increase verbosity",
		},
	}

	app.Flags = flags
	app.Before = altsrc.InitInputSourceWithContext(flags, altsrc.NewYamlSourceFromFlagFunc("config"))

	app.Commands = []*cli.Command{
		{
			Name:        "encode",
			Usage:       "Convert an image to a packed frame buffer",
			Description: "The frame buffer is written to OUTPUT, or alongside INPUT with a .bin extension.",
			ArgsUsage:   "INPUT [OUTPUT]",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				e, closer, err := newEncoder(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer closer()

				output := c.Args().Get(1)
				if output == "" {
					output = epaper.OutputPath(c.Args().First())
				}

				r, err := e.EncodeFile(c.Args().First(), output)
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Fprintf(c.App.Writer, "%s: %s, %d bytes\n", output, r.Size, len(r.Data))

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Convert every image under a directory",
			Description: "Each image is converted to a frame buffer alongside it with a .bin extension.",
			ArgsUsage:   "DIRECTORY",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"j"},
					EnvVars: []string{"EVERFRAME_WORKERS"},
					Value:   cfg.Workers,
					Usage:   "number of images to convert concurrently",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				e, closer, err := newEncoder(c)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer closer()

				ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
				defer stop()

				if err := e.Scan(ctx, c.Args().First()); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:  "cache",
			Usage: "Manage the frame cache",
			Subcommands: []*cli.Command{
				{
					Name:  "stats",
					Usage: "Print the number of cached frames",
					Action: func(c *cli.Context) error {
						db, err := openCache(c)
						if err != nil {
							return cli.Exit(err, 1)
						}
						defer db.Close()

						n, err := db.Len()
						if err != nil {
							return cli.Exit(err, 1)
						}

						fmt.Fprintf(c.App.Writer, "%s: %d frames\n", c.Path("cache"), n)

						return nil
					},
				},
				{
					Name:  "purge",
					Usage: "Remove every cached frame",
					Action: func(c *cli.Context) error {
						db, err := openCache(c)
						if err != nil {
							return cli.Exit(err, 1)
						}
						defer db.Close()

						if err := db.Purge(); err != nil {
							return cli.Exit(err, 1)
						}

						return nil
					},
				},
				{
					Name:        "forget",
					Usage:       "Remove the cached frame for an image",
					Description: "Only the frame encoded with the current settings is removed.",
					ArgsUsage:   "IMAGE...",
					Action: func(c *cli.Context) error {
						if c.NArg() < 1 {
							cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
						}

						if c.Path("cache") == "" {
							return cli.Exit(errNoCache, 1)
						}

						e, closer, err := newEncoder(c)
						if err != nil {
							return cli.Exit(err, 1)
						}
						defer closer()

						for _, file := range c.Args().Slice() {
							if err := e.Forget(file); err != nil {
								return cli.Exit(err, 1)
							}
						}

						return nil
					},
				},
			},
		},
		{
			Name:        "display",
			Usage:       "Show a frame buffer or image on a connected panel",
			Description: "FILE is sent as is if it has a .bin extension, otherwise it is converted first.",
			ArgsUsage:   "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "spi",
					EnvVars: []string{"EVERFRAME_SPI"},
					Usage:   "SPI port, the first available if empty",
				},
				&cli.StringFlag{
					Name:    "dc",
					EnvVars: []string{"EVERFRAME_DC"},
					Value:   epd.DefaultPinNames.DC,
					Usage:   "data/command GPIO",
				},
				&cli.StringFlag{
					Name:    "rst",
					EnvVars: []string{"EVERFRAME_RST"},
					Value:   epd.DefaultPinNames.RST,
					Usage:   "reset GPIO",
				},
				&cli.StringFlag{
					Name:    "busy",
					EnvVars: []string{"EVERFRAME_BUSY"},
					Value:   epd.DefaultPinNames.Busy,
					Usage:   "busy GPIO",
				},
				&cli.StringFlag{
					Name:    "pwr",
					EnvVars: []string{"EVERFRAME_PWR"},
					Value:   epd.DefaultPinNames.PWR,
					Usage:   "power GPIO, empty if the panel is always powered",
				},
				&cli.BoolFlag{
					Name:  "clear",
					Usage: "clear the panel to white instead",
				},
			},
			Action: display,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func joinBackends() string {
	s := make([]string, len(resample.Backends))
	for i, b := range resample.Backends {
		s[i] = string(b)
	}
	return strings.Join(s, ", ")
}
