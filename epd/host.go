package epd

import (
	"fmt"

	"github.com/everframe/epaper/raster"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PinNames names the GPIO lines used by OpenSPI, as understood by
// gpioreg.ByName (e.g. "GPIO25"). PWR may be empty.
type PinNames struct {
	DC   string
	RST  string
	Busy string
	PWR  string
}

// DefaultPinNames matches the Waveshare e-Paper HAT on a Raspberry Pi.
var DefaultPinNames = PinNames{
	DC:   "GPIO25",
	RST:  "GPIO17",
	Busy: "GPIO24",
	PWR:  "GPIO18",
}

func outPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("epd: gpio %s not found", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("epd: gpio %s: %w", name, err)
	}
	return p, nil
}

// OpenSPI initializes the host drivers, opens the named SPI port ("" for the
// first available) at 1MHz mode 0 and the named GPIO pins, and returns a
// device for a panel of the given size. Halt releases the port.
func OpenSPI(port string, names PinNames, size raster.Size) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: host init: %w", err)
	}

	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("epd: open SPI port: %w", err)
	}

	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("epd: connect SPI: %w", err)
	}

	var pins Pins
	if pins.DC, err = outPin(names.DC); err != nil {
		p.Close()
		return nil, err
	}
	if pins.RST, err = outPin(names.RST); err != nil {
		p.Close()
		return nil, err
	}
	if names.PWR != "" {
		if pins.PWR, err = outPin(names.PWR); err != nil {
			p.Close()
			return nil, err
		}
	}

	busy := gpioreg.ByName(names.Busy)
	if busy == nil {
		p.Close()
		return nil, fmt.Errorf("epd: gpio %s not found", names.Busy)
	}
	if err := busy.In(gpio.Float, gpio.NoEdge); err != nil {
		p.Close()
		return nil, fmt.Errorf("epd: gpio %s: %w", names.Busy, err)
	}
	pins.Busy = busy

	d, err := New(c, pins, size)
	if err != nil {
		p.Close()
		return nil, err
	}
	d.closer = p
	return d, nil
}
