// Package epd drives a Waveshare 7.3" (F) seven color e-paper panel over
// SPI.
//
// The controller expects the frame buffer produced by the pack package,
// 192000 bytes for the 480x800 panel, sent in a single data phase after
// command 0x10. Refreshing the panel takes around 30 seconds during which
// the BUSY line is held low.
//
// Wiring used by the reference firmware:
//
//	Panel  Host
//	DIN    SPI MOSI
//	CLK    SPI SCLK
//	CS     SPI CS
//	DC     GPIO, low for commands, high for data
//	RST    GPIO, active low
//	BUSY   GPIO input, low while the controller is busy
//	PWR    GPIO, optional, enables the module's 5V supply
package epd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/everframe/epaper/palette"
	"github.com/everframe/epaper/raster"
	"periph.io/x/conn/v3/gpio"
)

const (
	// maxChunk is the largest single SPI transfer; spidev defaults to a
	// 4096 byte buffer.
	maxChunk  = 4096
	busyPoll  = 10 * time.Millisecond
	powerDown = 2 * time.Second
)

// Controller commands.
const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOffSeq    = 0x03
	cmdPowerOn        = 0x04
	cmdBoosterSoftA   = 0x05
	cmdBoosterSoftB   = 0x06
	cmdDeepSleep      = 0x07
	cmdBoosterSoftC   = 0x08
	cmdStartTransmit  = 0x10
	cmdRefresh        = 0x12
	cmdIPC            = 0x13
	cmdPLL            = 0x30
	cmdTSE            = 0x41
	cmdCDI            = 0x50
	cmdTCON           = 0x60
	cmdResolution     = 0x61
	cmdVDCS           = 0x82
	cmdTVDCS          = 0x84
	cmdAGID           = 0x86
	cmdCMDH           = 0xaa
	cmdCCSET          = 0xe0
	cmdPWS            = 0xe3
	cmdTSSET          = 0xe6
	deepSleepCheckKey = 0xa5
)

var (
	// ErrHalted is returned by operations on a halted device.
	ErrHalted = errors.New("epd: halted")
	// ErrBusyTimeout is returned when the panel stays busy past the context
	// deadline.
	ErrBusyTimeout = errors.New("epd: panel busy")
)

// Conn is the part of spi.Conn used by the driver.
type Conn interface {
	Tx(w, r []byte) error
}

// PinOut is the part of gpio.PinOut used by the driver.
type PinOut interface {
	Out(l gpio.Level) error
}

// PinIn is the part of gpio.PinIn used by the driver.
type PinIn interface {
	Read() gpio.Level
}

// Pins are the control lines of the panel. PWR may be nil if the module is
// permanently powered.
type Pins struct {
	DC   PinOut
	RST  PinOut
	Busy PinIn
	PWR  PinOut
}

type command struct {
	cmd  byte
	data []byte
}

// Dev is a handle to the panel.
type Dev struct {
	c    Conn
	pins Pins
	size raster.Size

	// closer releases the SPI port when the device was opened by OpenSPI
	closer io.Closer

	sleep func(time.Duration)
	after func(time.Duration) <-chan time.Time

	halted bool
}

// New returns a device talking to the panel over c. size is the frame size
// in pixels, normally 480x800.
func New(c Conn, pins Pins, size raster.Size) (*Dev, error) {
	if c == nil {
		return nil, errors.New("epd: nil SPI connection")
	}
	if pins.DC == nil || pins.RST == nil || pins.Busy == nil {
		return nil, errors.New("epd: DC, RST and BUSY pins are required")
	}
	if size.Empty() {
		return nil, fmt.Errorf("epd: invalid size %s", size)
	}
	return &Dev{
		c:     c,
		pins:  pins,
		size:  size,
		sleep: time.Sleep,
		after: time.After,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s}", d.size)
}

// Size returns the frame size of the panel.
func (d *Dev) Size() raster.Size {
	return d.size
}

// initSequence returns the register setup from the panel vendor's driver.
func (d *Dev) initSequence() []command {
	// The controller addresses the panel in landscape
	long, short := d.size.Width, d.size.Height
	if short > long {
		long, short = short, long
	}
	return []command{
		{cmdCMDH, []byte{0x49, 0x55, 0x20, 0x08, 0x09, 0x18}},
		{cmdPowerSetting, []byte{0x3f, 0x00, 0x32, 0x2a, 0x0e, 0x2a}},
		{cmdPanelSetting, []byte{0x5f, 0x69}},
		{cmdPowerOffSeq, []byte{0x00, 0x54, 0x00, 0x44}},
		{cmdBoosterSoftA, []byte{0x40, 0x1f, 0x1f, 0x2c}},
		{cmdBoosterSoftB, []byte{0x6f, 0x1f, 0x1f, 0x22}},
		{cmdBoosterSoftC, []byte{0x6f, 0x1f, 0x1f, 0x22}},
		{cmdIPC, []byte{0x00, 0x04}},
		{cmdPLL, []byte{0x3c}},
		{cmdTSE, []byte{0x00}},
		{cmdCDI, []byte{0x3f}},
		{cmdTCON, []byte{0x02, 0x00}},
		{cmdResolution, []byte{byte(long >> 8), byte(long), byte(short >> 8), byte(short)}},
		{cmdVDCS, []byte{0x1e}},
		{cmdTVDCS, []byte{0x00}},
		{cmdAGID, []byte{0x00}},
		{cmdPWS, []byte{0x2f}},
		{cmdCCSET, []byte{0x00}},
		{cmdTSSET, []byte{0x00}},
	}
}

func (d *Dev) sendCommand(cmd byte) error {
	if err := d.pins.DC.Out(gpio.Low); err != nil {
		return err
	}
	return d.c.Tx([]byte{cmd}, nil)
}

func (d *Dev) sendData(data []byte) error {
	if err := d.pins.DC.Out(gpio.High); err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		if err := d.c.Tx(data[:n], nil); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (d *Dev) send(c command) error {
	if err := d.sendCommand(c.cmd); err != nil {
		return fmt.Errorf("epd: command 0x%02x: %w", c.cmd, err)
	}
	if len(c.data) == 0 {
		return nil
	}
	if err := d.sendData(c.data); err != nil {
		return fmt.Errorf("epd: data for 0x%02x: %w", c.cmd, err)
	}
	return nil
}

// waitReady blocks until the BUSY line goes high.
func (d *Dev) waitReady(ctx context.Context) error {
	for d.pins.Busy.Read() == gpio.Low {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrBusyTimeout, ctx.Err())
		case <-d.after(busyPoll):
		}
	}
	return nil
}

func (d *Dev) reset() error {
	for _, step := range []struct {
		level gpio.Level
		delay time.Duration
	}{
		{gpio.High, 20 * time.Millisecond},
		{gpio.Low, 2 * time.Millisecond},
		{gpio.High, 20 * time.Millisecond},
	} {
		if err := d.pins.RST.Out(step.level); err != nil {
			return fmt.Errorf("epd: reset: %w", err)
		}
		d.sleep(step.delay)
	}
	return nil
}

// Init powers the module, resets the controller and loads its registers.
// It must be called before Display or Clear, and again after Sleep.
func (d *Dev) Init(ctx context.Context) error {
	if d.halted {
		return ErrHalted
	}
	if err := d.pins.DC.Out(gpio.Low); err != nil {
		return err
	}
	if d.pins.PWR != nil {
		if err := d.pins.PWR.Out(gpio.High); err != nil {
			return fmt.Errorf("epd: power on: %w", err)
		}
	}
	if err := d.reset(); err != nil {
		return err
	}
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	d.sleep(30 * time.Millisecond)

	for _, c := range d.initSequence() {
		if err := d.send(c); err != nil {
			return err
		}
	}
	return nil
}

// refresh latches the transmitted frame onto the panel.
func (d *Dev) refresh(ctx context.Context) error {
	if err := d.send(command{cmd: cmdPowerOn}); err != nil {
		return err
	}
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	if err := d.send(command{cmdRefresh, []byte{0x00}}); err != nil {
		return err
	}
	if err := d.waitReady(ctx); err != nil {
		return err
	}
	if err := d.send(command{cmdPowerOff, []byte{0x00}}); err != nil {
		return err
	}
	return d.waitReady(ctx)
}

// Display sends a packed frame to the panel and refreshes it. frame must be
// exactly Size().PackedLen() bytes.
func (d *Dev) Display(ctx context.Context, frame []byte) error {
	if d.halted {
		return ErrHalted
	}
	if want := d.size.PackedLen(); len(frame) != want {
		return fmt.Errorf("epd: frame is %d bytes, want %d: %w", len(frame), want, raster.ErrDimensionMismatch)
	}
	if err := d.send(command{cmdStartTransmit, frame}); err != nil {
		return err
	}
	return d.refresh(ctx)
}

// Clear fills the panel with a single palette color.
func (d *Dev) Clear(ctx context.Context, c palette.Index) error {
	if d.halted {
		return ErrHalted
	}
	b := make([]byte, d.size.PackedLen())
	v := byte(c&0x07)<<4 | byte(c&0x07)
	for i := range b {
		b[i] = v
	}
	if err := d.send(command{cmdStartTransmit, b}); err != nil {
		return err
	}
	return d.refresh(ctx)
}

// Sleep puts the controller into deep sleep. Init must be called to wake it.
func (d *Dev) Sleep() error {
	if d.halted {
		return ErrHalted
	}
	return d.send(command{cmdDeepSleep, []byte{deepSleepCheckKey}})
}

// Halt puts the panel to sleep, cuts its power and releases the SPI port if
// the device was opened with OpenSPI. The device cannot be used afterwards.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	err := d.Sleep()
	d.halted = true

	// The controller needs time to enter deep sleep before power is removed
	d.sleep(powerDown)

	for _, p := range []PinOut{d.pins.DC, d.pins.RST, d.pins.PWR} {
		if p == nil {
			continue
		}
		if perr := p.Out(gpio.Low); perr != nil && err == nil {
			err = perr
		}
	}
	if d.closer != nil {
		if cerr := d.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
