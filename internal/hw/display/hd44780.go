package display

import (
	"fmt"

	"github.com/cjeanneret/SortGo/internal/debug"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers/hd44780i2c"
)

// i2cBus adapts a periph bus to the tinygo drivers I2C interface.
type i2cBus struct {
	bus i2c.Bus
}

func (b i2cBus) Tx(addr uint16, w, r []byte) error {
	return b.bus.Tx(addr, w, r)
}

func (b i2cBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), []byte{reg}, buf)
}

func (b i2cBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return b.bus.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}

// HD44780 is a 16x2 LCD behind a PCF8574 I2C backpack.
type HD44780 struct {
	closer i2c.BusCloser
	lcd    hd44780i2c.Device
}

// OpenHD44780 opens the named I2C bus ("" for the first one) and
// initializes the LCD at addr (usually 0x27 or 0x3F).
func OpenHD44780(busName string, addr uint8) (*HD44780, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	d := NewHD44780(bus, addr)
	d.closer = bus
	return d, nil
}

// NewHD44780 initializes the LCD on an already open bus.
func NewHD44780(bus i2c.Bus, addr uint8) *HD44780 {
	debug.Info("Initializing HD44780 LCD at %#x", addr)
	d := &HD44780{lcd: hd44780i2c.New(i2cBus{bus: bus}, addr)}
	d.lcd.Configure(hd44780i2c.Config{
		Width:  Cols,
		Height: Rows,
	})
	return d
}

func (d *HD44780) Clear() error {
	d.lcd.ClearDisplay()
	return nil
}

func (d *HD44780) SetCursor(col, row uint8) error {
	if int(col) >= Cols || int(row) >= Rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d", col, row, Cols, Rows)
	}
	d.lcd.SetCursor(col, row)
	return nil
}

func (d *HD44780) Write(text string) error {
	d.lcd.Print([]byte(text))
	return nil
}

// Close releases the I2C bus if this display opened it.
func (d *HD44780) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
