package indicator

import (
	"fmt"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/gpio"
)

// LEDBank maps the bits of a byte onto up to eight output pins.
// Bit i drives pins[i]; a pin number <= 0 leaves that bit unconnected.
type LEDBank struct {
	gpio  gpio.Driver
	pins  [8]int
	state uint8
}

// NewLEDBank configures the connected pins as outputs, all off.
func NewLEDBank(g gpio.Driver, pins []int) (*LEDBank, error) {
	if len(pins) > 8 {
		return nil, fmt.Errorf("led bank supports 8 pins, got %d", len(pins))
	}
	b := &LEDBank{gpio: g}
	copy(b.pins[:], pins)
	for _, p := range b.pins {
		if p <= 0 {
			continue
		}
		_ = g.SetupPin(p, gpio.Output)
		_ = g.WritePin(p, gpio.Low)
	}
	return b, nil
}

// Set drives every connected LED to the matching bit of mask.
func (b *LEDBank) Set(mask uint8) error {
	debug.Verbose("LEDs: %08b", mask)
	for bit, p := range b.pins {
		if p <= 0 {
			continue
		}
		level := gpio.Low
		if mask&(1<<bit) != 0 {
			level = gpio.High
		}
		if err := b.gpio.WritePin(p, level); err != nil {
			return fmt.Errorf("led bit %d (pin %d): %w", bit, p, err)
		}
	}
	b.state = mask
	return nil
}

// State returns the last mask written.
func (b *LEDBank) State() uint8 {
	return b.state
}
