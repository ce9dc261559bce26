// Package sonar drives the trigger input of an HC-SR04 style ranging module.
package sonar

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/gpio"
)

// DefaultPulseWidth is the trigger high time. The module needs at least 10µs.
const DefaultPulseWidth = 12 * time.Microsecond

// Trigger emits the measurement start pulse on an output line.
type Trigger struct {
	gpio  gpio.Driver
	pin   int
	width time.Duration
}

// NewTrigger configures pin as an output, parked low.
// width: if 0, defaults to DefaultPulseWidth.
func NewTrigger(g gpio.Driver, pin int, width time.Duration) *Trigger {
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)

	if width <= 0 {
		width = DefaultPulseWidth
	}
	return &Trigger{gpio: g, pin: pin, width: width}
}

// Pulse drives the trigger line high for the pulse width then low again.
func (t *Trigger) Pulse() error {
	debug.Trace("Trigger: pulse %v on pin %d", t.width, t.pin)
	if err := t.gpio.WritePin(t.pin, gpio.High); err != nil {
		return fmt.Errorf("trigger high: %w", err)
	}
	spin(t.width)
	if err := t.gpio.WritePin(t.pin, gpio.Low); err != nil {
		return fmt.Errorf("trigger low: %w", err)
	}
	return nil
}

// spin busy-waits d. time.Sleep overshoots by tens of microseconds on Linux,
// which is longer than the whole pulse.
func spin(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
}
