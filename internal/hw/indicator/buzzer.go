// Package indicator drives the simple fire-and-forget outputs of the rig:
// buzzer, LED bank and the conveyor DC motor.
package indicator

import (
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/gpio"
)

// DefaultBeep is the buzzer on-time for one beep.
const DefaultBeep = 100 * time.Millisecond

// Buzzer is an active buzzer on a single output line (active HIGH).
type Buzzer struct {
	gpio     gpio.Driver
	pin      int
	duration time.Duration
}

// NewBuzzer configures pin as an output, silent.
// duration: if 0, defaults to DefaultBeep.
func NewBuzzer(g gpio.Driver, pin int, duration time.Duration) *Buzzer {
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)

	if duration <= 0 {
		duration = DefaultBeep
	}
	return &Buzzer{gpio: g, pin: pin, duration: duration}
}

// Beep sounds the buzzer for its fixed duration.
func (b *Buzzer) Beep() error {
	debug.Verbose("Buzzer: beep %v (pin %d)", b.duration, b.pin)
	if err := b.gpio.WritePin(b.pin, gpio.High); err != nil {
		return err
	}
	time.Sleep(b.duration)
	return b.gpio.WritePin(b.pin, gpio.Low)
}
