package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver drives the rig outputs (trigger, buzzer, LEDs, motor) through
// go-rpio's memory-mapped registers. Inputs are opened with OpenLine.
type RPiDriver struct {
	mu   sync.Mutex
	pins map[int]rpio.Pin
}

// NewRPiRealDriver maps the GPIO registers. Needs /dev/gpiomem or root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Mapping GPIO registers (go-rpio)")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("map GPIO registers: %w (not a Raspberry Pi, or no access to /dev/gpiomem)", err)
	}
	return &RPiDriver{pins: make(map[int]rpio.Pin)}, nil
}

// SetupPin configures pin. Outputs start low; inputs are pulled down since
// the echo output idles low.
func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		p.PullDown()
	case Output:
		p.Output()
		p.Low()
	default:
		return fmt.Errorf("pin %d: unknown mode %d", pin, mode)
	}
	r.mu.Lock()
	r.pins[pin] = p
	r.mu.Unlock()
	return nil
}

// lookup returns a configured pin, setting it up in mode on first use.
func (r *RPiDriver) lookup(pin int, mode PinMode) (rpio.Pin, error) {
	r.mu.Lock()
	p, ok := r.pins[pin]
	r.mu.Unlock()
	if ok {
		return p, nil
	}
	if err := r.SetupPin(pin, mode); err != nil {
		return 0, err
	}
	return rpio.Pin(pin), nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	p, err := r.lookup(pin, Output)
	if err != nil {
		return err
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	p, err := r.lookup(pin, Input)
	if err != nil {
		return Low, err
	}
	level := Level(p.Read() == rpio.High)
	debug.GPIO("ReadPin", pin, level)
	return level, nil
}

// OpenLine configures pin as an input and returns an EdgeLine on the SoC
// edge-detect latch, polled every poll (0 spins).
func (r *RPiDriver) OpenLine(pin int, poll time.Duration) (*RPiLine, error) {
	debug.Info("Opening echo line on pin %d (go-rpio edge detect)", pin)
	if err := r.SetupPin(pin, Input); err != nil {
		return nil, err
	}
	if level, err := r.ReadPin(pin); err == nil && level == High {
		debug.Info("Echo pin %d idles high: check the sensor wiring", pin)
	}
	return newRPiLine(rpio.Pin(pin), poll), nil
}

// Close parks every pin the driver touched: outputs low, then all inputs,
// and unmaps the registers.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (go-rpio)")
	r.mu.Lock()
	defer r.mu.Unlock()
	for pin, p := range r.pins {
		debug.Verbose("Parking pin %d", pin)
		p.Detect(rpio.NoEdge)
		p.Low()
		p.Input()
	}
	return rpio.Close()
}
