package indicator

import (
	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/gpio"
)

// Direction of the conveyor motor.
type Direction int

const (
	Stopped Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "stopped"
	}
}

// Motor is a DC motor behind an H-bridge with two direction inputs
// (IN1/IN2). Both low brakes the motor.
type Motor struct {
	gpio gpio.Driver
	in1  int
	in2  int
	dir  Direction
}

// NewMotor configures both direction pins as outputs, motor stopped.
func NewMotor(g gpio.Driver, in1, in2 int) *Motor {
	_ = g.SetupPin(in1, gpio.Output)
	_ = g.SetupPin(in2, gpio.Output)
	_ = g.WritePin(in1, gpio.Low)
	_ = g.WritePin(in2, gpio.Low)
	return &Motor{gpio: g, in1: in1, in2: in2}
}

// Forward runs the motor forward (IN1 high, IN2 low).
func (m *Motor) Forward() error {
	return m.drive(Forward, gpio.High, gpio.Low)
}

// Reverse runs the motor backward (IN1 low, IN2 high).
func (m *Motor) Reverse() error {
	return m.drive(Reverse, gpio.Low, gpio.High)
}

// Stop brakes the motor (both inputs low).
func (m *Motor) Stop() error {
	return m.drive(Stopped, gpio.Low, gpio.Low)
}

// Direction returns the last commanded direction.
func (m *Motor) Direction() Direction {
	return m.dir
}

func (m *Motor) drive(dir Direction, l1, l2 gpio.Level) error {
	debug.Verbose("Motor: %s (in1=%d in2=%d)", dir, m.in1, m.in2)
	// Drop the active side first so both inputs are never high together.
	if l1 == gpio.Low {
		if err := m.gpio.WritePin(m.in1, l1); err != nil {
			return err
		}
		if err := m.gpio.WritePin(m.in2, l2); err != nil {
			return err
		}
	} else {
		if err := m.gpio.WritePin(m.in2, l2); err != nil {
			return err
		}
		if err := m.gpio.WritePin(m.in1, l1); err != nil {
			return err
		}
	}
	m.dir = dir
	return nil
}

// Belt is the conveyor seen from the sorter: Forward moves items toward
// the flap whichever way the motor is mounted.
type Belt struct {
	motor    *Motor
	reversed bool
}

// NewBelt wraps m. With reversed set, belt travel uses the motor's
// reverse drive.
func NewBelt(m *Motor, reversed bool) *Belt {
	return &Belt{motor: m, reversed: reversed}
}

func (b *Belt) Forward() error {
	if b.reversed {
		return b.motor.Reverse()
	}
	return b.motor.Forward()
}

func (b *Belt) Stop() error {
	return b.motor.Stop()
}
