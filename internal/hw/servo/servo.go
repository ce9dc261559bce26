// Package servo positions a hobby servo from an angle in degrees.
package servo

import (
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/mathx"
)

const (
	// Frame is the PWM period expected by the servo (50 Hz).
	Frame = 20 * time.Millisecond

	// MinPulse and MaxPulse are the pulse widths for 0° and MaxAngle.
	MinPulse = 500 * time.Microsecond
	MaxPulse = 2500 * time.Microsecond

	MaxAngle = 180
)

// Servo is the high-level interface used by the rest of the application,
// regardless of which PWM peripheral drives the signal.
type Servo interface {
	// SetAngle moves the horn to angle degrees (clamped to 0..MaxAngle).
	SetAngle(angle int) error
}

// AngleToPulse maps an angle linearly onto [MinPulse, MaxPulse].
func AngleToPulse(angle int) time.Duration {
	us := mathx.MapLinear(int64(angle), 0, MaxAngle, int64(MinPulse/time.Microsecond), int64(MaxPulse/time.Microsecond))
	return time.Duration(us) * time.Microsecond
}

// Mock is a Servo that only remembers the last commanded angle.
type Mock struct {
	Angle int
	Moves int
}

func (m *Mock) SetAngle(angle int) error {
	angle = mathx.Clamp(angle, 0, MaxAngle)
	debug.Trace("Servo (mock): %d° (%v)", angle, AngleToPulse(angle))
	m.Angle = angle
	m.Moves++
	return nil
}
