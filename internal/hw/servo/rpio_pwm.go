package servo

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/mathx"
	"github.com/stianeikeland/go-rpio/v4"
)

// pwmClock gives one PWM count per microsecond.
const pwmClock = 1_000_000

// RPiPWM drives the servo from the Raspberry Pi hardware PWM
// (BCM 12, 13, 18 or 19). The GPIO memory must already be mapped by the
// go-rpio driver.
type RPiPWM struct {
	pin   rpio.Pin
	cycle uint32 // counts per frame
}

// NewRPiPWM switches pin to PWM mode with a 20ms frame.
func NewRPiPWM(pin int) (*RPiPWM, error) {
	switch pin {
	case 12, 13, 18, 19:
	default:
		return nil, fmt.Errorf("pin %d has no hardware PWM channel", pin)
	}

	p := rpio.Pin(pin)
	p.Mode(rpio.Pwm)
	p.Freq(pwmClock)
	s := &RPiPWM{
		pin:   p,
		cycle: uint32(Frame / time.Microsecond),
	}
	debug.Verbose("Servo: hardware PWM on pin %d, %d counts/frame", pin, s.cycle)
	return s, nil
}

func (s *RPiPWM) SetAngle(angle int) error {
	angle = mathx.Clamp(angle, 0, MaxAngle)
	duty := uint32(AngleToPulse(angle) / time.Microsecond)
	debug.Trace("Servo (rpio): %d° -> %d/%d", angle, duty, s.cycle)
	s.pin.DutyCycleWithPwmMode(duty, s.cycle, rpio.MarkSpace)
	return nil
}
