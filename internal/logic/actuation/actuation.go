package actuation

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/display"
	"github.com/cjeanneret/SortGo/internal/logic/rangeconv"
)

// Servo positions the sorting flap.
type Servo interface {
	SetAngle(angle int) error
}

// Indicators is the LED bank.
type Indicators interface {
	Set(mask uint8) error
}

// Buzzer sounds a fixed-length beep.
type Buzzer interface {
	Beep() error
}

// Motor is the conveyor drive.
type Motor interface {
	Forward() error
	Stop() error
}

// Decision is what one sorting branch asks of the actuators.
type Decision struct {
	Angle int           // servo angle in degrees
	LEDs  uint8         // indicator mask
	Beep  bool          // sound the buzzer
	Dwell time.Duration // hold time before the next cycle
}

// Actuators groups the outputs of the rig. It's an intermediate layer
// between the sorting logic and the low-level drivers.
type Actuators struct {
	servo   Servo
	leds    Indicators
	buzzer  Buzzer
	motor   Motor
	display display.Display
	settle  time.Duration
}

func New(s Servo, l Indicators, b Buzzer, m Motor, d display.Display) *Actuators {
	return &Actuators{
		servo:   s,
		leds:    l,
		buzzer:  b,
		motor:   m,
		display: d,
	}
}

// Apply performs a decision: indicators, optional beep, then the servo.
// The dwell is left to the caller.
func (a *Actuators) Apply(d Decision) error {
	debug.Verbose("Actuators: angle=%d leds=%#02x beep=%v", d.Angle, d.LEDs, d.Beep)
	if err := a.leds.Set(d.LEDs); err != nil {
		return fmt.Errorf("set indicators: %w", err)
	}
	if d.Beep {
		if err := a.buzzer.Beep(); err != nil {
			return fmt.Errorf("beep: %w", err)
		}
	}
	if err := a.servo.SetAngle(d.Angle); err != nil {
		return fmt.Errorf("servo to %d°: %w", d.Angle, err)
	}
	return nil
}

// SetDisplaySettle sets a pause taken after each range update, for
// displays that need time to latch a write.
func (a *Actuators) SetDisplaySettle(d time.Duration) {
	a.settle = d
}

// RangeLabel and RangeColumn lay out the first display line:
// "US_Range: 0025cm".
const (
	RangeLabel  = "US_Range:"
	RangeColumn = 10
)

// ShowRange renders the distance on the first display line.
func (a *Actuators) ShowRange(d rangeconv.Distance) error {
	if err := display.PrintAt(a.display, 0, 0, RangeLabel); err != nil {
		return fmt.Errorf("display label: %w", err)
	}
	if err := display.PrintAt(a.display, RangeColumn, 0, display.Digits4(int(d))+"cm"); err != nil {
		return fmt.Errorf("display range: %w", err)
	}
	if a.settle > 0 {
		time.Sleep(a.settle)
	}
	return nil
}

// Splash shows the boot banner.
func (a *Actuators) Splash(title, status string) error {
	if err := a.display.Clear(); err != nil {
		return err
	}
	if err := display.PrintAt(a.display, 0, 0, title); err != nil {
		return err
	}
	return display.PrintAt(a.display, 0, 1, status)
}

// Start parks the servo at angle and starts the conveyor.
func (a *Actuators) Start(angle int) error {
	if err := a.servo.SetAngle(angle); err != nil {
		return fmt.Errorf("servo to %d°: %w", angle, err)
	}
	if err := a.motor.Forward(); err != nil {
		return fmt.Errorf("motor forward: %w", err)
	}
	return nil
}

// Shutdown stops the conveyor, clears the indicators and parks the servo.
// Every step is attempted; the first error is returned.
func (a *Actuators) Shutdown(angle int) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	keep(a.motor.Stop())
	keep(a.leds.Set(0))
	keep(a.servo.SetAngle(angle))
	return first
}
