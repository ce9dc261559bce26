package servo

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/mathx"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"
)

// pcaCounts is the PCA9685 resolution per PWM period.
const pcaCounts = 4096

// PCA9685 drives the servo from one channel of a PCA9685 I2C PWM board.
type PCA9685 struct {
	dev     *pca9685.Dev
	channel int
	closer  i2c.BusCloser
}

// OpenPCA9685 opens the named I2C bus ("" for the first one) and
// configures the board at addr.
func OpenPCA9685(busName string, addr uint16, channel int) (*PCA9685, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	s, err := NewPCA9685(bus, addr, channel)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	s.closer = bus
	return s, nil
}

// NewPCA9685 configures the board at addr on bus for 50 Hz output.
func NewPCA9685(bus i2c.Bus, addr uint16, channel int) (*PCA9685, error) {
	dev, err := pca9685.NewI2C(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("pca9685 at %#x: %w", addr, err)
	}
	if err := dev.SetPwmFreq(physic.Frequency(time.Second/Frame) * physic.Hertz); err != nil {
		return nil, fmt.Errorf("pca9685 frequency: %w", err)
	}
	debug.Verbose("Servo: PCA9685 %#x channel %d at 50Hz", addr, channel)
	return &PCA9685{dev: dev, channel: channel}, nil
}

// PulseCounts converts a pulse width to PCA9685 off-counts.
func PulseCounts(pulse time.Duration) pgpio.Duty {
	return pgpio.Duty(int64(pulse) * pcaCounts / int64(Frame))
}

func (s *PCA9685) SetAngle(angle int) error {
	angle = mathx.Clamp(angle, 0, MaxAngle)
	off := PulseCounts(AngleToPulse(angle))
	debug.Trace("Servo (pca9685): %d° -> off=%d", angle, off)
	return s.dev.SetPwm(s.channel, 0, off)
}

// Close releases the bus if OpenPCA9685 opened it. The output keeps its
// last pulse.
func (s *PCA9685) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
