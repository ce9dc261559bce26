package sorter

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/logic/actuation"
	"github.com/cjeanneret/SortGo/internal/logic/rangeconv"
	"github.com/cjeanneret/SortGo/internal/mathx"
)

// Zone is the sorting class of one measurement.
type Zone int

const (
	// ZoneOutOfBand covers no echo and anything outside the two sorting
	// bands. The item is sent to the home position.
	ZoneOutOfBand Zone = iota
	ZoneFar
	ZoneNear

	zoneCount
)

func (z Zone) String() string {
	switch z {
	case ZoneOutOfBand:
		return "out-of-band"
	case ZoneFar:
		return "far"
	case ZoneNear:
		return "near"
	default:
		return fmt.Sprintf("zone(%d)", int(z))
	}
}

// Band limits in cm, inclusive.
const (
	FarMin  rangeconv.Distance = 11
	FarMax  rangeconv.Distance = 350
	NearMin rangeconv.Distance = 2
	NearMax rangeconv.Distance = 10
)

// Servo angles in degrees.
const (
	AngleFar  = 45
	AngleNear = 90
	AngleHome = 135
	AngleBoot = 90
)

// Indicator masks.
const (
	LEDFar  uint8 = 0x80
	LEDNear uint8 = 0x10
	LEDHome uint8 = 0x00
)

// NearDwell is how long the flap holds after a near item.
const NearDwell = 1500 * time.Millisecond

// Classify maps a distance to exactly one zone.
func Classify(d rangeconv.Distance) Zone {
	switch {
	case mathx.Between(d, FarMin, FarMax):
		return ZoneFar
	case mathx.Between(d, NearMin, NearMax):
		return ZoneNear
	default:
		return ZoneOutOfBand
	}
}

// DecisionFor returns the actuator commands for z. dwell replaces NearDwell
// for the near branch.
func DecisionFor(z Zone, dwell time.Duration) actuation.Decision {
	switch z {
	case ZoneFar:
		return actuation.Decision{Angle: AngleFar, LEDs: LEDFar}
	case ZoneNear:
		return actuation.Decision{Angle: AngleNear, LEDs: LEDNear, Beep: true, Dwell: dwell}
	default:
		return actuation.Decision{Angle: AngleHome, LEDs: LEDHome}
	}
}
