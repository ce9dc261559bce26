// Package rangeconv converts echo pulse widths into distances.
package rangeconv

import (
	"fmt"
	"time"

	"github.com/cjeanneret/SortGo/internal/hw/timebase"
	"github.com/cjeanneret/SortGo/internal/mathx"
)

// Distance is a range in whole centimeters, or OutOfBand.
type Distance int

// OutOfBand marks a cycle without a usable echo. It is never clamped into
// the rated range.
const OutOfBand Distance = -1

const (
	// RoundTripPerCm is the echo time for one centimeter of range
	// (sound at ~343 m/s, there and back).
	RoundTripPerCm = 58 * time.Microsecond

	// TicksPerCm is RoundTripPerCm in timebase ticks: 116 at 0.5µs/tick.
	TicksPerCm = int(RoundTripPerCm / timebase.Resolution)

	// MinRange and MaxRange are the sensor's rated limits.
	MinRange Distance = 2
	MaxRange Distance = 400

	// MinEchoWidth is the shortest width accepted as an echo. With the
	// default of 1 only the zero "no echo" width is rejected; shorter
	// plausible echoes clamp to MinRange.
	MinEchoWidth timebase.Tick = 1
)

// String renders the distance the way the display shows it.
func (d Distance) String() string {
	if d == OutOfBand {
		return "----"
	}
	return fmt.Sprintf("%dcm", int(d))
}

// Converter holds a conversion policy. The zero value is not usable; use
// Default or fill every field.
type Converter struct {
	MinEchoWidth timebase.Tick
	MinRange     Distance
	MaxRange     Distance
}

// Default is the rated policy of the HC-SR04 module.
var Default = Converter{
	MinEchoWidth: MinEchoWidth,
	MinRange:     MinRange,
	MaxRange:     MaxRange,
}

// ToDistance converts a pulse width with the Default policy.
func ToDistance(width timebase.Tick) Distance {
	return Default.ToDistance(width)
}

// ToDistance converts a pulse width in ticks to a clamped distance.
// A zero width (timeout) or a width below MinEchoWidth yields OutOfBand.
func (c Converter) ToDistance(width timebase.Tick) Distance {
	if width == 0 || width < c.MinEchoWidth {
		return OutOfBand
	}
	raw := Distance(int(width) / TicksPerCm)
	return mathx.Clamp(raw, c.MinRange, c.MaxRange)
}

// WidthFor returns the pulse width that an object at d centimeters produces.
// Useful to script bench echoes.
func WidthFor(d Distance) timebase.Tick {
	if d <= 0 {
		return 0
	}
	w := int(d) * TicksPerCm
	if w >= timebase.Modulus {
		return timebase.Modulus - 1
	}
	return timebase.Tick(w)
}
