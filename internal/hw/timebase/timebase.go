// Package timebase provides the free-running tick counter used to time echo
// pulses, plus a deadline helper built on top of it.
package timebase

import (
	"sync/atomic"
	"time"
)

// Tick is a counter value. It has the width of the hardware register and
// wraps at Modulus.
type Tick uint16

const (
	// Resolution is the duration of one tick (16 MHz / 8 on the reference
	// board). rangeconv.TicksPerCm is derived from it: change both together.
	Resolution = 500 * time.Nanosecond

	// Modulus is the counter wrap point.
	Modulus = 1 << 16

	// Period is the time it takes the counter to wrap once (32.768 ms).
	Period = Modulus * Resolution
)

// TimeBase is a free-running counter that can be reset to zero.
// Now may be called from the edge handler while the main loop calls Reset.
type TimeBase interface {
	Reset()
	Now() Tick
}

// Elapsed returns to-from modulo the counter width, which is the true
// number of elapsed ticks provided less than one Period passed.
func Elapsed(from, to Tick) Tick {
	return to - from
}

// Duration converts a tick count to a time.Duration.
func Duration(t Tick) time.Duration {
	return time.Duration(t) * Resolution
}

// Ticks converts a duration to a whole number of ticks, saturating at the
// counter width.
func Ticks(d time.Duration) Tick {
	n := d / Resolution
	if n >= Modulus {
		return Modulus - 1
	}
	if n < 0 {
		return 0
	}
	return Tick(n)
}

// Counter is a TimeBase backed by the process monotonic clock.
type Counter struct {
	base  time.Time
	epoch atomic.Int64 // nanoseconds since base at the last Reset
}

// NewCounter returns a running counter, reset to zero.
func NewCounter() *Counter {
	return &Counter{base: time.Now()}
}

// Reset sets the counter to zero.
func (c *Counter) Reset() {
	c.epoch.Store(int64(time.Since(c.base)))
}

// Now returns the current counter value.
func (c *Counter) Now() Tick {
	d := time.Duration(int64(time.Since(c.base)) - c.epoch.Load())
	return Tick(uint64(d / Resolution))
}

// Manual is a TimeBase whose value is driven explicitly. Step, if non-zero,
// is added after every Now call so that polling loops make progress.
// It is intended for tests and bench simulation.
type Manual struct {
	value atomic.Uint32
	Step  Tick
}

// Reset sets the counter to zero.
func (m *Manual) Reset() { m.value.Store(0) }

// Now returns the current value then advances it by Step.
func (m *Manual) Now() Tick {
	if m.Step == 0 {
		return Tick(m.value.Load())
	}
	return Tick(m.value.Add(uint32(m.Step)) - uint32(m.Step))
}

// Set forces the counter to t.
func (m *Manual) Set(t Tick) { m.value.Store(uint32(t)) }

// Advance moves the counter forward by n ticks, wrapping as the hardware
// register would.
func (m *Manual) Advance(n Tick) { m.value.Add(uint32(n)) }
