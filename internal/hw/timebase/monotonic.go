package timebase

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Monotonic is a TimeBase on CLOCK_MONOTONIC, the clock the Linux GPIO
// character device stamps edge events with. At turns such a stamp into a
// counter value, so an edge is timed where the kernel saw it rather than
// where the handler ran.
type Monotonic struct {
	clock func() time.Duration
	epoch atomic.Int64
}

// NewMonotonic returns a counter on the kernel monotonic clock, reset to
// zero.
func NewMonotonic() *Monotonic {
	return NewMonotonicFrom(kernelMonotonic)
}

// NewMonotonicFrom uses clock as the CLOCK_MONOTONIC source.
func NewMonotonicFrom(clock func() time.Duration) *Monotonic {
	m := &Monotonic{clock: clock}
	m.Reset()
	return m
}

func kernelMonotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Reset sets the counter to zero.
func (m *Monotonic) Reset() {
	m.epoch.Store(int64(m.clock()))
}

// Now returns the current counter value.
func (m *Monotonic) Now() Tick {
	return m.At(m.clock())
}

// At returns the counter value at monotonic time ts.
func (m *Monotonic) At(ts time.Duration) Tick {
	d := ts - time.Duration(m.epoch.Load())
	return Tick(uint64(d / Resolution))
}
