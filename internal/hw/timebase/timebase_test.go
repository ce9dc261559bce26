package timebase

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestElapsed_NoWrap(t *testing.T) {
	if got := Elapsed(100, 3000); got != 2900 {
		t.Errorf("Elapsed(100, 3000) = %d, want 2900", got)
	}
}

func TestElapsed_Wraparound(t *testing.T) {
	cases := []struct {
		name     string
		from, to Tick
		want     Tick
	}{
		{"just_past_wrap", 65535, 0, 1},
		{"across_wrap", 65000, 1900, 2436},
		{"equal", 4242, 4242, 0},
		{"max_width", 1, 0, 65535},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Elapsed(tc.from, tc.to); got != tc.want {
				t.Errorf("Elapsed(%d, %d) = %d, want %d", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

// Every (rise, width) pair must round-trip through the wrapping counter.
func TestElapsed_MatchesTrueWidth(t *testing.T) {
	for _, rise := range []uint32{0, 1, 30000, 65000, 65535} {
		for _, width := range []uint32{0, 1, 116, 2900, 46400, 65535} {
			fall := Tick((rise + width) % Modulus)
			if got := Elapsed(Tick(rise), fall); uint32(got) != width {
				t.Errorf("rise=%d width=%d: got %d", rise, width, got)
			}
		}
	}
}

func TestDurationAndTicks(t *testing.T) {
	if got := Duration(2900); got != 1450*time.Microsecond {
		t.Errorf("Duration(2900) = %v, want 1.45ms", got)
	}
	if got := Ticks(1450 * time.Microsecond); got != 2900 {
		t.Errorf("Ticks(1.45ms) = %d, want 2900", got)
	}
	if got := Ticks(time.Second); got != Modulus-1 {
		t.Errorf("Ticks(1s) should saturate, got %d", got)
	}
	if got := Ticks(-time.Millisecond); got != 0 {
		t.Errorf("Ticks(negative) = %d, want 0", got)
	}
	if Period != 32768*time.Microsecond {
		t.Errorf("Period = %v, want 32.768ms", Period)
	}
}

func TestCounter_ResetAndAdvance(t *testing.T) {
	c := NewCounter()
	c.Reset()
	first := c.Now()
	time.Sleep(2 * time.Millisecond)
	second := c.Now()
	if Elapsed(first, second) < Ticks(2*time.Millisecond) {
		t.Errorf("counter advanced %d ticks, want at least %d", Elapsed(first, second), Ticks(2*time.Millisecond))
	}
	c.Reset()
	if got := c.Now(); got > Ticks(time.Millisecond) {
		t.Errorf("Now after Reset = %d, want close to 0", got)
	}
}

func TestManual(t *testing.T) {
	m := &Manual{}
	m.Set(65530)
	m.Advance(10)
	if got := m.Now(); got != 4 {
		t.Errorf("Manual should wrap like the register, got %d", got)
	}
	m.Reset()
	if got := m.Now(); got != 0 {
		t.Errorf("Now after Reset = %d, want 0", got)
	}

	stepped := &Manual{Step: 5}
	if a, b := stepped.Now(), stepped.Now(); a != 0 || b != 5 {
		t.Errorf("stepped Now = %d, %d; want 0, 5", a, b)
	}
}

func TestDeadline_ExpiresAfterBudget(t *testing.T) {
	m := &Manual{}
	d := NewDeadline(m, 30*time.Millisecond)
	m.Advance(Ticks(29 * time.Millisecond))
	if d.Expired() {
		t.Fatal("deadline expired early")
	}
	m.Advance(Ticks(time.Millisecond))
	if !d.Expired() {
		t.Fatalf("deadline not expired after %v", d.Elapsed())
	}
}

func TestDeadline_BudgetLongerThanPeriod(t *testing.T) {
	m := &Manual{}
	d := NewDeadline(m, 50*time.Millisecond)
	// Poll every 10ms: the counter wraps once along the way.
	for i := 0; i < 4; i++ {
		m.Advance(Ticks(10 * time.Millisecond))
		if d.Expired() {
			t.Fatalf("expired after %d polls (%v)", i+1, d.Elapsed())
		}
	}
	m.Advance(Ticks(10 * time.Millisecond))
	if !d.Expired() {
		t.Fatalf("not expired after 50ms, elapsed %v", d.Elapsed())
	}
}

func TestDeadline_AutoStepTerminates(t *testing.T) {
	m := &Manual{Step: 100}
	d := NewDeadline(m, 30*time.Millisecond)
	polls := 0
	for !d.Expired() {
		polls++
		if polls > 1000 {
			t.Fatal("deadline never expired")
		}
	}
}

// fakeClock is a settable CLOCK_MONOTONIC.
type fakeClock struct{ now atomic.Int64 }

func (f *fakeClock) read() time.Duration { return time.Duration(f.now.Load()) }
func (f *fakeClock) set(d time.Duration) { f.now.Store(int64(d)) }

func TestMonotonic_AtConvertsStamps(t *testing.T) {
	clk := &fakeClock{}
	clk.set(5 * time.Second)
	m := NewMonotonicFrom(clk.read)

	if got := m.Now(); got != 0 {
		t.Errorf("Now after reset = %d, want 0", got)
	}
	if got := m.At(5*time.Second + 1450*time.Microsecond); got != 2900 {
		t.Errorf("At(+1.45ms) = %d, want 2900", got)
	}

	clk.set(5*time.Second + 10*time.Millisecond)
	if got := m.Now(); got != 20000 {
		t.Errorf("Now at +10ms = %d, want 20000", got)
	}

	// Past one period the value wraps like the register.
	if got := m.At(5*time.Second + Period + Resolution); got != 1 {
		t.Errorf("At(+Period+1 tick) = %d, want 1", got)
	}
}

func TestMonotonic_ResetMovesEpoch(t *testing.T) {
	clk := &fakeClock{}
	m := NewMonotonicFrom(clk.read)
	clk.set(time.Second)
	m.Reset()
	if got := m.At(time.Second + 50*time.Microsecond); got != 100 {
		t.Errorf("At(+50µs) = %d, want 100", got)
	}
}

func TestMonotonic_KernelClockRuns(t *testing.T) {
	m := NewMonotonic()
	time.Sleep(2 * time.Millisecond)
	if got := m.Now(); got < Ticks(2*time.Millisecond) {
		t.Errorf("Now after 2ms = %d ticks, want >= %d", got, Ticks(2*time.Millisecond))
	}
}
