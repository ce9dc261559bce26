package timebase

import "time"

// Deadline bounds a busy-wait on a TimeBase. Every call to Expired folds the
// ticks elapsed since the previous call into a wide accumulator, so a budget
// longer than one counter Period is honoured as long as polls are less than
// one Period apart.
type Deadline struct {
	tb      TimeBase
	budget  time.Duration
	last    Tick
	elapsed time.Duration
}

// NewDeadline starts a deadline budget from the current counter value.
func NewDeadline(tb TimeBase, budget time.Duration) *Deadline {
	return &Deadline{
		tb:     tb,
		budget: budget,
		last:   tb.Now(),
	}
}

// Expired polls the counter and reports whether the budget is used up.
func (d *Deadline) Expired() bool {
	now := d.tb.Now()
	d.elapsed += Duration(Elapsed(d.last, now))
	d.last = now
	return d.elapsed >= d.budget
}

// Elapsed returns the time accumulated by the last Expired call.
func (d *Deadline) Elapsed() time.Duration {
	return d.elapsed
}
