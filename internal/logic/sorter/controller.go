// Package sorter runs the measure, classify and actuate cycle of the rig.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/cjeanneret/SortGo/internal/hw/echo"
	"github.com/cjeanneret/SortGo/internal/hw/timebase"
	"github.com/cjeanneret/SortGo/internal/logic/actuation"
	"github.com/cjeanneret/SortGo/internal/logic/rangeconv"
)

// Capture is the echo measurement the controller drives.
type Capture interface {
	Arm() error
	Cancel() error
	Snapshot() echo.Result
}

// Trigger emits the sensor's start pulse.
type Trigger interface {
	Pulse() error
}

// Params holds the cycle timing.
type Params struct {
	EchoTimeout  time.Duration // busy-wait budget after the trigger; keep below timebase.Period
	Dwell        time.Duration // hold after a near item
	CycleDelay   time.Duration // pause between cycles
	PollInterval time.Duration // sleep between snapshots; 0 yields instead
}

// Default timings.
const (
	DefaultEchoTimeout = 30 * time.Millisecond
	DefaultCycleDelay  = 500 * time.Millisecond
)

// DefaultParams returns the production timings.
func DefaultParams() Params {
	return Params{
		EchoTimeout: DefaultEchoTimeout,
		Dwell:       NearDwell,
		CycleDelay:  DefaultCycleDelay,
	}
}

// Boot banner.
const (
	SplashTitle  = "Smart Sorter"
	SplashStatus = "Init Complete"
)

// Reading is the outcome of one cycle.
type Reading struct {
	Width    timebase.Tick
	Distance rangeconv.Distance
	Zone     Zone
	TimedOut bool
}

// Stats counts cycle outcomes since the controller was built.
type Stats struct {
	Cycles   uint64
	Timeouts uint64
	Errors   uint64
	Zones    [zoneCount]uint64
}

// Hits returns the number of cycles classified as z.
func (s Stats) Hits(z Zone) uint64 {
	if z < 0 || z >= zoneCount {
		return 0
	}
	return s.Zones[z]
}

// Controller owns the sorting loop. It is not safe for concurrent use.
type Controller struct {
	capture Capture
	trigger Trigger
	tb      timebase.TimeBase
	act     *actuation.Actuators
	conv    rangeconv.Converter
	params  Params
	stats   Stats
}

func NewController(c Capture, trig Trigger, tb timebase.TimeBase, act *actuation.Actuators, p Params) *Controller {
	return &Controller{
		capture: c,
		trigger: trig,
		tb:      tb,
		act:     act,
		conv:    rangeconv.Default,
		params:  p,
	}
}

// SetConverter replaces the default width policy.
func (c *Controller) SetConverter(conv rangeconv.Converter) {
	c.conv = conv
}

// Stats returns a copy of the counters.
func (c *Controller) Stats() Stats {
	return c.stats
}

// Measure arms the capture, fires the trigger and waits for a complete
// echo. On timeout the capture is cancelled and the width is zero. Only a
// completion seen before the deadline is accepted.
func (c *Controller) Measure(ctx context.Context) (width timebase.Tick, timedOut bool, err error) {
	if err := c.capture.Arm(); err != nil {
		return 0, false, fmt.Errorf("arm capture: %w", err)
	}
	if err := c.trigger.Pulse(); err != nil {
		_ = c.capture.Cancel()
		return 0, false, fmt.Errorf("trigger: %w", err)
	}

	dl := timebase.NewDeadline(c.tb, c.params.EchoTimeout)
	for {
		r := c.capture.Snapshot()
		if r.State == echo.Complete {
			if debug.IsEnabled(debug.LevelTrace) {
				debug.Edge("fall", uint16(r.Rise+r.Width), r.State.String())
			}
			return r.Width, false, nil
		}
		if dl.Expired() {
			break
		}
		if err := ctx.Err(); err != nil {
			_ = c.capture.Cancel()
			return 0, false, err
		}
		c.pause()
	}

	debug.Verbose("Echo timeout after %v", dl.Elapsed())
	if err := c.capture.Cancel(); err != nil {
		return 0, true, err
	}
	return 0, true, nil
}

func (c *Controller) pause() {
	if c.params.PollInterval > 0 {
		time.Sleep(c.params.PollInterval)
		return
	}
	runtime.Gosched()
}

// Cycle performs one measurement and acts on it: display, then exactly one
// sorting branch, then the dwell if the branch asks for it.
func (c *Controller) Cycle(ctx context.Context) (Reading, error) {
	width, timedOut, err := c.Measure(ctx)
	if err != nil {
		c.stats.Errors++
		return Reading{}, err
	}

	rd := Reading{Width: width, TimedOut: timedOut}
	rd.Distance = c.conv.ToDistance(width)
	rd.Zone = Classify(rd.Distance)

	c.stats.Cycles++
	c.stats.Zones[rd.Zone]++
	if timedOut {
		c.stats.Timeouts++
	}
	debug.Live("Cycle %d: width=%d ticks distance=%v zone=%s", c.stats.Cycles, width, rd.Distance, rd.Zone)

	if err := c.act.ShowRange(rd.Distance); err != nil {
		c.stats.Errors++
		return rd, err
	}
	dec := DecisionFor(rd.Zone, c.params.Dwell)
	if err := c.act.Apply(dec); err != nil {
		c.stats.Errors++
		return rd, err
	}
	if dec.Dwell > 0 && !sleep(ctx, dec.Dwell) {
		return rd, ctx.Err()
	}
	return rd, nil
}

// Run boots the rig and cycles until ctx is done or cycles have run
// (0 means forever). Cycle errors are logged and the loop carries on. On
// exit the conveyor is stopped and the flap homed.
func (c *Controller) Run(ctx context.Context, cycles int) (err error) {
	debug.Section("Boot")
	if err := c.act.Splash(SplashTitle, SplashStatus); err != nil {
		debug.Error(fmt.Errorf("splash: %w", err))
	}
	if err := c.act.Start(AngleBoot); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	defer func() {
		if serr := c.act.Shutdown(AngleHome); serr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", serr)
		}
		c.logStats()
	}()

	debug.Info("Sorting started")
	for n := 0; cycles == 0 || n < cycles; n++ {
		if _, cerr := c.Cycle(ctx); cerr != nil {
			if errors.Is(cerr, context.Canceled) || errors.Is(cerr, context.DeadlineExceeded) {
				return nil
			}
			debug.Error(fmt.Errorf("cycle %d: %w", n+1, cerr))
		}
		if !sleep(ctx, c.params.CycleDelay) {
			return nil
		}
	}
	return nil
}

func (c *Controller) logStats() {
	s := c.stats
	debug.Summary("Sorting stopped")
	debug.Value("cycles", s.Cycles)
	debug.Value("timeouts", s.Timeouts)
	debug.Value("errors", s.Errors)
	for z := Zone(0); z < zoneCount; z++ {
		debug.Value(z.String(), s.Zones[z])
	}
}

// sleep waits for d or until ctx is done. It reports whether ctx is still
// live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
