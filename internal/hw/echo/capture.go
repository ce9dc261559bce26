// Package echo measures the width of an ultrasonic echo pulse with a
// rising/falling dual-edge capture driven by line interrupts.
//
// The only state shared between the edge handler and the main loop is a
// single 64-bit record (state, rise tick, width) read and written
// atomically: the main loop trusts Width only when the same load shows
// Complete.
package echo

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/SortGo/internal/hw/gpio"
	"github.com/cjeanneret/SortGo/internal/hw/timebase"
)

// ErrBusy is returned by Arm while a measurement is still in flight.
// Call Cancel first to force the capture back to Idle.
var ErrBusy = errors.New("echo: capture already armed")

// State is the capture state machine position.
type State uint8

const (
	Idle State = iota
	ArmedWaitingRise
	MeasuringFall
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedWaitingRise:
		return "armed"
	case MeasuringFall:
		return "measuring"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Line is the interrupt-capable echo input.
type Line interface {
	SetEdge(e gpio.Edge) error
	Enable(h gpio.EdgeHandler) error
	Disable() error
}

// Stamper converts a backend edge timestamp to a counter value.
type Stamper interface {
	At(ts time.Duration) timebase.Tick
}

// Result is a consistent view of the shared record.
type Result struct {
	State State
	Rise  timebase.Tick // valid from MeasuringFall on
	Width timebase.Tick // valid only when State == Complete
}

// record layout: bits 0-7 state, 16-31 rise tick, 32-47 width.
func pack(s State, rise, width timebase.Tick) uint64 {
	return uint64(s) | uint64(rise)<<16 | uint64(width)<<32
}

func unpack(v uint64) (s State, rise, width timebase.Tick) {
	return State(v), timebase.Tick(v >> 16), timebase.Tick(v >> 32)
}

// Capture owns the echo state machine.
type Capture struct {
	line Line
	tb   timebase.TimeBase

	rec      atomic.Uint64
	spurious atomic.Uint32
	faults   atomic.Uint32
	handler  gpio.EdgeHandler

	// Set when the line reports edge timestamps and tb can convert them.
	stampedLine gpio.StampedLine
	stamped     gpio.StampedEdgeHandler
}

// NewCapture builds an idle capture on line, timed by tb. When line
// timestamps its edges and tb is a Stamper, edges are timed by those
// stamps instead of by reading tb in the handler.
func NewCapture(line Line, tb timebase.TimeBase) *Capture {
	c := &Capture{line: line, tb: tb}
	c.handler = c.HandleEdge
	sl, lineOK := line.(gpio.StampedLine)
	st, tbOK := tb.(Stamper)
	if lineOK && tbOK {
		c.stampedLine = sl
		c.stamped = func(e gpio.Edge, ts time.Duration) {
			c.latch(e, st.At(ts))
		}
	}
	return c
}

// Stamped reports whether edges are timed by backend timestamps.
func (c *Capture) Stamped() bool {
	return c.stamped != nil
}

func (c *Capture) enable() error {
	if c.stamped != nil {
		return c.stampedLine.EnableStamped(c.stamped)
	}
	return c.line.Enable(c.handler)
}

// Arm starts a measurement: rising polarity, counter reset, record
// cleared, interrupt enabled. It is accepted from Idle and Complete only.
func (c *Capture) Arm() error {
	s, _, _ := unpack(c.rec.Load())
	if s == ArmedWaitingRise || s == MeasuringFall {
		return ErrBusy
	}

	if err := c.line.SetEdge(gpio.RisingEdge); err != nil {
		return fmt.Errorf("echo: set rising edge: %w", err)
	}
	c.tb.Reset()
	// Publish the armed state before the line can deliver an edge.
	c.rec.Store(pack(ArmedWaitingRise, 0, 0))
	if err := c.enable(); err != nil {
		c.rec.Store(pack(Idle, 0, 0))
		return fmt.Errorf("echo: enable line: %w", err)
	}
	return nil
}

// HandleEdge is the interrupt handler. It latches the counter first, then
// advances the state machine; edges that do not match the current state are
// counted and ignored. It never logs or blocks: line errors are counted in
// Faults.
func (c *Capture) HandleEdge(e gpio.Edge) {
	c.latch(e, c.tb.Now())
}

// latch advances the state machine for an edge seen at now.
func (c *Capture) latch(e gpio.Edge, now timebase.Tick) {
	cur := c.rec.Load()
	s, rise, _ := unpack(cur)

	switch {
	case s == ArmedWaitingRise && e == gpio.RisingEdge:
		if !c.rec.CompareAndSwap(cur, pack(MeasuringFall, now, 0)) {
			c.spurious.Add(1)
			return
		}
		// Same line, opposite polarity; the interrupt stays enabled.
		if err := c.line.SetEdge(gpio.FallingEdge); err != nil {
			c.faults.Add(1)
		}

	case s == MeasuringFall && e == gpio.FallingEdge:
		width := timebase.Elapsed(rise, now)
		if !c.rec.CompareAndSwap(cur, pack(Complete, rise, width)) {
			c.spurious.Add(1)
			return
		}
		if err := c.line.Disable(); err != nil {
			c.faults.Add(1)
		}

	default:
		c.spurious.Add(1)
	}
}

// Cancel is the timeout path: the line is disabled and the capture goes back
// to Idle with a zero width, whatever state it was in.
func (c *Capture) Cancel() error {
	c.rec.Store(pack(Idle, 0, 0))
	if err := c.line.Disable(); err != nil {
		return fmt.Errorf("echo: disable line: %w", err)
	}
	return nil
}

// Snapshot returns the state and width from a single atomic load.
func (c *Capture) Snapshot() Result {
	s, rise, width := unpack(c.rec.Load())
	if s != Complete {
		width = 0
	}
	return Result{State: s, Rise: rise, Width: width}
}

// State returns the current state.
func (c *Capture) State() State {
	s, _, _ := unpack(c.rec.Load())
	return s
}

// Spurious returns the number of edges ignored since construction.
func (c *Capture) Spurious() uint32 {
	return c.spurious.Load()
}

// Faults returns the number of line reconfiguration errors seen by the
// edge handler.
func (c *Capture) Faults() uint32 {
	return c.faults.Load()
}

// Close cancels any measurement and releases the line when it owns a
// resource.
func (c *Capture) Close() error {
	if err := c.Cancel(); err != nil {
		return err
	}
	if cl, ok := c.line.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
