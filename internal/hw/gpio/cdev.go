package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"github.com/warthog618/go-gpiocdev"
)

// CdevLine is an EdgeLine on the Linux GPIO character device. Edge events
// are delivered by the kernel and dispatched from go-gpiocdev's event
// goroutine, carrying the kernel's CLOCK_MONOTONIC timestamp of the edge.
type CdevLine struct {
	line    *gpiocdev.Line
	offset  int
	edge    atomic.Int32
	handler atomic.Pointer[StampedEdgeHandler]
}

// NewCdevLine requests offset on chip (e.g. "gpiochip0") as a pulled-down
// input with edge events. Edge detection stays off until Enable.
func NewCdevLine(chip string, offset int) (*CdevLine, error) {
	debug.Info("Requesting echo line %s:%d (gpiocdev)", chip, offset)
	l := &CdevLine{offset: offset}
	l.edge.Store(int32(RisingEdge))

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(l.onEvent))
	if err != nil {
		return nil, fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}
	l.line = line

	if err := line.Reconfigure(gpiocdev.WithoutEdges); err != nil {
		_ = line.Close()
		return nil, fmt.Errorf("disable edges on %s:%d: %w", chip, offset, err)
	}
	return l, nil
}

func (l *CdevLine) onEvent(evt gpiocdev.LineEvent) {
	h := l.handler.Load()
	if h == nil {
		return
	}
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		(*h)(RisingEdge, evt.Timestamp)
	case gpiocdev.LineEventFallingEdge:
		(*h)(FallingEdge, evt.Timestamp)
	}
}

func (l *CdevLine) edgeOption() gpiocdev.LineConfigOption {
	if Edge(l.edge.Load()) == FallingEdge {
		return gpiocdev.WithFallingEdge
	}
	return gpiocdev.WithRisingEdge
}

// SetEdge selects the polarity. If the line is enabled the kernel is
// reprogrammed immediately without dropping the request.
func (l *CdevLine) SetEdge(e Edge) error {
	l.edge.Store(int32(e))
	if l.handler.Load() == nil {
		return nil
	}
	return l.line.Reconfigure(l.edgeOption())
}

// Enable installs h and turns on edge detection for the selected polarity.
func (l *CdevLine) Enable(h EdgeHandler) error {
	return l.EnableStamped(func(e Edge, _ time.Duration) { h(e) })
}

// EnableStamped is Enable for handlers that want the kernel timestamp.
func (l *CdevLine) EnableStamped(h StampedEdgeHandler) error {
	l.handler.Store(&h)
	if err := l.line.Reconfigure(l.edgeOption()); err != nil {
		l.handler.Store(nil)
		return fmt.Errorf("enable edges on line %d: %w", l.offset, err)
	}
	return nil
}

// Disable turns edge detection off. Events already queued are dropped.
func (l *CdevLine) Disable() error {
	l.handler.Store(nil)
	return l.line.Reconfigure(gpiocdev.WithoutEdges)
}

func (l *CdevLine) Close() error {
	l.handler.Store(nil)
	return l.line.Close()
}
