package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// periphWaitSlice bounds each WaitForEdge call so Close is noticed promptly.
const periphWaitSlice = 100 * time.Millisecond

// PeriphLine is an EdgeLine on top of a periph pin. A goroutine blocks in
// WaitForEdge and reports the configured polarity on each edge.
type PeriphLine struct {
	pin     pgpio.PinIO
	edge    atomic.Int32
	handler atomic.Pointer[EdgeHandler]
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// OpenPeriphLine initializes the periph host drivers and opens the pin
// registered under name (BCM number on a Raspberry Pi).
func OpenPeriphLine(name string) (*PeriphLine, error) {
	debug.Info("Opening echo line %s (periph)", name)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no GPIO pin named: %s", name)
	}
	return NewPeriphLine(pin)
}

// NewPeriphLine wraps an already resolved pin.
func NewPeriphLine(pin pgpio.PinIO) (*PeriphLine, error) {
	if err := pin.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure %s as input: %w", pin, err)
	}
	l := &PeriphLine{
		pin:  pin,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.edge.Store(int32(RisingEdge))
	go l.run()
	return l, nil
}

func (l *PeriphLine) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		default:
		}

		h := l.handler.Load()
		if h == nil {
			select {
			case <-l.stop:
				return
			case <-l.wake:
			}
			continue
		}

		if l.pin.WaitForEdge(periphWaitSlice) {
			if cur := l.handler.Load(); cur != nil {
				(*cur)(Edge(l.edge.Load()))
			}
		}
	}
}

func toPeriphEdge(e Edge) pgpio.Edge {
	switch e {
	case RisingEdge:
		return pgpio.RisingEdge
	case FallingEdge:
		return pgpio.FallingEdge
	default:
		return pgpio.NoEdge
	}
}

func (l *PeriphLine) SetEdge(e Edge) error {
	l.edge.Store(int32(e))
	if l.handler.Load() == nil {
		return nil
	}
	return l.pin.In(pgpio.PullDown, toPeriphEdge(e))
}

// Enable reprograms the pin, which also discards edges seen while disabled.
func (l *PeriphLine) Enable(h EdgeHandler) error {
	if err := l.pin.In(pgpio.PullDown, toPeriphEdge(Edge(l.edge.Load()))); err != nil {
		return fmt.Errorf("enable edges on %s: %w", l.pin, err)
	}
	l.handler.Store(&h)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *PeriphLine) Disable() error {
	l.handler.Store(nil)
	return l.pin.In(pgpio.PullDown, pgpio.NoEdge)
}

func (l *PeriphLine) Close() error {
	l.handler.Store(nil)
	close(l.stop)
	<-l.done
	return l.pin.Halt()
}
