package gpio

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// edgeLatch is the part of rpio.Pin an RPiLine uses.
type edgeLatch interface {
	Detect(edge rpio.Edge)
	EdgeDetected() bool
}

// RPiLine is an EdgeLine on the BCM283x event-detect registers. The SoC
// latches the selected edge; a goroutine polls and clears the latch and
// reports the configured polarity.
type RPiLine struct {
	pin     edgeLatch
	poll    time.Duration
	edge    atomic.Int32
	handler atomic.Pointer[EdgeHandler]
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func newRPiLine(pin edgeLatch, poll time.Duration) *RPiLine {
	pin.Detect(rpio.NoEdge)
	l := &RPiLine{
		pin:  pin,
		poll: poll,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.edge.Store(int32(RisingEdge))
	go l.run()
	return l
}

func (l *RPiLine) run() {
	defer close(l.done)
	for {
		if l.handler.Load() == nil {
			select {
			case <-l.stop:
				return
			case <-l.wake:
			}
			continue
		}

		select {
		case <-l.stop:
			return
		default:
		}

		if l.pin.EdgeDetected() {
			if h := l.handler.Load(); h != nil {
				(*h)(Edge(l.edge.Load()))
			}
		}
		if l.poll > 0 {
			time.Sleep(l.poll)
		} else {
			runtime.Gosched()
		}
	}
}

func toRPiEdge(e Edge) rpio.Edge {
	switch e {
	case RisingEdge:
		return rpio.RiseEdge
	case FallingEdge:
		return rpio.FallEdge
	default:
		return rpio.NoEdge
	}
}

// SetEdge selects the polarity. Detect also clears a pending latch.
func (l *RPiLine) SetEdge(e Edge) error {
	l.edge.Store(int32(e))
	if l.handler.Load() != nil {
		l.pin.Detect(toRPiEdge(e))
	}
	return nil
}

func (l *RPiLine) Enable(h EdgeHandler) error {
	l.pin.Detect(toRPiEdge(Edge(l.edge.Load())))
	l.handler.Store(&h)
	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *RPiLine) Disable() error {
	l.handler.Store(nil)
	l.pin.Detect(rpio.NoEdge)
	return nil
}

func (l *RPiLine) Close() error {
	l.handler.Store(nil)
	close(l.stop)
	<-l.done
	l.pin.Detect(rpio.NoEdge)
	return nil
}
