package gpio

import (
	"sync"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
)

// EdgeHandler is called for every reported edge. It runs in interrupt
// context (the backend's event goroutine) and must not block.
type EdgeHandler func(Edge)

// StampedEdgeHandler also receives the time the backend recorded for the
// edge, as an offset on CLOCK_MONOTONIC.
type StampedEdgeHandler func(e Edge, ts time.Duration)

// EdgeLine is an interrupt-capable input that reports transitions of one
// selectable polarity. The polarity can be changed while the line is enabled.
type EdgeLine interface {
	SetEdge(e Edge) error
	Enable(h EdgeHandler) error
	Disable() error
	Close() error
}

// StampedLine is implemented by lines that timestamp edges where they are
// detected rather than where they are delivered.
type StampedLine interface {
	EnableStamped(h StampedEdgeHandler) error
}

// MockLine is an EdgeLine driven by tests or by the bench simulator.
// Fire delivers an edge only when the line is enabled and the edge matches
// the configured polarity, like the real interrupt hardware.
type MockLine struct {
	mu       sync.Mutex
	edge     Edge
	handler  StampedEdgeHandler
	enables  int
	disables int
	edges    []Edge // polarity history, one entry per SetEdge
}

func (m *MockLine) SetEdge(e Edge) error {
	debug.Trace("MockLine: polarity -> %s", e)
	m.mu.Lock()
	m.edge = e
	m.edges = append(m.edges, e)
	m.mu.Unlock()
	return nil
}

func (m *MockLine) Enable(h EdgeHandler) error {
	return m.EnableStamped(func(e Edge, _ time.Duration) { h(e) })
}

func (m *MockLine) EnableStamped(h StampedEdgeHandler) error {
	debug.Trace("MockLine: enable (%s)", m.Polarity())
	m.mu.Lock()
	m.handler = h
	m.enables++
	m.mu.Unlock()
	return nil
}

func (m *MockLine) Disable() error {
	debug.Trace("MockLine: disable")
	m.mu.Lock()
	m.handler = nil
	m.disables++
	m.mu.Unlock()
	return nil
}

func (m *MockLine) Close() error {
	return m.Disable()
}

// Fire simulates a transition on the line. It reports whether the handler
// was invoked.
func (m *MockLine) Fire(e Edge) bool {
	return m.FireAt(e, 0)
}

// FireAt is Fire with an explicit edge timestamp.
func (m *MockLine) FireAt(e Edge, ts time.Duration) bool {
	m.mu.Lock()
	h := m.handler
	match := m.edge == e
	m.mu.Unlock()
	if h == nil || !match {
		return false
	}
	h(e, ts)
	return true
}

// Enabled reports whether a handler is installed.
func (m *MockLine) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

// Polarity returns the currently configured edge.
func (m *MockLine) Polarity() Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edge
}

// Counts returns how many times the line was enabled and disabled.
func (m *MockLine) Counts() (enables, disables int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enables, m.disables
}

// PolarityHistory returns every polarity set so far.
func (m *MockLine) PolarityHistory() []Edge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Edge(nil), m.edges...)
}
