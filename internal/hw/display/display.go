// Package display renders text on a character LCD (16x2 HD44780 class).
package display

import (
	"fmt"
	"strings"
	"sync"
)

const (
	Cols = 16
	Rows = 2
)

// Display is a write-only character sink.
type Display interface {
	Clear() error
	SetCursor(col, row uint8) error
	Write(text string) error
}

// PrintAt moves the cursor then writes text.
func PrintAt(d Display, col, row uint8, text string) error {
	if err := d.SetCursor(col, row); err != nil {
		return err
	}
	return d.Write(text)
}

// Digits4 renders n as exactly four digits with leading zeros, saturating
// at 9999. Negative values render as "----".
func Digits4(n int) string {
	switch {
	case n < 0:
		return "----"
	case n > 9999:
		n = 9999
	}
	return fmt.Sprintf("%04d", n)
}

// Mock keeps the screen contents in memory.
type Mock struct {
	mu       sync.Mutex
	buf      [Rows][Cols]byte
	col, row int
	Writes   int
}

// NewMock returns a blank screen.
func NewMock() *Mock {
	m := &Mock{}
	m.blank()
	return m
}

func (m *Mock) blank() {
	for r := range m.buf {
		for c := range m.buf[r] {
			m.buf[r][c] = ' '
		}
	}
	m.col, m.row = 0, 0
}

func (m *Mock) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blank()
	return nil
}

func (m *Mock) SetCursor(col, row uint8) error {
	if int(col) >= Cols || int(row) >= Rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d", col, row, Cols, Rows)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.col, m.row = int(col), int(row)
	return nil
}

// Write stores text from the cursor; characters past the line end are
// dropped.
func (m *Mock) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	for i := 0; i < len(text) && m.col < Cols; i++ {
		m.buf[m.row][m.col] = text[i]
		m.col++
	}
	return nil
}

// Line returns row r with trailing blanks trimmed.
func (m *Mock) Line(r int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.TrimRight(string(m.buf[r][:]), " ")
}
