package display

import (
	"fmt"
	"io"
	"time"

	"github.com/cjeanneret/SortGo/internal/debug"
	"go.bug.st/serial"
)

// Serial LCD backpack protocol (SparkFun SerLCD compatible): bytes are
// printed as characters, except after cmdPrefix where the next byte is a
// raw HD44780 instruction.
const (
	cmdPrefix   = 0xFE
	cmdClear    = 0x01
	cmdSetDDRAM = 0x80
)

// rowOffsets are the DDRAM addresses of the start of each line.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// SerialLCD is a character LCD behind a UART backpack.
type SerialLCD struct {
	w      io.Writer
	settle time.Duration
}

// DefaultSettle is the pause after a command so the backpack can forward it
// to the controller (clear takes 1.5ms on the HD44780 itself).
const DefaultSettle = 2 * time.Millisecond

// OpenSerialLCD opens port (e.g. "/dev/ttyUSB0") at baud.
func OpenSerialLCD(port string, baud int) (*SerialLCD, error) {
	debug.Info("Opening serial LCD on %s @%d", port, baud)
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", port, err)
	}
	return NewSerialLCD(p, DefaultSettle), nil
}

// NewSerialLCD writes the protocol to w.
func NewSerialLCD(w io.Writer, settle time.Duration) *SerialLCD {
	return &SerialLCD{w: w, settle: settle}
}

func (s *SerialLCD) command(c byte) error {
	if _, err := s.w.Write([]byte{cmdPrefix, c}); err != nil {
		return fmt.Errorf("serial lcd command %#x: %w", c, err)
	}
	time.Sleep(s.settle)
	return nil
}

func (s *SerialLCD) Clear() error {
	return s.command(cmdClear)
}

func (s *SerialLCD) SetCursor(col, row uint8) error {
	if int(col) >= Cols || int(row) >= Rows {
		return fmt.Errorf("cursor %d,%d outside %dx%d", col, row, Cols, Rows)
	}
	return s.command(cmdSetDDRAM | (rowOffsets[row] + col))
}

func (s *SerialLCD) Write(text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return fmt.Errorf("serial lcd write: %w", err)
	}
	return nil
}

// Close closes the underlying port when it supports it.
func (s *SerialLCD) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
