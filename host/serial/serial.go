package serial

import (
	"io"
)

// Port is the serial line to the watchdog board.
// The abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing without a board)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0")
	Device string

	// Baud rate. The board ships at 19200 8N1.
	Baud int

	// Read timeout in milliseconds. One Read returning nothing within
	// this window counts as one empty unit of the reply loop.
	ReadTimeout int
}

// DefaultConfig returns the configuration the board ships with.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        19200,
		ReadTimeout: 100,
	}
}
