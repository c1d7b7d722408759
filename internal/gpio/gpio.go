// Package gpio drives the single bidirectional data line of the sensor.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// EdgeHandler is called for every falling edge seen while the line is
// released. at is the kernel timestamp of the edge, or zero when the
// source has none.
type EdgeHandler func(at time.Time)

// Line is the open-drain data line.
type Line interface {
	// Drive switches the line to output and drives it to level.
	Drive(level gpio.Level) error

	// Release switches the line to input with pull-up and enables
	// falling edge events.
	Release() error

	// Read returns the current line level.
	Read() (gpio.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering)
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 4
)
