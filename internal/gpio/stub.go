//go:build !linux

package gpio

import (
	"errors"

	"periph.io/x/conn/v3/gpio"
)

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(chip string, offset int, onEdge EdgeHandler) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Drive is not implemented on non-Linux platforms.
func (r *RealLine) Drive(level gpio.Level) error {
	return errors.New("gpio: not supported")
}

// Release is not implemented on non-Linux platforms.
func (r *RealLine) Release() error {
	return errors.New("gpio: not supported")
}

// Read is not implemented on non-Linux platforms.
func (r *RealLine) Read() (gpio.Level, error) {
	return gpio.Low, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}
