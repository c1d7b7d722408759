//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

// RealLine drives the sensor line through the Linux GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
}

// NewRealLine requests offset on chip as a released input. onEdge receives
// falling edges from the kernel event stream.
func NewRealLine(chip string, offset int, onEdge EdgeHandler) (*RealLine, error) {
	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type != gpiocdev.LineEventFallingEdge {
			return
		}
		onEdge(time.Unix(0, int64(evt.Timestamp)))
	}

	// The realtime event clock lets edge timestamps be compared with
	// time.Now on the scheduler side.
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithRealtimeEventClock,
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		return nil, fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}
	return &RealLine{line: l}, nil
}

// Drive switches the line to output at level.
func (r *RealLine) Drive(level gpio.Level) error {
	v := 0
	if level == gpio.High {
		v = 1
	}
	if err := r.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
		return fmt.Errorf("drive line %v: %w", level, err)
	}
	return nil
}

// Release returns the line to input with pull-up and falling edge events.
func (r *RealLine) Release() error {
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithFallingEdge); err != nil {
		return fmt.Errorf("release line: %w", err)
	}
	return nil
}

// Read returns the line level.
func (r *RealLine) Read() (gpio.Level, error) {
	v, err := r.line.Value()
	if err != nil {
		return gpio.Low, fmt.Errorf("read line: %w", err)
	}
	return gpio.Level(v != 0), nil
}

// Close leaves the line as a pulled-up input, which is the idle state of
// the bus, and releases it.
func (r *RealLine) Close() error {
	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
