package gpio

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Mode is the direction the host has configured the line in.
type Mode int

const (
	ModeInput Mode = iota
	ModeOutput
)

// FakeLine is a test double for the open-drain line. The host side uses the
// Line methods; the device side pulls the line low with Hold and lets it go
// with Let. A falling edge is delivered to the handler whenever the visible
// level goes from high to low while the line is released.
type FakeLine struct {
	// Calls records Drive and Release in order, as "drive-low",
	// "drive-high" and "release".
	Calls []string

	// DriveError and ReleaseError, if set, are returned by Drive and Release.
	DriveError   error
	ReleaseError error

	// Closed tracks if Close was called
	Closed bool

	mode    Mode
	driven  gpio.Level
	held    bool
	onEdge  EdgeHandler
	edges   int
	watches []func(gpio.Level)
}

// NewFakeLine returns a released, idle-high line.
func NewFakeLine() *FakeLine {
	return &FakeLine{mode: ModeInput}
}

// OnEdge sets the falling edge handler.
func (f *FakeLine) OnEdge(h EdgeHandler) {
	f.onEdge = h
}

// Watch registers fn to be called with the host-driven level on every
// Drive, and with High on Release. The simulated sensor uses it to see
// the start signal.
func (f *FakeLine) Watch(fn func(gpio.Level)) {
	f.watches = append(f.watches, fn)
}

// Drive switches to output at level.
func (f *FakeLine) Drive(level gpio.Level) error {
	if f.DriveError != nil {
		return f.DriveError
	}
	if level == gpio.Low {
		f.Calls = append(f.Calls, "drive-low")
	} else {
		f.Calls = append(f.Calls, "drive-high")
	}
	f.mode = ModeOutput
	f.driven = level
	for _, fn := range f.watches {
		fn(level)
	}
	return nil
}

// Release switches to input with pull-up.
func (f *FakeLine) Release() error {
	if f.ReleaseError != nil {
		return f.ReleaseError
	}
	f.Calls = append(f.Calls, "release")
	f.mode = ModeInput
	for _, fn := range f.watches {
		fn(gpio.High)
	}
	return nil
}

// Read returns the visible level.
func (f *FakeLine) Read() (gpio.Level, error) {
	return f.level(), nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Mode returns the host-side direction.
func (f *FakeLine) Mode() Mode {
	return f.mode
}

// Hold pulls the line low from the device side.
func (f *FakeLine) Hold() {
	before := f.level()
	f.held = true
	if f.mode == ModeInput && before == gpio.High {
		f.edges++
		if f.onEdge != nil {
			f.onEdge(time.Time{})
		}
	}
}

// Let stops pulling the line low from the device side.
func (f *FakeLine) Let() {
	f.held = false
}

// Edges returns the number of falling edges delivered.
func (f *FakeLine) Edges() int {
	return f.edges
}

func (f *FakeLine) level() gpio.Level {
	if f.mode == ModeOutput {
		return gpio.Level(bool(f.driven) && !f.held)
	}
	return gpio.Level(!f.held)
}
