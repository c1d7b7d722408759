// Package sim provides a simulated sensor that answers start signals on a
// gpio.FakeLine, timed on a timer.Sim. It is used by tests and by the
// --simulate mode of the binary.
package sim

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/sweeney/dht-sensor/internal/frame"
	gpiofake "github.com/sweeney/dht-sensor/internal/gpio"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// Fault selects how the simulated sensor misbehaves.
type Fault int

const (
	Healthy Fault = iota
	// Silent never answers the start signal.
	Silent
	// HoldLow pulls the line low for the handshake and never lets go.
	HoldLow
	// LongHigh keeps the line high for too long in the middle of the frame.
	LongHigh
	// Corrupt sends a frame with a wrong checksum byte.
	Corrupt
	// Truncate stops after a few bits.
	Truncate
	// LateResponse answers the start signal too late.
	LateResponse
)

var faultNames = [...]string{
	Healthy:      "healthy",
	Silent:       "silent",
	HoldLow:      "hold-low",
	LongHigh:     "long-high",
	Corrupt:      "corrupt",
	Truncate:     "truncate",
	LateResponse: "late-response",
}

func (f Fault) String() string {
	if int(f) < len(faultNames) {
		return faultNames[f]
	}
	return "unknown"
}

// ParseFault returns the fault named s.
func ParseFault(s string) (Fault, bool) {
	for i, name := range faultNames {
		if name == s {
			return Fault(i), true
		}
	}
	return Healthy, false
}

// Timing of the simulated sensor, in ticks.
const (
	// MinStart is the shortest start signal the sensor accepts.
	MinStart = 500
	// HandshakeLow is how long the sensor holds its handshake low.
	HandshakeLow = 80
	// BitLow is the low part of every bit.
	BitLow = 50
	// TruncateAt is the edge count sent in Truncate mode.
	TruncateAt = 20
	// LongHighWidth replaces one bit width in LongHigh mode.
	LongHighWidth = 300
	// LateWidth is the response width in LateResponse mode.
	LateWidth = 150
)

// Sensor answers start signals on a fake line.
type Sensor struct {
	clock *timer.Sim
	line  *gpiofake.FakeLine

	humidity    uint16
	temperature int16
	fault       Fault

	low      bool
	lowSince uint64
	busy     bool
	requests int
	answers  int
}

// NewSensor attaches a sensor to line. Its answers are timed on clock.
func NewSensor(clock *timer.Sim, line *gpiofake.FakeLine) *Sensor {
	s := &Sensor{clock: clock, line: line}
	line.Watch(s.watch)
	return s
}

// Set changes the values of the next frames.
func (s *Sensor) Set(humidity uint16, temperature int16) {
	s.humidity = humidity
	s.temperature = temperature
}

// SetFault changes how the next start signals are answered.
func (s *Sensor) SetFault(f Fault) {
	s.fault = f
}

// Requests returns the number of start signals seen.
func (s *Sensor) Requests() int { return s.requests }

// Answers returns the number of frames started.
func (s *Sensor) Answers() int { return s.answers }

// watch sees the host side of the line.
func (s *Sensor) watch(level gpio.Level) {
	if level == gpio.Low {
		if !s.low {
			s.low = true
			s.lowSince = s.clock.Elapsed()
		}
		return
	}
	if !s.low {
		return
	}
	s.low = false
	if s.clock.Elapsed()-s.lowSince < MinStart || s.busy {
		return
	}
	s.requests++
	s.answer()
}

// answer schedules the falling edges of one response. Edge i is
// widths[0]+...+widths[i] ticks after the start signal ends.
func (s *Sensor) answer() {
	widths := s.widths()
	if len(widths) == 0 {
		return
	}
	s.answers++
	s.busy = true

	var at uint64
	for i, w := range widths {
		at += uint64(w)
		last := i == len(widths)-1
		s.clock.After(at, s.line.Hold)
		if last && s.fault == HoldLow {
			s.clock.After(at, s.done)
			break
		}
		low := uint64(BitLow)
		if i == 0 {
			low = HandshakeLow
		}
		s.clock.After(at+low, s.line.Let)
		if last {
			s.clock.After(at+low, s.done)
		}
	}
}

// done ends a response. A line held low is left held.
func (s *Sensor) done() {
	s.busy = false
}

func (s *Sensor) widths() []uint16 {
	f := frame.NewFrame(s.humidity, s.temperature)
	switch s.fault {
	case Silent:
		return nil
	case HoldLow:
		return frame.Encode(f)[:1]
	case LongHigh:
		w := frame.Encode(f)
		w[frame.HandshakeEntries+10] = LongHighWidth
		return w
	case Corrupt:
		f[4]++
		return frame.Encode(f)
	case Truncate:
		return frame.Encode(f)[:TruncateAt]
	case LateResponse:
		w := frame.Encode(f)
		w[0] = LateWidth
		return w
	}
	return frame.Encode(f)
}

// Release lets go of a line left held by HoldLow.
func (s *Sensor) Release() {
	s.line.Let()
}
