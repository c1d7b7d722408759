// Package acquire runs the sensor read cycle: request pulse, handshake,
// capture window and cooldown, driven by one compare channel of a timer
// scheduler. A second channel counts whole seconds for the display refresh
// and is paused while a capture is in progress.
package acquire

import (
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// State is the acquisition state.
type State uint8

const (
	Idle State = iota
	Requesting
	AwaitingHandshake
	Capturing
	Settling
)

var stateNames = [...]string{
	Idle:              "IDLE",
	Requesting:        "REQUESTING",
	AwaitingHandshake: "AWAITING_HANDSHAKE",
	Capturing:         "CAPTURING",
	Settling:          "SETTLING",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Config is the timing calibration of the read cycle. All durations are in
// counter ticks.
type Config struct {
	// IdlePeriod is the advance channel period while idle.
	IdlePeriod timer.Ticks
	// IdleCycles is the number of idle ticks between two requests. The
	// sensor needs two seconds between reads.
	IdleCycles int
	// RequestPulse is how long the line is held low to request a frame.
	RequestPulse timer.Ticks
	// ReleasePulse is the busy-wait with the line driven high before it is
	// released.
	ReleasePulse timer.Ticks
	// SpinCeiling bounds the ReleasePulse busy-wait in iterations.
	SpinCeiling int
	// HandshakeTimeout is the line silence after release after which the
	// capture is checked for a response.
	HandshakeTimeout timer.Ticks
	// CaptureTimeout is the line silence that closes the capture window.
	CaptureTimeout timer.Ticks
	// SettleDelay separates the end of the capture from the decode.
	SettleDelay timer.Ticks
}

// DefaultConfig returns the reference calibration, one tick per microsecond.
func DefaultConfig() Config {
	return Config{
		IdlePeriod:       10000,
		IdleCycles:       200,
		RequestPulse:     1000,
		ReleasePulse:     30,
		SpinCeiling:      2000,
		HandshakeTimeout: 1000,
		CaptureTimeout:   6000,
		SettleDelay:      1000,
	}
}

// Stats are the cumulative acquisition counters.
type Stats struct {
	Cycles uint32
	Valid  uint32
	// ChecksumFailures counts frames that arrived whole with a bad checksum.
	ChecksumFailures uint32
	// AcquisitionFailures counts every other failed cycle.
	AcquisitionFailures uint32
	// Failures counts failed cycles by kind.
	Failures [frame.LineFault + 1]uint32
	// Dropped and Stray mirror the capture decoder counters.
	Dropped uint32
	Stray   uint32
}

// Failed returns the failure count of kind k.
func (s Stats) Failed(k frame.ErrorKind) uint32 {
	if int(k) >= len(s.Failures) {
		return 0
	}
	return s.Failures[k]
}

func (s *Stats) record(r frame.Reading) {
	s.Cycles++
	switch {
	case r.Valid:
		s.Valid++
	case r.Error == frame.ChecksumMismatch:
		s.ChecksumFailures++
	default:
		s.AcquisitionFailures++
	}
	if !r.Valid && int(r.Error) < len(s.Failures) {
		s.Failures[r.Error]++
	}
}

// Observer is notified of every completed cycle. It is called from the
// scheduler's handler context and must not block.
type Observer interface {
	Observe(r frame.Reading)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r frame.Reading)

// Observe calls f(r).
func (f ObserverFunc) Observe(r frame.Reading) { f(r) }
