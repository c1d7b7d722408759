// Package frame turns captured pulse widths into validated sensor readings.
// This package is pure: no hardware, no clocks, no shared state.
package frame

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// Protocol layout of one capture. Widths are counter ticks between two
// falling edges, one tick per microsecond.
const (
	// DataBits is the number of bits the sensor sends per frame.
	DataBits = 40
	// HandshakeEntries precede the data widths: release to handshake low,
	// then handshake low+high.
	HandshakeEntries = 2
	// FrameEntries is the width count of a complete capture.
	FrameEntries = HandshakeEntries + DataBits

	// Threshold splits bit widths: at or above is a 1.
	Threshold uint16 = 110
	// MaxResponseWidth bounds the wait from release to the handshake low.
	MaxResponseWidth uint16 = 100
	// MaxPulseWidth bounds any other width. Longer means the line was held
	// high past the protocol maximum.
	MaxPulseWidth uint16 = 200

	// Nominal widths used by Encode.
	ResponseWidth  uint16 = 30
	HandshakeWidth uint16 = 160
	ZeroWidth      uint16 = 76
	OneWidth       uint16 = 120
)

// Frame is the 5-byte payload: humidity high/low, temperature high/low,
// checksum.
type Frame [5]byte

// NewFrame builds a frame with a correct checksum. Temperature is encoded
// sign-magnitude, as the sensor does.
func NewFrame(humidity uint16, temperature int16) Frame {
	var t uint16
	if temperature < 0 {
		mag := -int32(temperature)
		if mag > 0x7fff {
			mag = 0x7fff
		}
		t = uint16(mag) | 0x8000
	} else {
		t = uint16(temperature)
	}
	f := Frame{byte(humidity >> 8), byte(humidity), byte(t >> 8), byte(t)}
	f[4] = f.Sum()
	return f
}

// Checksum returns the low byte of the sum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Sum returns the checksum of the first four bytes.
func (f Frame) Sum() byte {
	return Checksum(f[:4])
}

// Valid reports whether the checksum byte matches.
func (f Frame) Valid() bool {
	return f[4] == f.Sum()
}

// Humidity returns relative humidity in tenths of a percent.
func (f Frame) Humidity() uint16 {
	return uint16(f[0])<<8 | uint16(f[1])
}

// Temperature returns temperature in tenths of a degree Celsius. The top bit
// of the high byte is a sign flag over a 15-bit magnitude.
func (f Frame) Temperature() int16 {
	raw := uint16(f[2])<<8 | uint16(f[3])
	mag := int16(raw & 0x7fff)
	if raw&0x8000 != 0 {
		return -mag
	}
	return mag
}

// ErrorKind classifies a failed acquisition.
type ErrorKind uint8

const (
	NoError ErrorKind = iota
	// NoHandshakeLow: the sensor never pulled the line low after the request.
	NoHandshakeLow
	// StuckLow: the line stayed low past the protocol maximum.
	StuckLow
	// StuckHigh: the line stayed high past the protocol maximum.
	StuckHigh
	// ChecksumMismatch: all bits arrived but the checksum is wrong.
	ChecksumMismatch
	// IncompleteFrame: fewer than 40 data widths were captured.
	IncompleteFrame
	// LineFault: the host could not drive or release the line.
	LineFault
)

// Kinds lists every failure kind, in order.
var Kinds = []ErrorKind{NoHandshakeLow, StuckLow, StuckHigh, ChecksumMismatch, IncompleteFrame, LineFault}

var kindNames = [...]string{
	NoError:          "NONE",
	NoHandshakeLow:   "NO_HANDSHAKE_LOW",
	StuckLow:         "STUCK_LOW",
	StuckHigh:        "STUCK_HIGH",
	ChecksumMismatch: "CHECKSUM_MISMATCH",
	IncompleteFrame:  "INCOMPLETE_FRAME",
	LineFault:        "LINE_FAULT",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Sentinel errors, one per ErrorKind.
var (
	ErrNoHandshakeLow  = errors.New("dht: no handshake low from sensor")
	ErrStuckLow        = errors.New("dht: line stuck low")
	ErrStuckHigh       = errors.New("dht: line stuck high")
	ErrChecksum        = errors.New("dht: checksum mismatch")
	ErrIncompleteFrame = errors.New("dht: incomplete frame")
	ErrLineFault       = errors.New("dht: line control failed")
)

// Err returns the sentinel error for k, or nil for NoError.
func (k ErrorKind) Err() error {
	switch k {
	case NoError:
		return nil
	case NoHandshakeLow:
		return ErrNoHandshakeLow
	case StuckLow:
		return ErrStuckLow
	case StuckHigh:
		return ErrStuckHigh
	case ChecksumMismatch:
		return ErrChecksum
	case IncompleteFrame:
		return ErrIncompleteFrame
	case LineFault:
		return ErrLineFault
	}
	return errors.New("dht: unknown error kind")
}

// Reading is the result of one acquisition cycle.
type Reading struct {
	Humidity    uint16 // tenths of a percent
	Temperature int16  // tenths of a degree Celsius
	Valid       bool
	Error       ErrorKind
	Frame       Frame // raw bytes, kept for diagnostics
}

// Err returns the reading's error, or nil when it is valid.
func (r Reading) Err() error {
	return r.Error.Err()
}

// Env converts the reading to physical units.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Humidity:    physic.RelativeHumidity(r.Humidity) * physic.MilliRH,
		Temperature: physic.ZeroCelsius + (physic.Celsius/10)*physic.Temperature(r.Temperature),
	}
}
