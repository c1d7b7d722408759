// Package capture records the pulse widths of the sensor line from its edge
// interrupts.
//
// The Decoder is written by the edge interrupt and read by the acquisition
// state machine. They never run at the same time: writes are only accepted
// while the decoder is armed, and the state machine only reads after it has
// disarmed it.
package capture

import (
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// Capacity is the fixed number of widths one capture holds.
const Capacity = frame.FrameEntries

// Buffer holds the widths of one capture window.
type Buffer struct {
	Widths [Capacity]uint16
	Count  int
	// Fault is set by the state machine when the window closes on a line
	// that never answered or never came back up.
	Fault frame.ErrorKind
}

// Pulses returns the captured widths.
func (b *Buffer) Pulses() []uint16 {
	return b.Widths[:b.Count]
}

// Full reports whether the buffer holds a complete frame.
func (b *Buffer) Full() bool {
	return b.Count >= Capacity
}

// Decode decodes the buffer into a reading.
func (b *Buffer) Decode() frame.Reading {
	return frame.Decode(b.Pulses(), b.Fault)
}

// Stats counts edges that were not recorded.
type Stats struct {
	Dropped uint32 // edges after the buffer was full
	Stray   uint32 // edges while disarmed
}

// Decoder is the edge interrupt handler.
type Decoder struct {
	counter timer.Counter
	armed   bool
	buf     Buffer
	stats   Stats
}

// NewDecoder returns a disarmed decoder timing edges on counter.
func NewDecoder(counter timer.Counter) *Decoder {
	return &Decoder{counter: counter}
}

// Arm empties the buffer and starts accepting edges.
func (d *Decoder) Arm() {
	d.buf = Buffer{}
	d.armed = true
}

// Disarm stops accepting edges. The buffer keeps its content.
func (d *Decoder) Disarm() {
	d.armed = false
}

// Armed reports whether edges are being recorded.
func (d *Decoder) Armed() bool {
	return d.armed
}

// OnEdge records the counter value since the previous edge and restarts the
// counter. It runs in interrupt context between sub-100us pulses, so it does
// nothing but the bounds check, the store and the reset.
func (d *Decoder) OnEdge() {
	if !d.armed {
		d.stats.Stray++
		return
	}
	if d.buf.Count >= Capacity {
		d.stats.Dropped++
		return
	}
	d.buf.Widths[d.buf.Count] = uint16(d.counter.Now())
	d.buf.Count++
	d.counter.Reset()
}

// Buffer returns a copy of the current buffer.
func (d *Decoder) Buffer() Buffer {
	return d.buf
}

// Stats returns the unrecorded edge counts.
func (d *Decoder) Stats() Stats {
	return d.stats
}
