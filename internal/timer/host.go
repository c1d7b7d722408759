package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Host runs compare channels against a wall clock. The counter value is the
// number of microseconds since the last Reset, modulo Modulus.
//
// All handlers and all Interrupt callbacks run under one mutex, one at a
// time, the way a single-core MCU runs one interrupt service routine at a
// time. A deadline counts as reached once the counter is at or past it
// within Horizon, since a host cannot match a counter value exactly.
type Host struct {
	clock clockwork.Clock

	mu      sync.Mutex
	base    time.Time
	latched time.Time
	chans   []*Channel
	wake    chan struct{}
}

// NewHost returns a host counter started at zero.
func NewHost(clock clockwork.Clock) *Host {
	return &Host{
		clock: clock,
		base:  clock.Now(),
		wake:  make(chan struct{}, 1),
	}
}

// Now returns the counter value. Inside Interrupt it returns the value at
// the interrupt's timestamp.
func (h *Host) Now() Ticks {
	return h.ticksAt(h.instant())
}

// Reset sets the counter to zero at the current instant.
func (h *Host) Reset() {
	h.base = h.instant()
	h.changed()
}

// Register creates a disabled channel.
func (h *Host) Register(period Ticks, hd Handler) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := newChannel(len(h.chans), period, hd, h)
	h.chans = append(h.chans, c)
	return c
}

// Interrupt runs fn with the scheduler's interrupt lock held and the counter
// latched to at, which is when the hardware saw the event. A zero at means
// the current time.
func (h *Host) Interrupt(at time.Time, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latched = at
	fn()
	h.latched = time.Time{}
}

// Run fires channels as their deadlines are reached until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	for {
		wait := h.dispatch()
		t := h.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.Chan():
		case <-h.wake:
			t.Stop()
		}
	}
}

// dispatch fires every channel that is due and returns how long to sleep
// until the next deadline.
func (h *Host) dispatch() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		now := h.ticksAt(h.clock.Now())
		wait := time.Duration(Horizon) * time.Microsecond
		var due *Channel
		for _, c := range h.chans {
			if !c.enabled {
				continue
			}
			if Reached(now, c.deadline) {
				due = c
				break
			}
			if d := time.Duration(c.deadline-now) * time.Microsecond; d < wait {
				wait = d
			}
		}
		if due == nil {
			return wait
		}
		due.fire()
	}
}

func (h *Host) instant() time.Time {
	if !h.latched.IsZero() {
		return h.latched
	}
	return h.clock.Now()
}

func (h *Host) ticksAt(t time.Time) Ticks {
	return Ticks(uint64(t.Sub(h.base) / time.Microsecond))
}

func (h *Host) changed() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}
