package acquire

import (
	"sync/atomic"

	"github.com/sweeney/dht-sensor/internal/timer"
)

// Refresher counts whole seconds on a fixed-period channel and notifies the
// display once per second. The acquisition machine pauses it for the length
// of a capture, during which no seconds accumulate.
type Refresher struct {
	ch        *timer.Channel
	perSecond int
	count     int
	paused    bool
	seconds   atomic.Uint32
	onSecond  func(seconds uint32)
}

// NewRefresher registers a channel of the given period on sched. onSecond,
// if not nil, is called from handler context every perSecond ticks and must
// not block.
func NewRefresher(sched timer.Scheduler, period timer.Ticks, perSecond int, onSecond func(seconds uint32)) *Refresher {
	r := &Refresher{perSecond: perSecond, onSecond: onSecond}
	r.ch = sched.Register(period, r.tick)
	return r
}

// Start arms the channel one period from now.
func (r *Refresher) Start() {
	r.paused = false
	r.ch.Start()
}

// Pause stops the channel. It does nothing if the channel is not running.
func (r *Refresher) Pause() {
	if !r.ch.Enabled() {
		return
	}
	r.ch.Disarm()
	r.paused = true
}

// Resume restarts a paused channel one period from now.
func (r *Refresher) Resume() {
	if !r.paused {
		return
	}
	r.Start()
}

// Paused reports whether the channel is paused.
func (r *Refresher) Paused() bool {
	return r.paused
}

// Seconds returns the whole seconds counted so far. Safe from any goroutine.
func (r *Refresher) Seconds() uint32 {
	return r.seconds.Load()
}

func (r *Refresher) tick(c *timer.Channel) {
	r.count++
	if r.count < r.perSecond {
		return
	}
	r.count = 0
	s := r.seconds.Add(1)
	if r.onSecond != nil {
		r.onSecond(s)
	}
}
