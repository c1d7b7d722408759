// Package timer multiplexes independent compare channels onto one
// free-running, wrap-around microsecond counter.
//
// Two implementations exist: Sim, a deterministic simulated counter used by
// tests and the --simulate mode, and Host, which runs the channels against a
// real clock on Linux. Consumers only see the Scheduler interface.
package timer

// Ticks is a counter value. One tick is one microsecond in the reference
// calibration. Arithmetic on Ticks wraps at Modulus.
type Ticks uint16

const (
	// Modulus is the wrap-around period of the counter.
	Modulus = 1 << 16

	// Horizon is the longest elapsed time that can be told apart from a
	// wrapped one. Every scheduled wait must stay below it.
	Horizon Ticks = Modulus / 2
)

// Since returns the ticks elapsed from earlier to now, modulo Modulus.
func Since(now, earlier Ticks) Ticks {
	return now - earlier
}

// Reached reports whether deadline lies at or behind now, within Horizon.
func Reached(now, deadline Ticks) bool {
	return now-deadline < Horizon
}

// Counter is the free-running monotonic counter.
type Counter interface {
	// Now returns the current counter value. It never blocks.
	Now() Ticks
	// Reset sets the counter to zero.
	Reset()
}

// Scheduler owns the compare channels of one counter.
type Scheduler interface {
	Counter
	// Register creates a disabled channel with the given default period.
	Register(period Ticks, h Handler) *Channel
}

// Spin busy-waits until ticks have elapsed on c, polling at most ceiling
// times. It reports whether the full duration was observed. A counter that
// does not advance (interrupts masked, simulated time) ends the wait at the
// ceiling instead of hanging.
func Spin(c Counter, ticks Ticks, ceiling int) bool {
	start := c.Now()
	for i := 0; i < ceiling; i++ {
		if Since(c.Now(), start) >= ticks {
			return true
		}
	}
	return false
}
