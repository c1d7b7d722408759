package timer

import "sort"

// Sim is a simulated counter with compare channels. Time only moves when
// Advance or AdvanceUntil is called, and everything runs on the caller's
// goroutine, so handlers and external events never overlap.
//
// A channel fires when the counter becomes equal to its deadline, as a
// hardware compare unit would. Arming a deadline equal to the current value
// therefore fires after a full wrap.
type Sim struct {
	value   Ticks
	elapsed uint64
	chans   []*Channel
	due     []*Channel
	events  []simEvent
	seq     uint64
}

type simEvent struct {
	at  uint64
	seq uint64
	fn  func()
}

// NewSim returns a simulated counter at zero.
func NewSim() *Sim {
	return &Sim{}
}

// Now returns the counter value.
func (s *Sim) Now() Ticks { return s.value }

// Reset sets the counter to zero. Elapsed is unaffected.
func (s *Sim) Reset() { s.value = 0 }

// Elapsed returns the absolute simulated time in ticks. It never wraps and
// is not affected by Reset.
func (s *Sim) Elapsed() uint64 { return s.elapsed }

// Register creates a disabled channel. Lower IDs win ties.
func (s *Sim) Register(period Ticks, h Handler) *Channel {
	c := newChannel(len(s.chans), period, h, s)
	s.chans = append(s.chans, c)
	return c
}

func (s *Sim) changed() {}

// After schedules fn to run d ticks of absolute time from now. Events at the
// same instant run in scheduling order, after any channel due at that instant.
func (s *Sim) After(d uint64, fn func()) {
	ev := simEvent{at: s.elapsed + d, seq: s.seq, fn: fn}
	s.seq++
	i := sort.Search(len(s.events), func(i int) bool {
		return s.events[i].at > ev.at
	})
	s.events = append(s.events, simEvent{})
	copy(s.events[i+1:], s.events[i:])
	s.events[i] = ev
}

// Pending returns the number of scheduled external events.
func (s *Sim) Pending() int { return len(s.events) }

// Advance runs the simulation for d ticks.
func (s *Sim) Advance(d uint64) {
	end := s.elapsed + d
	for s.step(end) {
	}
}

// AdvanceUntil runs the simulation until done returns true, checking after
// every fired channel or event, or until limit ticks have passed. It reports
// whether done was satisfied.
func (s *Sim) AdvanceUntil(done func() bool, limit uint64) bool {
	end := s.elapsed + limit
	for !done() {
		if !s.step(end) {
			return done()
		}
	}
	return true
}

// step runs the next channel or event not later than end. It returns false
// once end is reached with nothing left to run.
func (s *Sim) step(end uint64) bool {
	for len(s.due) > 0 {
		c := s.due[0]
		s.due = s.due[1:]
		if c.enabled && c.deadline == s.value {
			c.fire()
			return true
		}
	}

	best := end + 1
	for _, c := range s.chans {
		if !c.enabled {
			continue
		}
		dist := uint64(c.deadline - s.value)
		if dist == 0 {
			dist = Modulus
		}
		if at := s.elapsed + dist; at < best {
			best = at
		}
	}
	if len(s.events) > 0 && s.events[0].at < best {
		ev := s.events[0]
		s.events = s.events[1:]
		s.move(ev.at)
		ev.fn()
		return true
	}
	if best > end {
		s.move(end)
		return false
	}
	s.move(best)
	for _, c := range s.chans {
		if c.enabled && c.deadline == s.value {
			s.due = append(s.due, c)
		}
	}
	return true
}

func (s *Sim) move(to uint64) {
	if to < s.elapsed {
		return
	}
	s.value += Ticks(to - s.elapsed)
	s.elapsed = to
}
