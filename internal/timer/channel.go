package timer

// Handler is called when a channel reaches its deadline.
//
// If the handler neither rearms, arms nor disarms the channel, the channel
// rearms itself one period after the deadline that fired. Handlers run in
// interrupt context and must not block.
type Handler func(c *Channel)

type owner interface {
	Counter
	changed()
}

// Channel is one compare channel. Channels are created by a Scheduler and
// must only be touched from a handler of the same scheduler, or before the
// scheduler starts running.
type Channel struct {
	id       int
	deadline Ticks
	period   Ticks
	enabled  bool
	touched  bool
	handler  Handler
	owner    owner
}

func newChannel(id int, period Ticks, h Handler, o owner) *Channel {
	return &Channel{id: id, period: period, handler: h, owner: o}
}

// ID returns the channel number, in registration order.
func (c *Channel) ID() int { return c.id }

// Deadline returns the counter value the channel fires at next.
func (c *Channel) Deadline() Ticks { return c.deadline }

// Period returns the current rearm period.
func (c *Channel) Period() Ticks { return c.period }

// Enabled reports whether the channel will fire.
func (c *Channel) Enabled() bool { return c.enabled }

// Start arms the channel one period from the current counter value.
func (c *Channel) Start() {
	c.Arm(c.owner.Now() + c.period)
}

// Arm programs an absolute deadline and enables the channel.
func (c *Channel) Arm(deadline Ticks) {
	c.deadline = deadline
	c.enabled = true
	c.touched = true
	c.owner.changed()
}

// Rearm sets a new period and moves the deadline forward by it. Called from
// the channel's own handler it is measured from the deadline that fired, so
// handler latency does not accumulate.
func (c *Channel) Rearm(period Ticks) {
	c.period = period
	c.Arm(c.deadline + period)
}

// Disarm stops the channel. It stays silent until armed again.
func (c *Channel) Disarm() {
	c.enabled = false
	c.touched = true
	c.owner.changed()
}

func (c *Channel) fire() {
	c.touched = false
	c.handler(c)
	if !c.touched && c.enabled {
		c.deadline += c.period
	}
}
