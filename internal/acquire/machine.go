package acquire

import (
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/dht-sensor/internal/capture"
	"github.com/sweeney/dht-sensor/internal/frame"
	dhtgpio "github.com/sweeney/dht-sensor/internal/gpio"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// Machine is the acquisition state machine. Its transitions all run in the
// handler of one advance channel. The capture decoder is armed only between
// the release of the line and the end of the capture window; the machine
// reads the capture buffer only after disarming it.
//
// The published reading, counters and state are guarded by a mutex so that
// any goroutine may read them.
type Machine struct {
	cfg       Config
	sched     timer.Scheduler
	line      dhtgpio.Line
	decoder   *capture.Decoder
	refresher *Refresher
	advance   *timer.Channel

	// Handler context only.
	cycles int
	buf    capture.Buffer

	mu         sync.RWMutex
	state      State
	latest     frame.Reading
	lastValid  frame.Reading
	hasLatest  bool
	hasValid   bool
	stats      Stats
	observers  []Observer
	continuous chan physic.Env
}

// New registers the advance channel on sched. refresher may be nil.
// The caller routes the line's edges to decoder.OnEdge.
func New(cfg Config, sched timer.Scheduler, line dhtgpio.Line, decoder *capture.Decoder, refresher *Refresher) *Machine {
	m := &Machine{
		cfg:       cfg,
		sched:     sched,
		line:      line,
		decoder:   decoder,
		refresher: refresher,
	}
	m.advance = sched.Register(cfg.IdlePeriod, m.tick)
	return m
}

// Observe adds an observer of completed cycles. Call before Start.
func (m *Machine) Observe(o Observer) {
	m.observers = append(m.observers, o)
}

// Start enters Idle and arms the advance channel.
func (m *Machine) Start() {
	m.cycles = 0
	m.setState(Idle)
	m.advance.Start()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Latest returns the reading of the last completed cycle, and false before
// the first one completes.
func (m *Machine) Latest() (frame.Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.hasLatest
}

// LastValid returns the most recent valid reading, and false if there has
// never been one.
func (m *Machine) LastValid() (frame.Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastValid, m.hasValid
}

// Stats returns the cumulative counters.
func (m *Machine) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Config returns the calibration in use.
func (m *Machine) Config() Config {
	return m.cfg
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// tick is the advance channel handler.
func (m *Machine) tick(c *timer.Channel) {
	switch m.currentState() {
	case Idle:
		m.idle(c)
	case Requesting:
		m.request(c)
	case AwaitingHandshake:
		m.awaitHandshake(c)
	case Capturing:
		m.closeCapture(c)
	case Settling:
		m.settle(c)
	}
}

// currentState reads the state without locking. Only the handler writes it.
func (m *Machine) currentState() State {
	return m.state
}

func (m *Machine) idle(c *timer.Channel) {
	m.cycles++
	if m.cycles < m.cfg.IdleCycles {
		c.Rearm(m.cfg.IdlePeriod)
		return
	}
	if err := m.line.Drive(gpio.Low); err != nil {
		m.lineFault(c, "drive line low", err)
		return
	}
	m.setState(Requesting)
	c.Rearm(m.cfg.RequestPulse)
}

func (m *Machine) request(c *timer.Channel) {
	if err := m.line.Drive(gpio.High); err != nil {
		m.lineFault(c, "drive line high", err)
		return
	}
	timer.Spin(m.sched, m.cfg.ReleasePulse, m.cfg.SpinCeiling)

	if m.refresher != nil {
		m.refresher.Pause()
	}
	m.decoder.Arm()
	m.sched.Reset()
	if err := m.line.Release(); err != nil {
		m.lineFault(c, "release line", err)
		return
	}
	m.setState(AwaitingHandshake)
	// Every edge resets the counter, so absolute deadlines from here on
	// measure line silence.
	c.Arm(m.cfg.HandshakeTimeout)
}

func (m *Machine) awaitHandshake(c *timer.Channel) {
	b := m.decoder.Buffer()
	if b.Count == 0 || b.Full() {
		m.closeCapture(c)
		return
	}
	m.setState(Capturing)
	c.Arm(m.cfg.CaptureTimeout)
}

// closeCapture ends the capture window and records why it ended short.
func (m *Machine) closeCapture(c *timer.Channel) {
	m.decoder.Disarm()
	m.buf = m.decoder.Buffer()
	m.buf.Fault = m.classify(m.buf)
	m.setState(Settling)
	c.Rearm(m.cfg.SettleDelay)
}

func (m *Machine) classify(b capture.Buffer) frame.ErrorKind {
	if b.Count == 0 {
		return frame.NoHandshakeLow
	}
	if b.Full() {
		return frame.NoError
	}
	level, err := m.line.Read()
	if err == nil && level == gpio.Low {
		return frame.StuckLow
	}
	return frame.NoError
}

func (m *Machine) settle(c *timer.Channel) {
	m.publish(m.buf.Decode())
	m.finish(c)
}

// finish closes the cycle and goes back to Idle.
func (m *Machine) finish(c *timer.Channel) {
	if m.refresher != nil {
		m.refresher.Resume()
	}
	m.cycles = 0
	m.setState(Idle)
	c.Rearm(m.cfg.IdlePeriod)
}

// lineFault aborts the cycle after the host failed to control the line.
func (m *Machine) lineFault(c *timer.Channel, op string, err error) {
	log.Printf("dht: %s: %v", op, err)
	m.decoder.Disarm()
	// Leave the bus pulled up for the cooldown.
	if err := m.line.Release(); err != nil {
		log.Printf("dht: release line after fault: %v", err)
	}
	m.publish(frame.Reading{Error: frame.LineFault})
	m.finish(c)
}

// publish replaces the latest reading as a whole.
func (m *Machine) publish(r frame.Reading) {
	ds := m.decoder.Stats()

	m.mu.Lock()
	m.latest = r
	m.hasLatest = true
	if r.Valid {
		m.lastValid = r
		m.hasValid = true
	}
	m.stats.record(r)
	m.stats.Dropped = ds.Dropped
	m.stats.Stray = ds.Stray
	if r.Valid && m.continuous != nil {
		select {
		case m.continuous <- r.Env():
		default:
		}
	}
	m.mu.Unlock()

	for _, o := range m.observers {
		o.Observe(r)
	}
}
