package acquire

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// ErrNoReading is returned by Sense before the first cycle completes.
var ErrNoReading = errors.New("dht: no reading yet")

var _ physic.SenseEnv = (*Machine)(nil)

// String implements conn.Resource.
func (m *Machine) String() string {
	return "DHT22"
}

// Sense returns the latest reading. The machine reads on its own schedule,
// so Sense never blocks; it fails with the reading's error when the last
// cycle failed.
func (m *Machine) Sense(env *physic.Env) error {
	r, ok := m.Latest()
	if !ok {
		return ErrNoReading
	}
	if err := r.Err(); err != nil {
		return err
	}
	*env = r.Env()
	return nil
}

// SenseContinuous returns a channel receiving every valid reading. The
// sensor cannot be read faster than its cycle, so interval only has to be
// positive. A slow receiver misses readings rather than stalling the
// machine. Only one continuous sense may run at a time.
func (m *Machine) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, errors.New("dht: interval must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.continuous != nil {
		return nil, errors.New("dht: continuous sensing already running")
	}
	m.continuous = make(chan physic.Env, 1)
	return m.continuous, nil
}

// Precision returns the resolution of a reading: 0.1 %rH and 0.1 °C.
func (m *Machine) Precision(env *physic.Env) {
	env.Humidity = physic.MilliRH
	env.Temperature = physic.Celsius / 10
	env.Pressure = 0
}

// Halt stops continuous sensing and closes its channel. The acquisition
// cycle keeps running.
func (m *Machine) Halt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.continuous != nil {
		close(m.continuous)
		m.continuous = nil
	}
	return nil
}
