// Package config loads the daemon configuration and timing calibration from
// a YAML file. Missing keys keep their default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/gpio"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// Config is the complete daemon configuration.
type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	Timing TimingConfig `yaml:"timing"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
	Health HealthConfig `yaml:"health"`
}

// SensorConfig selects the data line.
type SensorConfig struct {
	Chip string `yaml:"chip"`
	Line int    `yaml:"line"`
	// Simulate names a simulated sensor fault ("healthy", "hold-low", ...).
	// Empty means real hardware.
	Simulate string `yaml:"simulate"`
}

// TimingConfig is the read cycle calibration, in counter ticks.
type TimingConfig struct {
	IdlePeriod       timer.Ticks `yaml:"idle_period"`
	IdleCycles       int         `yaml:"idle_cycles"`
	RequestPulse     timer.Ticks `yaml:"request_pulse"`
	ReleasePulse     timer.Ticks `yaml:"release_pulse"`
	SpinCeiling      int         `yaml:"spin_ceiling"`
	HandshakeTimeout timer.Ticks `yaml:"handshake_timeout"`
	CaptureTimeout   timer.Ticks `yaml:"capture_timeout"`
	SettleDelay      timer.Ticks `yaml:"settle_delay"`
	// RefreshPeriod is the display refresh channel period; RefreshPerSecond
	// of its ticks make one second.
	RefreshPeriod    timer.Ticks `yaml:"refresh_period"`
	RefreshPerSecond int         `yaml:"refresh_per_second"`
}

// MQTTConfig is the broker connection.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// HTTPConfig is the status server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// HealthConfig tunes health reporting.
type HealthConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Default returns the reference configuration.
func Default() Config {
	a := acquire.DefaultConfig()
	return Config{
		Sensor: SensorConfig{
			Chip: gpio.DefaultChip,
			Line: gpio.DefaultPin,
		},
		Timing: TimingConfig{
			IdlePeriod:       a.IdlePeriod,
			IdleCycles:       a.IdleCycles,
			RequestPulse:     a.RequestPulse,
			ReleasePulse:     a.ReleasePulse,
			SpinCeiling:      a.SpinCeiling,
			HandshakeTimeout: a.HandshakeTimeout,
			CaptureTimeout:   a.CaptureTimeout,
			SettleDelay:      a.SettleDelay,
			RefreshPeriod:    10000,
			RefreshPerSecond: 100,
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "dht-sensor",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Health: HealthConfig{
			Debounce:  10 * time.Second,
			Heartbeat: 15 * time.Minute,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every scheduled wait fits in the counter horizon.
func (c Config) Validate() error {
	t := c.Timing
	waits := []struct {
		name string
		v    timer.Ticks
	}{
		{"idle_period", t.IdlePeriod},
		{"request_pulse", t.RequestPulse},
		{"handshake_timeout", t.HandshakeTimeout},
		{"capture_timeout", t.CaptureTimeout},
		{"settle_delay", t.SettleDelay},
		{"refresh_period", t.RefreshPeriod},
	}
	var errs []error
	for _, w := range waits {
		if w.v == 0 || w.v >= timer.Horizon {
			errs = append(errs, fmt.Errorf("timing.%s must be between 1 and %d, got %d", w.name, timer.Horizon-1, w.v))
		}
	}
	if t.IdleCycles < 1 {
		errs = append(errs, fmt.Errorf("timing.idle_cycles must be positive, got %d", t.IdleCycles))
	}
	if t.SpinCeiling < 1 {
		errs = append(errs, fmt.Errorf("timing.spin_ceiling must be positive, got %d", t.SpinCeiling))
	}
	if t.RefreshPerSecond < 1 {
		errs = append(errs, fmt.Errorf("timing.refresh_per_second must be positive, got %d", t.RefreshPerSecond))
	}
	if c.Sensor.Line < 0 {
		errs = append(errs, fmt.Errorf("sensor.line must not be negative, got %d", c.Sensor.Line))
	}
	if c.Health.Heartbeat < 0 || c.Health.Debounce < 0 {
		errs = append(errs, errors.New("health durations must not be negative"))
	}
	return errors.Join(errs...)
}

// Acquire returns the acquisition calibration.
func (c Config) Acquire() acquire.Config {
	t := c.Timing
	return acquire.Config{
		IdlePeriod:       t.IdlePeriod,
		IdleCycles:       t.IdleCycles,
		RequestPulse:     t.RequestPulse,
		ReleasePulse:     t.ReleasePulse,
		SpinCeiling:      t.SpinCeiling,
		HandshakeTimeout: t.HandshakeTimeout,
		CaptureTimeout:   t.CaptureTimeout,
		SettleDelay:      t.SettleDelay,
	}
}
