// Package status provides a thread-safe status tracker for the dht-sensor daemon.
// It is the surface the display side pulls from: HTTP handlers, the log line
// and MQTT status events all read a Snapshot.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Line        int
	Simulate    bool
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
}

// Sample is what the display pulls from the acquisition machine.
type Sample struct {
	Latest    frame.Reading
	HasLatest bool
	LastValid frame.Reading
	HasValid  bool
	Stats     acquire.Stats
	State     acquire.State
	// Seconds is the display-refresh second count.
	Seconds uint32
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Sample
	Health        logic.Health
	Baselined     bool
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the acquisition sample. Called once per display refresh.
func (t *Tracker) Update(s Sample) {
	t.mu.Lock()
	t.snap.Sample = s
	t.mu.Unlock()
}

// SetHealth sets the debounced sensor health.
func (t *Tracker) SetHealth(h logic.Health, baselined bool) {
	t.mu.Lock()
	t.snap.Health = h
	t.snap.Baselined = baselined
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
