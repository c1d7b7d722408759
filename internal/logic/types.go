// Package logic contains pure reporting logic for sensor health tracking.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Health is the debounced health of the sensor.
type Health string

const (
	HealthOK    Health = "OK"
	HealthFault Health = "FAULT"
)

// EventType represents a health transition event.
type EventType string

const (
	EventSensorOK    EventType = "SENSOR_OK"
	EventSensorFault EventType = "SENSOR_FAULT"
)

// Event represents a health transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Health    Health
	// Error is the error kind of the reading that completed the
	// transition, empty for SENSOR_OK.
	Error string
}

// HealthState tracks debounce state for the sensor.
type HealthState struct {
	// Current stable (debounced) health
	Stable Health
	// Pending health during debounce
	Pending Health
	// Time when pending health was first observed
	PendingSince time.Time
	// Whether we have established a baseline
	Baselined bool
}

// Input is the outcome of one acquisition cycle.
type Input struct {
	Valid bool
	Error string // error kind name when not valid
	Time  time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	SensorOK    int
	SensorFault int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
