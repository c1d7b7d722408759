// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sweeney/dht-sensor/internal/frame"
)

// Topic is the MQTT topic for sensor readings.
const Topic = "environment/dht22/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle and health events.
const TopicSystem = "environment/dht22/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ReadingEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ReadingEvent is one completed acquisition cycle.
type ReadingEvent struct {
	Timestamp           time.Time
	Reading             frame.Reading
	ChecksumFailures    uint32
	AcquisitionFailures uint32
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "SENSOR_FAULT"
	Reason     string // e.g., "SIGTERM", "STUCK_LOW"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload contains the reading details. Humidity and temperature are
// omitted when the reading is not valid.
type ReadingPayload struct {
	Timestamp           string   `json:"timestamp"`
	Valid               bool     `json:"valid"`
	Error               string   `json:"error"`
	Humidity            *float64 `json:"humidity,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	Raw                 string   `json:"raw"`
	ChecksumFailures    uint32   `json:"checksum_failures"`
	AcquisitionFailures uint32   `json:"acquisition_failures"`
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(event ReadingEvent) ([]byte, error) {
	r := event.Reading
	p := ReadingPayload{
		Timestamp:           event.Timestamp.UTC().Format(time.RFC3339),
		Valid:               r.Valid,
		Error:               r.Error.String(),
		Raw:                 hex.EncodeToString(r.Frame[:]),
		ChecksumFailures:    event.ChecksumFailures,
		AcquisitionFailures: event.AcquisitionFailures,
	}
	if r.Valid {
		h := float64(r.Humidity) / 10
		t := float64(r.Temperature) / 10
		p.Humidity = &h
		p.Temperature = &t
	}
	return json.Marshal(Payload{Reading: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. It stands in when no broker is
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ReadingEvent) error      { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
