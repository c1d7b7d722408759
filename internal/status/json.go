package status

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/sweeney/dht-sensor/internal/frame"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	Health         string       `json:"health"`
	Ready          bool         `json:"ready"`
	Reading        *ReadingJSON `json:"reading"`
	LastValid      *ReadingJSON `json:"last_valid"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	DisplaySeconds uint32       `json:"display_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// ReadingJSON is the JSON representation of a reading. Humidity is in
// percent and temperature in degrees Celsius; the tenths fields carry the
// raw integer values.
type ReadingJSON struct {
	Valid             bool    `json:"valid"`
	Error             string  `json:"error"`
	Humidity          float64 `json:"humidity"`
	Temperature       float64 `json:"temperature"`
	HumidityTenths    uint16  `json:"humidity_tenths"`
	TemperatureTenths int16   `json:"temperature_tenths"`
	Raw               string  `json:"raw"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of the acquisition counters.
type CountsJSON struct {
	Cycles              uint32            `json:"cycles"`
	Valid               uint32            `json:"valid"`
	ChecksumFailures    uint32            `json:"checksum_failures"`
	AcquisitionFailures uint32            `json:"acquisition_failures"`
	DroppedEdges        uint32            `json:"dropped_edges"`
	StrayEdges          uint32            `json:"stray_edges"`
	ByKind              map[string]uint32 `json:"by_kind"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Line        int    `json:"line"`
	Simulate    bool   `json:"simulate,omitempty"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

// NewReadingJSON converts a reading to its JSON form.
func NewReadingJSON(r frame.Reading) *ReadingJSON {
	return &ReadingJSON{
		Valid:             r.Valid,
		Error:             r.Error.String(),
		Humidity:          float64(r.Humidity) / 10,
		Temperature:       float64(r.Temperature) / 10,
		HumidityTenths:    r.Humidity,
		TemperatureTenths: r.Temperature,
		Raw:               hex.EncodeToString(r.Frame[:]),
	}
}

func buildInner(snap Snapshot) StatusInner {
	health := string(snap.Health)
	if health == "" {
		health = "UNKNOWN"
	}

	inner := StatusInner{
		State:          snap.State.String(),
		Health:         health,
		Ready:          snap.Baselined,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		DisplaySeconds: snap.Seconds,
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:         buildCounts(snap),
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Line:        snap.Config.Line,
			Simulate:    snap.Config.Simulate,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}
	if snap.HasLatest {
		inner.Reading = NewReadingJSON(snap.Latest)
	}
	if snap.HasValid {
		inner.LastValid = NewReadingJSON(snap.LastValid)
	}
	return inner
}

func buildCounts(snap Snapshot) CountsJSON {
	s := snap.Stats
	byKind := make(map[string]uint32, len(frame.Kinds))
	for _, k := range frame.Kinds {
		byKind[k.String()] = s.Failed(k)
	}
	return CountsJSON{
		Cycles:              s.Cycles,
		Valid:               s.Valid,
		ChecksumFailures:    s.ChecksumFailures,
		AcquisitionFailures: s.AcquisitionFailures,
		DroppedEdges:        s.Dropped,
		StrayEdges:          s.Stray,
		ByKind:              byKind,
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
