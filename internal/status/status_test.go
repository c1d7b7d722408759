package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/logic"
)

func validReading() frame.Reading {
	f := frame.NewFrame(512, 231)
	return frame.Reading{Humidity: 512, Temperature: 231, Valid: true, Frame: f}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Chip: "gpiochip0", Line: 4, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.Line != 4 {
		t.Errorf("Config.Line: got %d, want 4", snap.Config.Line)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.HasLatest {
		t.Error("expected HasLatest=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	stats := acquire.Stats{Cycles: 3, Valid: 2, ChecksumFailures: 1}
	tr.Update(Sample{Latest: validReading(), HasLatest: true, Stats: stats, State: acquire.Capturing, Seconds: 7})
	tr.SetHealth(logic.HealthOK, true)

	snap := tr.Snapshot()
	if !snap.HasLatest || snap.Latest.Humidity != 512 {
		t.Errorf("Latest: got %+v", snap.Latest)
	}
	if snap.Stats.Cycles != 3 {
		t.Errorf("Stats.Cycles: got %d, want 3", snap.Stats.Cycles)
	}
	if snap.State != acquire.Capturing {
		t.Errorf("State: got %s, want CAPTURING", snap.State)
	}
	if snap.Seconds != 7 {
		t.Errorf("Seconds: got %d, want 7", snap.Seconds)
	}
	if snap.Health != logic.HealthOK || !snap.Baselined {
		t.Errorf("Health: got %s baselined=%v", snap.Health, snap.Baselined)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(15 * time.Minute)}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(Sample{Latest: validReading(), HasLatest: true})

	snap1 := tr.Snapshot()
	tr.Update(Sample{Latest: frame.Reading{Error: frame.StuckLow}, HasLatest: true})

	if !snap1.Latest.Valid {
		t.Error("snapshot should be a copy; Latest was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stats := acquire.Stats{Cycles: 10, Valid: 7, ChecksumFailures: 1, AcquisitionFailures: 2, Stray: 4}
	stats.Failures[frame.ChecksumMismatch] = 1
	stats.Failures[frame.NoHandshakeLow] = 2
	snap := Snapshot{
		Sample: Sample{
			Latest:    frame.Reading{Error: frame.NoHandshakeLow},
			HasLatest: true,
			LastValid: validReading(),
			HasValid:  true,
			Stats:     stats,
			State:     acquire.Idle,
			Seconds:   42,
		},
		Health:        logic.HealthOK,
		Baselined:     true,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Chip: "gpiochip0", Line: 4, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", s.State)
	}
	if s.Health != "OK" || !s.Ready {
		t.Errorf("Health: got %q ready=%v", s.Health, s.Ready)
	}
	if s.Reading == nil || s.Reading.Valid || s.Reading.Error != "NO_HANDSHAKE_LOW" {
		t.Errorf("Reading: got %+v", s.Reading)
	}
	if s.LastValid == nil || s.LastValid.Humidity != 51.2 || s.LastValid.Temperature != 23.1 {
		t.Errorf("LastValid: got %+v", s.LastValid)
	}
	if s.LastValid.Raw != "020000e7e9" {
		t.Errorf("LastValid.Raw: got %q", s.LastValid.Raw)
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.DisplaySeconds != 42 {
		t.Errorf("DisplaySeconds: got %d, want 42", s.DisplaySeconds)
	}
	if s.Counts.Cycles != 10 || s.Counts.ChecksumFailures != 1 || s.Counts.AcquisitionFailures != 2 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Counts.ByKind["NO_HANDSHAKE_LOW"] != 2 {
		t.Errorf("ByKind[NO_HANDSHAKE_LOW]: got %d, want 2", s.Counts.ByKind["NO_HANDSHAKE_LOW"])
	}
	if len(s.Counts.ByKind) != len(frame.Kinds) {
		t.Errorf("ByKind: got %d kinds, want %d", len(s.Counts.ByKind), len(frame.Kinds))
	}
	if s.Counts.StrayEdges != 4 {
		t.Errorf("StrayEdges: got %d, want 4", s.Counts.StrayEdges)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.Event != "" || s.Reason != "" {
		t.Errorf("expected empty event/reason for web format, got %q/%q", s.Event, s.Reason)
	}
}

func TestFormatJSONBeforeFirstReading(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := raw["status"].(map[string]interface{})
	if status["reading"] != nil {
		t.Errorf("reading: got %v, want null", status["reading"])
	}
	if status["health"] != "UNKNOWN" {
		t.Errorf("health: got %v, want UNKNOWN", status["health"])
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Sample:    Sample{Latest: validReading(), HasLatest: true},
		Health:    logic.HealthOK,
		Baselined: true,
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}

	data = FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	var parsed StatusJSON
	json.Unmarshal(data, &parsed)
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestNegativeTemperatureJSON(t *testing.T) {
	r := NewReadingJSON(frame.Reading{Humidity: 875, Temperature: -101, Valid: true})
	if r.Temperature != -10.1 {
		t.Errorf("Temperature: got %v, want -10.1", r.Temperature)
	}
	if r.TemperatureTenths != -101 {
		t.Errorf("TemperatureTenths: got %d, want -101", r.TemperatureTenths)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(Sample{Stats: acquire.Stats{Cycles: uint32(i)}, HasLatest: true})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetHealth(logic.HealthFault, true)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
