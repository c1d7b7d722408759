package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/logic"
	"github.com/sweeney/dht-sensor/internal/metrics"
	"github.com/sweeney/dht-sensor/internal/mqtt"
	"github.com/sweeney/dht-sensor/internal/status"
)

// source is what the display side pulls from the acquisition machine.
type source interface {
	Latest() (frame.Reading, bool)
	LastValid() (frame.Reading, bool)
	Stats() acquire.Stats
	State() acquire.State
}

// runLoop is the display side: once per refresh second it pulls the latest
// reading and fans it out to the log, MQTT, the status tracker and metrics.
type runLoop struct {
	src        source
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	detector   *logic.Detector
	heartbeat  time.Duration
	now        func() time.Time

	// seen is the cycle count of the last reading handled.
	seen uint32
}

// run handles refresh seconds until a signal arrives.
func (l *runLoop) run(second <-chan uint32, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case sec := <-second:
			l.refresh(sec)
		}
	}
}

func (l *runLoop) refresh(sec uint32) {
	t := l.now()
	stats := l.src.Stats()
	latest, hasLatest := l.src.Latest()
	lastValid, hasValid := l.src.LastValid()

	l.tracker.Update(status.Sample{
		Latest:    latest,
		HasLatest: hasLatest,
		LastValid: lastValid,
		HasValid:  hasValid,
		Stats:     stats,
		State:     l.src.State(),
		Seconds:   sec,
	})
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.metrics != nil {
		l.metrics.SetEdgeStats(stats)
	}

	if hasLatest && stats.Cycles != l.seen {
		l.seen = stats.Cycles
		l.handleReading(t, latest, stats)
	}

	// Check for heartbeat
	if hbData := l.detector.CheckHeartbeat(t, l.heartbeat); hbData != nil {
		log.Printf("heartbeat: uptime=%v cycles=%d valid=%d checksum_failures=%d acquisition_failures=%d",
			hbData.Uptime, stats.Cycles, stats.Valid, stats.ChecksumFailures, stats.AcquisitionFailures)

		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		snap := l.tracker.Snapshot()
		hbEvent := mqtt.SystemEvent{
			Timestamp:  hbData.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		}
		if err := l.publisher.PublishSystem(hbEvent); err != nil {
			log.Printf("heartbeat publish error: %v", err)
		}
	}
}

func (l *runLoop) handleReading(t time.Time, r frame.Reading, stats acquire.Stats) {
	if r.Valid {
		log.Printf("reading: humidity=%.1f%% temperature=%.1fC", float64(r.Humidity)/10, float64(r.Temperature)/10)
	} else {
		log.Printf("reading failed: %s (checksum_failures=%d acquisition_failures=%d)",
			r.Error, stats.ChecksumFailures, stats.AcquisitionFailures)
	}

	event := mqtt.ReadingEvent{
		Timestamp:           t,
		Reading:             r,
		ChecksumFailures:    stats.ChecksumFailures,
		AcquisitionFailures: stats.AcquisitionFailures,
	}
	if err := l.publisher.Publish(event); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}

	input := logic.Input{Valid: r.Valid, Time: t}
	if !r.Valid {
		input.Error = r.Error.String()
	}
	events := l.detector.Process(input)
	l.tracker.SetHealth(l.detector.CurrentHealth(), l.detector.IsBaselined())

	for _, e := range events {
		log.Printf("event: %s", e.Type)
		snap := l.tracker.Snapshot()
		sysEvent := mqtt.SystemEvent{
			Timestamp:  e.Timestamp,
			Event:      string(e.Type),
			Reason:     e.Error,
			RawPayload: status.FormatStatusEvent(snap, string(e.Type), e.Error),
		}
		if err := l.publisher.PublishSystem(sysEvent); err != nil {
			log.Printf("publish system error: %v", err)
		}
	}
}

func (l *runLoop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      "SHUTDOWN",
		Reason:     signalName,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}
