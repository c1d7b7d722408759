package logic

import "time"

// Detector debounces sensor health. A single failed cycle is normal for
// this sensor; the health only changes once the new outcome has persisted
// for the debounce duration.
type Detector struct {
	debounceDuration time.Duration
	health           HealthState
	startTime        time.Time
	eventCounts      EventCounts
	lastHeartbeat    time.Time
}

// NewDetector creates a new health detector with the given debounce duration.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(debounceDuration time.Duration, startTime time.Time) *Detector {
	return &Detector{
		debounceDuration: debounceDuration,
		startTime:        startTime,
		lastHeartbeat:    startTime,
	}
}

// Process takes the outcome of a cycle and returns any events that should be
// emitted. Events are only returned after baseline is established and on
// health transitions.
func (d *Detector) Process(input Input) []Event {
	h := &d.health
	next := validToHealth(input.Valid)

	// First outcomes: establish a baseline
	if !h.Baselined {
		if h.Pending != next {
			h.Pending = next
			h.PendingSince = input.Time
			return nil
		}
		if input.Time.Sub(h.PendingSince) >= d.debounceDuration {
			h.Stable = next
			h.Baselined = true
			h.Pending = ""
		}
		return nil
	}

	if next == h.Stable {
		h.Pending = ""
		return nil
	}

	if h.Pending != next {
		h.Pending = next
		h.PendingSince = input.Time
		return nil
	}

	if input.Time.Sub(h.PendingSince) < d.debounceDuration {
		return nil
	}

	h.Stable = next
	h.Pending = ""
	e := Event{
		Timestamp: input.Time,
		Type:      eventTypeForHealth(next),
		Health:    next,
	}
	if next == HealthFault {
		e.Error = input.Error
		d.eventCounts.SensorFault++
	} else {
		d.eventCounts.SensorOK++
	}
	return []Event{e}
}

func validToHealth(valid bool) Health {
	if valid {
		return HealthOK
	}
	return HealthFault
}

func eventTypeForHealth(h Health) EventType {
	if h == HealthOK {
		return EventSensorOK
	}
	return EventSensorFault
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.health.Baselined
}

// CurrentHealth returns the current stable health, empty before baseline.
func (d *Detector) CurrentHealth() Health {
	return d.health.Stable
}

// Counts returns the event counts since startup.
func (d *Detector) Counts() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.health.Baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
