// Package metrics exports acquisition counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/frame"
)

const namespace = "dht"

// Metrics holds the collectors for one sensor. It is an acquire.Observer:
// every completed cycle updates the counters and, when valid, the gauges.
type Metrics struct {
	Cycles      prometheus.Counter
	Valid       prometheus.Counter
	Failures    *prometheus.CounterVec
	Humidity    prometheus.Gauge
	Temperature prometheus.Gauge
	LastValid   prometheus.Gauge
	Dropped     prometheus.Counter
	Stray       prometheus.Counter

	// Decoder counts already added to Dropped and Stray.
	dropped, stray uint32
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed acquisition cycles.",
		}),
		Valid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valid_readings_total",
			Help:      "Cycles that produced a valid reading.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed cycles by error kind.",
		}, []string{"kind"}),
		Humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "humidity_percent",
			Help:      "Relative humidity of the last valid reading.",
		}),
		Temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Temperature of the last valid reading.",
		}),
		LastValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading_valid",
			Help:      "1 if the most recent cycle was valid, 0 otherwise.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_edges_total",
			Help:      "Edges dropped because the capture buffer was full.",
		}),
		Stray: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stray_edges_total",
			Help:      "Edges seen while no capture was armed.",
		}),
	}

	// Pre-create every kind so the series exist at zero.
	for _, k := range frame.Kinds {
		m.Failures.WithLabelValues(k.String())
	}

	reg.MustRegister(m.Cycles, m.Valid, m.Failures, m.Humidity, m.Temperature,
		m.LastValid, m.Dropped, m.Stray)
	return m
}

// Observe records one completed cycle.
func (m *Metrics) Observe(r frame.Reading) {
	m.Cycles.Inc()
	if !r.Valid {
		m.LastValid.Set(0)
		m.Failures.WithLabelValues(r.Error.String()).Inc()
		return
	}
	m.Valid.Inc()
	m.LastValid.Set(1)
	m.Humidity.Set(float64(r.Humidity) / 10)
	m.Temperature.Set(float64(r.Temperature) / 10)
}

// SetEdgeStats advances the edge counters to the capture decoder totals.
// A total lower than the last one seen is taken as a decoder restart.
func (m *Metrics) SetEdgeStats(s acquire.Stats) {
	m.dropped = advance(m.Dropped, m.dropped, s.Dropped)
	m.stray = advance(m.Stray, m.stray, s.Stray)
}

func advance(c prometheus.Counter, last, total uint32) uint32 {
	if total >= last {
		c.Add(float64(total - last))
	} else {
		c.Add(float64(total))
	}
	return total
}

var _ acquire.Observer = (*Metrics)(nil)
