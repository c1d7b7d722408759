package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/frame"
)

func TestObserveValid(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(frame.Reading{Humidity: 512, Temperature: -101, Valid: true})

	if got := testutil.ToFloat64(m.Cycles); got != 1 {
		t.Errorf("cycles: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Valid); got != 1 {
		t.Errorf("valid: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Humidity); got != 51.2 {
		t.Errorf("humidity: got %v, want 51.2", got)
	}
	if got := testutil.ToFloat64(m.Temperature); got != -10.1 {
		t.Errorf("temperature: got %v, want -10.1", got)
	}
	if got := testutil.ToFloat64(m.LastValid); got != 1 {
		t.Errorf("last valid: got %v, want 1", got)
	}
}

func TestObserveFailureKeepsGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(frame.Reading{Humidity: 512, Temperature: 231, Valid: true})
	m.Observe(frame.Reading{Error: frame.ChecksumMismatch})
	m.Observe(frame.Reading{Error: frame.StuckLow})
	m.Observe(frame.Reading{Error: frame.StuckLow})

	if got := testutil.ToFloat64(m.Cycles); got != 4 {
		t.Errorf("cycles: got %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.Failures.WithLabelValues("STUCK_LOW")); got != 2 {
		t.Errorf("STUCK_LOW: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Failures.WithLabelValues("CHECKSUM_MISMATCH")); got != 1 {
		t.Errorf("CHECKSUM_MISMATCH: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Humidity); got != 51.2 {
		t.Errorf("humidity should keep the last valid value, got %v", got)
	}
	if got := testutil.ToFloat64(m.LastValid); got != 0 {
		t.Errorf("last valid: got %v, want 0", got)
	}
}

func TestFailureSeriesPrecreated(t *testing.T) {
	m := New(prometheus.NewRegistry())
	if got := testutil.CollectAndCount(m.Failures); got != len(frame.Kinds) {
		t.Errorf("failure series: got %d, want %d", got, len(frame.Kinds))
	}
}

func TestSetEdgeStats(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetEdgeStats(acquire.Stats{Dropped: 3, Stray: 9})

	if got := testutil.ToFloat64(m.Dropped); got != 3 {
		t.Errorf("dropped: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.Stray); got != 9 {
		t.Errorf("stray: got %v, want 9", got)
	}
}

func TestEdgeCountersOnlyIncrease(t *testing.T) {
	m := New(prometheus.NewRegistry())
	steps := []struct {
		name           string
		dropped, stray uint32
		wantD, wantS   float64
	}{
		{"first", 3, 9, 3, 9},
		{"unchanged", 3, 9, 3, 9},
		{"grows", 5, 10, 5, 10},
		{"decoder restart", 1, 0, 6, 10},
		{"after restart", 4, 2, 9, 12},
	}
	for _, st := range steps {
		m.SetEdgeStats(acquire.Stats{Dropped: st.dropped, Stray: st.stray})
		if got := testutil.ToFloat64(m.Dropped); got != st.wantD {
			t.Errorf("%s: dropped got %v, want %v", st.name, got, st.wantD)
		}
		if got := testutil.ToFloat64(m.Stray); got != st.wantS {
			t.Errorf("%s: stray got %v, want %v", st.name, got, st.wantS)
		}
	}
}

func TestEdgeCounterExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetEdgeStats(acquire.Stats{Dropped: 2, Stray: 7})

	expected := `
# HELP dht_dropped_edges_total Edges dropped because the capture buffer was full.
# TYPE dht_dropped_edges_total counter
dht_dropped_edges_total 2
# HELP dht_stray_edges_total Edges seen while no capture was armed.
# TYPE dht_stray_edges_total counter
dht_stray_edges_total 7
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dht_dropped_edges_total", "dht_stray_edges_total"); err != nil {
		t.Error(err)
	}
}

func TestExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(frame.Reading{Humidity: 400, Temperature: 200, Valid: true})

	expected := `
# HELP dht_cycles_total Completed acquisition cycles.
# TYPE dht_cycles_total counter
dht_cycles_total 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "dht_cycles_total"); err != nil {
		t.Error(err)
	}
}

func TestRegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
