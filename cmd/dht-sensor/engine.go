package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/capture"
	"github.com/sweeney/dht-sensor/internal/config"
	"github.com/sweeney/dht-sensor/internal/gpio"
	"github.com/sweeney/dht-sensor/internal/sim"
	"github.com/sweeney/dht-sensor/internal/timer"
)

// simStep is how much simulated time passes per pacing tick.
const simStep = 10 * time.Millisecond

// Simulated sensor values: 45.0 %rH, 21.5 °C.
const (
	simHumidity    = 450
	simTemperature = 215
)

// engine is an assembled acquisition stack, on hardware or simulated.
type engine struct {
	machine   *acquire.Machine
	refresher *acquire.Refresher
	line      gpio.Line

	// start arms the machine and the refresher.
	start func()
	// run drives the scheduler until ctx is done.
	run func(ctx context.Context) error
}

// Close releases the data line.
func (e *engine) Close() error {
	return e.line.Close()
}

func newRefresher(sched timer.Scheduler, cfg config.Config, onSecond func(uint32)) *acquire.Refresher {
	return acquire.NewRefresher(sched, cfg.Timing.RefreshPeriod, cfg.Timing.RefreshPerSecond, onSecond)
}

// newHardwareEngine reads a real sensor on the configured GPIO line.
// Edges are timestamped by the kernel and replayed into the decoder with the
// scheduler's interrupt lock held.
func newHardwareEngine(cfg config.Config, onSecond func(uint32)) (*engine, error) {
	host := timer.NewHost(clockwork.NewRealClock())
	decoder := capture.NewDecoder(host)

	line, err := gpio.NewRealLine(cfg.Sensor.Chip, cfg.Sensor.Line, func(at time.Time) {
		host.Interrupt(at, decoder.OnEdge)
	})
	if err != nil {
		return nil, fmt.Errorf("init gpio: %w", err)
	}

	refresher := newRefresher(host, cfg, onSecond)
	machine := acquire.New(cfg.Acquire(), host, line, decoder, refresher)

	return &engine{
		machine:   machine,
		refresher: refresher,
		line:      line,
		start: func() {
			host.Interrupt(time.Time{}, func() {
				refresher.Start()
				machine.Start()
			})
		},
		run: host.Run,
	}, nil
}

// newSimEngine reads a simulated sensor on a fake line. Simulated time is
// advanced in steps paced by clock, so the cycle runs at its real rate.
func newSimEngine(cfg config.Config, fault sim.Fault, clock clockwork.Clock, onSecond func(uint32)) *engine {
	counter := timer.NewSim()
	line := gpio.NewFakeLine()
	decoder := capture.NewDecoder(counter)
	line.OnEdge(func(time.Time) { decoder.OnEdge() })

	sensor := sim.NewSensor(counter, line)
	sensor.Set(simHumidity, simTemperature)
	sensor.SetFault(fault)

	refresher := newRefresher(counter, cfg, onSecond)
	machine := acquire.New(cfg.Acquire(), counter, line, decoder, refresher)

	return &engine{
		machine:   machine,
		refresher: refresher,
		line:      line,
		start: func() {
			refresher.Start()
			machine.Start()
		},
		run: func(ctx context.Context) error {
			return paceSim(ctx, clock, counter, simStep)
		},
	}
}

// paceSim advances counter by step every step of clock time.
func paceSim(ctx context.Context, clock clockwork.Clock, counter *timer.Sim, step time.Duration) error {
	ticker := clock.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			counter.Advance(uint64(step / time.Microsecond))
		}
	}
}

// newEngine picks hardware or simulation from the config.
func newEngine(cfg config.Config, onSecond func(uint32)) (*engine, error) {
	if cfg.Sensor.Simulate == "" {
		return newHardwareEngine(cfg, onSecond)
	}
	fault, ok := sim.ParseFault(cfg.Sensor.Simulate)
	if !ok {
		return nil, fmt.Errorf("unknown simulated fault %q", cfg.Sensor.Simulate)
	}
	log.Printf("dht: simulating sensor (%s)", fault)
	return newSimEngine(cfg, fault, clockwork.NewRealClock(), onSecond), nil
}
