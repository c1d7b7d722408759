// Command dht-sensor reads a DHT22 humidity and temperature sensor on a GPIO
// line and publishes readings to MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/dht-sensor/internal/acquire"
	"github.com/sweeney/dht-sensor/internal/config"
	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/logic"
	"github.com/sweeney/dht-sensor/internal/metrics"
	"github.com/sweeney/dht-sensor/internal/mqtt"
	"github.com/sweeney/dht-sensor/internal/status"
	"github.com/sweeney/dht-sensor/internal/web"
)

func main() {
	def := config.Default()
	configPath := flag.String("config", "", "YAML config file (flags override its values)")
	broker := flag.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	debounce := flag.Duration("debounce", def.Health.Debounce, "Sensor health debounce duration")
	heartbeat := flag.Duration("heartbeat", def.Health.Heartbeat, "Heartbeat interval (0 to disable)")
	chip := flag.String("chip", def.Sensor.Chip, "GPIO chip of the data line")
	line := flag.Int("line", def.Sensor.Line, "GPIO line offset of the data line")
	simulate := flag.String("simulate", "", `Simulate the sensor: healthy, silent, hold-low, long-high, corrupt, truncate, late-response`)
	httpAddr := flag.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	printReading := flag.Bool("print-reading", false, "Print one reading and exit")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "debounce":
			cfg.Health.Debounce = *debounce
		case "heartbeat":
			cfg.Health.Heartbeat = *heartbeat
		case "chip":
			cfg.Sensor.Chip = *chip
		case "line":
			cfg.Sensor.Line = *line
		case "simulate":
			cfg.Sensor.Simulate = *simulate
		case "http":
			cfg.HTTP.Addr = *httpAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printReading bool) error {
	// The refresher calls onSecond from handler context, so it only signals.
	second := make(chan uint32, 1)
	onSecond := func(s uint32) {
		select {
		case second <- s:
		default:
		}
	}

	eng, err := newEngine(cfg, onSecond)
	if err != nil {
		return err
	}
	defer eng.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	eng.machine.Observe(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.start()
	done := make(chan error, 1)
	go func() { done <- eng.run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Print reading mode
	if printReading {
		r, err := firstReading(eng.machine, 5*time.Second)
		if err != nil {
			return err
		}
		fmt.Println(formatReading(r))
		return nil
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	} else {
		log.Printf("mqtt: disabled")
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:        cfg.Sensor.Chip,
		Line:        cfg.Sensor.Line,
		Simulate:    cfg.Sensor.Simulate != "",
		DebounceMs:  cfg.Health.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Health.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: chip=%s line=%d broker=%s debounce=%v heartbeat=%v",
		cfg.Sensor.Chip, cfg.Sensor.Line, cfg.MQTT.Broker, cfg.Health.Debounce, cfg.Health.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loop := &runLoop{
		src:        eng.machine,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		metrics:    m,
		detector:   logic.NewDetector(cfg.Health.Debounce, time.Now()),
		heartbeat:  cfg.Health.Heartbeat,
		now:        time.Now,
	}
	return loop.run(second, sigCh)
}

// firstReading waits for the first completed cycle.
func firstReading(src source, timeout time.Duration) (frame.Reading, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r, ok := src.Latest(); ok {
			return r, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return frame.Reading{}, acquire.ErrNoReading
}

func formatReading(r frame.Reading) string {
	if !r.Valid {
		return fmt.Sprintf("error: %s", r.Error)
	}
	return fmt.Sprintf("humidity: %.1f%%, temperature: %.1f°C", float64(r.Humidity)/10, float64(r.Temperature)/10)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
