// Command aircon-controller drives the fan and compressor relays of a
// window air conditioner and takes its orders over MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/aircon-controller/internal/config"
	"github.com/sweeney/aircon-controller/internal/display"
	"github.com/sweeney/aircon-controller/internal/gpio"
	"github.com/sweeney/aircon-controller/internal/logger"
	"github.com/sweeney/aircon-controller/internal/logic"
	"github.com/sweeney/aircon-controller/internal/metrics"
	"github.com/sweeney/aircon-controller/internal/mqtt"
	"github.com/sweeney/aircon-controller/internal/sensor"
	"github.com/sweeney/aircon-controller/internal/status"
	"github.com/sweeney/aircon-controller/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "aircon-controller: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("fatal", "err", err)
	}
}

func run(cfg config.Config, log *logger.Logger) error {
	if cfg.PrintState {
		relays, err := gpio.ObserveRealRelays(cfg.Relays())
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer relays.Close()
		return printState(os.Stdout, relays)
	}

	relays, err := gpio.NewRealRelays(cfg.Relays())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := relays.Close(); err != nil {
			log.Errorw("release relays", "err", err)
		}
	}()

	m := metrics.New()

	tracker := status.NewTracker(time.Now(), cfg.Status(), cfg.Labels)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	panel := openDisplay(cfg.Display, log.Named("display"))
	if panel != nil {
		defer panel.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan string, 16)
	temps := make(chan string, 16)
	forward := func(ch chan<- string) func(string) {
		return func(payload string) {
			select {
			case ch <- payload:
			case <-ctx.Done():
			}
		}
	}

	clientID := mqtt.NewClientID(cfg.MQTT.ClientPrefix)
	client := mqtt.NewClient(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: clientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topics:   mqtt.NewTopics(cfg.MQTT.Topic),
		Handlers: mqtt.Handlers{
			Command:     forward(commands),
			Temperature: forward(temps),
		},
		Online: func() []byte {
			return status.FormatStatusEvent(tracker.Snapshot(), "ONLINE", "")
		},
		BufferSize: cfg.MQTT.BufferSize,
		Logger:     log.Named("mqtt"),
	})
	defer client.Close()

	go func() {
		if err := client.Connect(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("mqtt connect gave up", "err", err)
		}
	}()

	var readings chan string
	if cfg.Sensor.Device != "" {
		readings = make(chan string, 4)
		poller := &sensor.Poller{
			Reader: sensor.W1Reader{
				Dir:        cfg.Sensor.Dir,
				Device:     cfg.Sensor.Device,
				Fahrenheit: cfg.Sensor.Fahrenheit,
			},
			Interval: cfg.Sensor.Interval,
			OnRead:   forward(readings),
			OnError: func(err error) {
				m.SensorError()
				log.Warnw("sensor read failed", "device", cfg.Sensor.Device, "err", err)
			},
		}
		go poller.Run(ctx)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started",
		"client_id", clientID,
		"broker", cfg.MQTT.Broker,
		"topic", cfg.MQTT.Topic,
		"setpoint", cfg.Control.Setpoint,
		"evaluate_every", cfg.EvaluateEvery,
		"checkup_every", cfg.CheckupEvery,
	)

	evaluate := time.NewTicker(cfg.EvaluateEvery)
	defer evaluate.Stop()
	checkup := time.NewTicker(cfg.CheckupEvery)
	defer checkup.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:    logic.NewController(cfg.Logic(), relays, time.Now()),
		pub:     client,
		conn:    client,
		tracker: tracker,
		panel:   panel,
		metrics: m,
		labels:  cfg.Labels,
		log:     log.Named("loop"),
		now:     time.Now,
		network: readNetworkInfo,
	}
	return l.run(inputs{
		evaluate: evaluate.C,
		checkup:  checkup.C,
		commands: commands,
		temps:    temps,
		readings: readings,
		sig:      sigCh,
		after:    time.After,
	})
}

// printState reports the relay levels and returns.
func printState(w io.Writer, relays logic.ActuatorPort) error {
	fan, err := relays.Read(logic.ActuatorFan)
	if err != nil {
		return fmt.Errorf("read fan: %w", err)
	}
	comp, err := relays.Read(logic.ActuatorCompressor)
	if err != nil {
		return fmt.Errorf("read compressor: %w", err)
	}
	fmt.Fprintf(w, "Fan: %s, Compressor: %s\n", stateString(fan), stateString(comp))
	return nil
}

// openDisplay returns the configured panel behind a circuit breaker, or nil.
// A missing LCD falls back to the console.
func openDisplay(cfg config.DisplayConfig, log *logger.Logger) display.Renderer {
	var r display.Renderer
	switch cfg.Mode {
	case config.DisplayNone:
		return nil
	case config.DisplayLCD:
		lcd, err := display.OpenLCD(cfg.Bus, cfg.Addr)
		if err != nil {
			log.Warnw("lcd unavailable, using console", "bus", cfg.Bus, "addr", cfg.Addr, "err", err)
			r = display.NewConsole(os.Stdout)
		} else {
			r = lcd
		}
	default:
		r = display.NewConsole(os.Stdout)
	}
	return display.NewGuarded("display", r, display.BreakerSettings{
		Failures: cfg.FailuresTrip,
		OpenFor:  cfg.RetryAfter,
		OnStateChange: func(from, to string) {
			log.Warnw("display breaker", "from", from, "to", to)
		},
	})
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

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
