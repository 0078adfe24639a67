// Package config loads daemon configuration from defaults, an optional YAML
// file, a .env file, AIRCON_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/aircon-controller/internal/display"
	"github.com/sweeney/aircon-controller/internal/gpio"
	"github.com/sweeney/aircon-controller/internal/logger"
	"github.com/sweeney/aircon-controller/internal/logic"
	"github.com/sweeney/aircon-controller/internal/mqtt"
	"github.com/sweeney/aircon-controller/internal/sensor"
	"github.com/sweeney/aircon-controller/internal/status"
)

// EnvPrefix namespaces environment overrides, e.g. AIRCON_CONTROL_SETPOINT.
const EnvPrefix = "AIRCON"

// Display modes.
const (
	DisplayLCD     = "lcd"
	DisplayConsole = "console"
	DisplayNone    = "none"
)

// Config is the complete daemon configuration.
type Config struct {
	LogLevel      string        `mapstructure:"log_level"`
	PrintState    bool          `mapstructure:"print_state"`
	HTTPAddr      string        `mapstructure:"http"`
	EvaluateEvery time.Duration `mapstructure:"evaluate_every"`
	CheckupEvery  time.Duration `mapstructure:"checkup_every"`

	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Control ControlConfig `mapstructure:"control"`
	GPIO    GPIOConfig    `mapstructure:"gpio"`
	Display DisplayConfig `mapstructure:"display"`
	Sensor  SensorConfig  `mapstructure:"sensor"`
	Labels  status.Labels `mapstructure:"labels"`
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker       string `mapstructure:"broker"`
	ClientPrefix string `mapstructure:"client_prefix"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Topic        string `mapstructure:"topic"`
	BufferSize   int    `mapstructure:"buffer_size"`
}

// ControlConfig holds the duty-cycle tuning.
type ControlConfig struct {
	Setpoint           float64       `mapstructure:"setpoint"`
	Hysteresis         float64       `mapstructure:"hysteresis"`
	StartupDelay       time.Duration `mapstructure:"startup_delay"`
	DefrostDelay       time.Duration `mapstructure:"defrost_delay"`
	CompressorMinOff   time.Duration `mapstructure:"compressor_min_off"`
	InitialTemperature float64       `mapstructure:"initial_temperature"`
}

// GPIOConfig describes the relay wiring.
type GPIOConfig struct {
	Chip                  string `mapstructure:"chip"`
	FanPin                int    `mapstructure:"fan_pin"`
	CompressorPin         int    `mapstructure:"compressor_pin"`
	FanFeedbackPin        int    `mapstructure:"fan_feedback_pin"`
	CompressorFeedbackPin int    `mapstructure:"compressor_feedback_pin"`
	ActiveLow             bool   `mapstructure:"active_low"`
}

// DisplayConfig selects and addresses the status panel.
type DisplayConfig struct {
	Mode         string        `mapstructure:"mode"`
	Bus          string        `mapstructure:"bus"`
	Addr         int           `mapstructure:"addr"`
	FailuresTrip uint32        `mapstructure:"failures_trip"`
	RetryAfter   time.Duration `mapstructure:"retry_after"`
}

// SensorConfig configures the optional local 1-Wire probe. An empty Device
// disables it.
type SensorConfig struct {
	Device     string        `mapstructure:"device"`
	Dir        string        `mapstructure:"dir"`
	Interval   time.Duration `mapstructure:"interval"`
	Fahrenheit bool          `mapstructure:"fahrenheit"`
}

func setDefaults(v *viper.Viper) {
	lc := logic.DefaultConfig()
	gc := gpio.DefaultConfig()
	labels := status.DefaultLabels()

	v.SetDefault("log_level", logger.InfoLevel)
	v.SetDefault("print_state", false)
	v.SetDefault("http", ":80")
	v.SetDefault("evaluate_every", 3*time.Minute)
	v.SetDefault("checkup_every", 5*time.Second)

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_prefix", "aircon")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", mqtt.DefaultControlTopic)
	v.SetDefault("mqtt.buffer_size", 32)

	v.SetDefault("control.setpoint", lc.Setpoint)
	v.SetDefault("control.hysteresis", lc.Hysteresis)
	v.SetDefault("control.startup_delay", lc.StartupDelay)
	v.SetDefault("control.defrost_delay", lc.DefrostDelay)
	v.SetDefault("control.compressor_min_off", lc.CompressorMinOff)
	v.SetDefault("control.initial_temperature", lc.InitialTemperature)

	v.SetDefault("gpio.chip", gc.Chip)
	v.SetDefault("gpio.fan_pin", gc.FanPin)
	v.SetDefault("gpio.compressor_pin", gc.CompressorPin)
	v.SetDefault("gpio.fan_feedback_pin", gc.FanFeedbackPin)
	v.SetDefault("gpio.compressor_feedback_pin", gc.CompressorFeedbackPin)
	v.SetDefault("gpio.active_low", gc.ActiveLow)

	v.SetDefault("display.mode", DisplayLCD)
	v.SetDefault("display.bus", display.DefaultI2CBus)
	v.SetDefault("display.addr", display.DefaultI2CAddr)
	v.SetDefault("display.failures_trip", 3)
	v.SetDefault("display.retry_after", time.Minute)

	v.SetDefault("sensor.device", "")
	v.SetDefault("sensor.dir", sensor.DefaultDir)
	v.SetDefault("sensor.interval", 30*time.Second)
	v.SetDefault("sensor.fahrenheit", true)

	v.SetDefault("labels.off", labels.Off)
	v.SetDefault("labels.idle", labels.Idle)
	v.SetDefault("labels.cooling", labels.Cooling)
	v.SetDefault("labels.defrosting", labels.Defrosting)
}

// flag name -> config key
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"print-state":    "print_state",
	"http":           "http",
	"broker":         "mqtt.broker",
	"topic":          "mqtt.topic",
	"setpoint":       "control.setpoint",
	"pin-fan":        "gpio.fan_pin",
	"pin-compressor": "gpio.compressor_pin",
	"active-low":     "gpio.active_low",
	"display":        "display.mode",
	"sensor":         "sensor.device",
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("aircon-controller", pflag.ContinueOnError)
	flags.String("config", "", "Path to a YAML config file")
	flags.String("env-file", ".env", "Path to a .env file (ignored if missing)")
	flags.String("log-level", logger.InfoLevel, "Log level (debug, info, warn, error)")
	flags.Bool("print-state", false, "Print relay states and exit")
	flags.String("http", ":80", "HTTP status address (empty to disable)")
	flags.String("broker", "tcp://localhost:1883", "MQTT broker address")
	flags.String("topic", mqtt.DefaultControlTopic, "MQTT control topic")
	flags.Float64("setpoint", logic.DefaultConfig().Setpoint, "Initial setpoint")
	flags.Int("pin-fan", gpio.PinFan, "BCM pin number for the fan relay")
	flags.Int("pin-compressor", gpio.PinCompressor, "BCM pin number for the compressor relay")
	flags.Bool("active-low", false, "Relay board energizes on a low level")
	flags.String("display", DisplayLCD, "Status display (lcd, console, none)")
	flags.String("sensor", "", "DS18B20 device ID for local temperature (empty to disable)")
	return flags
}

// Load parses args and assembles the configuration.
func Load(args []string) (Config, error) {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	path, _ := flags.GetString("config")
	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// readConfigFile reads an explicit file, or config.yaml from the usual
// places if one exists.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/aircon-controller")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	if c.EvaluateEvery <= 0 {
		return fmt.Errorf("evaluate_every must be > 0, got %v", c.EvaluateEvery)
	}
	if c.CheckupEvery <= 0 {
		return fmt.Errorf("checkup_every must be > 0, got %v", c.CheckupEvery)
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required")
	}
	if c.MQTT.Topic == "" {
		return errors.New("mqtt.topic is required")
	}
	if logic.ReadsAsCommand(c.MQTT.ClientPrefix) {
		return fmt.Errorf("mqtt.client_prefix %q reads as a command", c.MQTT.ClientPrefix)
	}
	if err := c.Logic().Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	if err := c.Relays().Validate(); err != nil {
		return fmt.Errorf("gpio: %w", err)
	}
	switch c.Display.Mode {
	case DisplayLCD, DisplayConsole, DisplayNone:
	default:
		return fmt.Errorf("display.mode %q is not one of lcd, console, none", c.Display.Mode)
	}
	if c.Sensor.Device != "" && c.Sensor.Interval <= 0 {
		return fmt.Errorf("sensor.interval must be > 0, got %v", c.Sensor.Interval)
	}
	if err := c.Labels.Validate(); err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	return nil
}

// Logic returns the controller tuning.
func (c Config) Logic() logic.Config {
	return logic.Config{
		Setpoint:           c.Control.Setpoint,
		Hysteresis:         c.Control.Hysteresis,
		StartupDelay:       c.Control.StartupDelay,
		DefrostDelay:       c.Control.DefrostDelay,
		CompressorMinOff:   c.Control.CompressorMinOff,
		InitialTemperature: c.Control.InitialTemperature,
	}
}

// Relays returns the relay wiring.
func (c Config) Relays() gpio.Config {
	return gpio.Config{
		Chip:                  c.GPIO.Chip,
		FanPin:                c.GPIO.FanPin,
		CompressorPin:         c.GPIO.CompressorPin,
		FanFeedbackPin:        c.GPIO.FanFeedbackPin,
		CompressorFeedbackPin: c.GPIO.CompressorFeedbackPin,
		ActiveLow:             c.GPIO.ActiveLow,
	}
}

// Status returns the configuration summary shown on the status page.
func (c Config) Status() status.Config {
	display := c.Display.Mode
	if display == DisplayNone {
		display = ""
	}
	return status.Config{
		Broker:             c.MQTT.Broker,
		ControlTopic:       c.MQTT.Topic,
		HTTPAddr:           c.HTTPAddr,
		EvaluateEveryMs:    c.EvaluateEvery.Milliseconds(),
		CheckupEveryMs:     c.CheckupEvery.Milliseconds(),
		StartupDelayMs:     c.Control.StartupDelay.Milliseconds(),
		DefrostDelayMs:     c.Control.DefrostDelay.Milliseconds(),
		CompressorMinOffMs: c.Control.CompressorMinOff.Milliseconds(),
		Hysteresis:         c.Control.Hysteresis,
		SensorEnabled:      c.Sensor.Device != "",
		Display:            display,
	}
}
