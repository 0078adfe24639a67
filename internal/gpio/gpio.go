// Package gpio drives the fan and compressor relays.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// Relays is the hardware side of logic.ActuatorPort plus resource cleanup.
type Relays interface {
	logic.ActuatorPort

	// Close drives both relays off and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	PinFan        = 23
	PinCompressor = 24
)

// NoFeedback means the relay state is read back from its own output line.
const NoFeedback = -1

// Config describes the relay wiring.
type Config struct {
	Chip          string
	FanPin        int
	CompressorPin int

	// Optional inputs wired to auxiliary relay contacts. When set, Read
	// reports these instead of the output line.
	FanFeedbackPin        int
	CompressorFeedbackPin int

	// ActiveLow inverts the outputs for relay boards that energize on a low
	// level.
	ActiveLow bool
}

// DefaultConfig matches the stock wiring: high = on, no feedback contacts.
func DefaultConfig() Config {
	return Config{
		Chip:                  "gpiochip0",
		FanPin:                PinFan,
		CompressorPin:         PinCompressor,
		FanFeedbackPin:        NoFeedback,
		CompressorFeedbackPin: NoFeedback,
	}
}

// Validate checks the pin assignments.
func (c Config) Validate() error {
	if c.FanPin < 0 || c.CompressorPin < 0 {
		return fmt.Errorf("relay pins must be >= 0 (fan=%d compressor=%d)", c.FanPin, c.CompressorPin)
	}
	if c.FanPin == c.CompressorPin {
		return fmt.Errorf("fan and compressor share pin %d", c.FanPin)
	}
	return nil
}

var (
	// ErrUnknownActuator is returned for an actuator name with no relay.
	ErrUnknownActuator = errors.New("gpio: unknown actuator")

	// ErrReadOnly is returned by Set on relays opened for observation only.
	ErrReadOnly = errors.New("gpio: relays opened read-only")

	// ErrUnsupported is returned where the GPIO character device is unavailable.
	ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")
)

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
