package logic

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCommand maps a raw control-channel payload onto a Command.
// Matching is case-sensitive. Anything containing "set" is a setpoint
// command whose value follows the last '-'. Unrecognized payloads yield
// CommandUnknown with a nil error so callers can ignore them silently.
func ParseCommand(raw string) (Command, error) {
	if strings.Contains(raw, "set") {
		i := strings.LastIndex(raw, "-")
		if i < 0 {
			return Command{}, fmt.Errorf("%w: %q has no '-'", ErrMalformedSetpoint, raw)
		}
		v, err := parseFinite(raw[i+1:])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %q: %v", ErrMalformedSetpoint, raw, err)
		}
		return Command{Kind: CommandSetpoint, Setpoint: v}, nil
	}

	switch raw {
	case "on":
		return Command{Kind: CommandOn}, nil
	case "off":
		return Command{Kind: CommandOff}, nil
	case "status":
		return Command{Kind: CommandStatus}, nil
	}
	return Command{Kind: CommandUnknown}, nil
}

// ReadsAsCommand reports whether text would be taken as a command if it
// appeared in a payload on the control channel.
func ReadsAsCommand(text string) bool {
	cmd, err := ParseCommand(text)
	return err != nil || cmd.Kind != CommandUnknown
}

// ParseTemperature parses a bare numeric temperature reading.
// No range is enforced; only non-numeric and non-finite input is rejected.
func ParseTemperature(raw string) (float64, error) {
	v, err := parseFinite(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedTemperature, raw, err)
	}
	return v, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}
