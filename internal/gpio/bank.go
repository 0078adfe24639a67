package gpio

import (
	"fmt"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// line is the part of a requested GPIO line the relay bank needs.
type line interface {
	Value() (int, error)
	SetValue(v int) error

	// Park leaves an output de-energized and releases it.
	Park() error
	Close() error
}

type lineKind int

const (
	// lineDriven is a relay output claimed and driven off.
	lineDriven lineKind = iota
	// lineObserved is a relay output claimed without touching its level.
	lineObserved
	// lineFeedback is an auxiliary contact input.
	lineFeedback
)

type requestFunc func(pin int, kind lineKind) (line, error)

// bank holds the claimed lines for both relays.
type bank struct {
	out      map[logic.Actuator]line
	feedback map[logic.Actuator]line
	readOnly bool
}

func openBank(cfg Config, readOnly bool, request requestFunc) (*bank, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &bank{
		out:      make(map[logic.Actuator]line),
		feedback: make(map[logic.Actuator]line),
		readOnly: readOnly,
	}

	kind := lineDriven
	if readOnly {
		kind = lineObserved
	}

	pins := []struct {
		a        logic.Actuator
		pin      int
		feedback int
	}{
		{logic.ActuatorFan, cfg.FanPin, cfg.FanFeedbackPin},
		{logic.ActuatorCompressor, cfg.CompressorPin, cfg.CompressorFeedbackPin},
	}
	for _, p := range pins {
		l, err := request(p.pin, kind)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("request %s pin %d: %w", p.a, p.pin, err)
		}
		b.out[p.a] = l

		if p.feedback == NoFeedback {
			continue
		}
		fb, err := request(p.feedback, lineFeedback)
		if err != nil {
			b.close()
			return nil, fmt.Errorf("request %s feedback pin %d: %w", p.a, p.feedback, err)
		}
		b.feedback[p.a] = fb
	}

	return b, nil
}

// Set energizes or de-energizes the named relay.
func (b *bank) Set(a logic.Actuator, on bool) error {
	if b.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, a)
	}
	l, ok := b.out[a]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownActuator, a)
	}
	if err := l.SetValue(level(on)); err != nil {
		return fmt.Errorf("write %s pin: %w", a, err)
	}
	return nil
}

// Read returns the observed relay state: the feedback contact when wired,
// otherwise the level currently on the output line.
func (b *bank) Read(a logic.Actuator) (bool, error) {
	l, ok := b.feedback[a]
	if !ok {
		l, ok = b.out[a]
	}
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownActuator, a)
	}
	v, err := l.Value()
	if err != nil {
		return false, fmt.Errorf("read %s pin: %w", a, err)
	}
	return v == 1, nil
}

// close parks driven outputs, compressor before fan, and releases every line.
// Observed outputs are released at whatever level they had.
func (b *bank) close() []error {
	var errs []error

	for _, a := range []logic.Actuator{logic.ActuatorCompressor, logic.ActuatorFan} {
		l, ok := b.out[a]
		if !ok {
			continue
		}
		if b.readOnly {
			if err := l.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s pin: %w", a, err))
			}
			continue
		}
		if err := l.Park(); err != nil {
			errs = append(errs, fmt.Errorf("park %s pin: %w", a, err))
		}
	}
	for a, l := range b.feedback {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s feedback pin: %w", a, err))
		}
	}
	return errs
}
