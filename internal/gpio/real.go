//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealRelays drives relays on actual hardware using the Linux GPIO character device.
type RealRelays struct {
	*bank
	chip *gpiocdev.Chip
}

// NewRealRelays requests the relay lines as outputs, initially off.
func NewRealRelays(cfg Config) (*RealRelays, error) {
	return openReal(cfg, false)
}

// ObserveRealRelays requests the relay lines without changing their level,
// for reading the state another process left behind. Set returns ErrReadOnly
// and Close leaves the relays as they are.
func ObserveRealRelays(cfg Config) (*RealRelays, error) {
	return openReal(cfg, true)
}

func openReal(cfg Config, readOnly bool) (*RealRelays, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b, err := openBank(cfg, readOnly, func(pin int, kind lineKind) (line, error) {
		return requestLine(chip, pin, kind, cfg.ActiveLow)
	})
	if err != nil {
		chip.Close()
		return nil, err
	}
	return &RealRelays{bank: b, chip: chip}, nil
}

func requestLine(chip *gpiocdev.Chip, pin int, kind lineKind, activeLow bool) (line, error) {
	var opts []gpiocdev.LineReqOption
	switch kind {
	case lineDriven:
		opts = append(opts, gpiocdev.AsOutput(0))
	case lineObserved:
		opts = append(opts, gpiocdev.AsIs)
	case lineFeedback:
		// Feedback contacts close to ground when the relay is energized.
		l, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		if err != nil {
			return nil, err
		}
		return &cdevLine{Line: l}, nil
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, err
	}
	return &cdevLine{Line: l, activeLow: activeLow}, nil
}

// cdevLine adapts a gpiocdev line to the relay bank.
type cdevLine struct {
	*gpiocdev.Line
	activeLow bool
}

// Park drives the output off, then reconfigures it as an input biased
// towards "off" (pull-down, or pull-up on active-low boards) so the relay
// board stays de-energized across a reboot.
func (l *cdevLine) Park() error {
	var errs []error

	bias := gpiocdev.WithPullDown
	if l.activeLow {
		bias = gpiocdev.WithPullUp
	}

	if err := l.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive off: %w", err))
	}
	if err := l.Reconfigure(gpiocdev.AsInput, bias); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure: %w", err))
	}
	if err := l.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}
	return nil
}

// Close drives the relays off and releases GPIO resources. Relays opened
// with ObserveRealRelays are released untouched.
func (r *RealRelays) Close() error {
	errs := r.bank.close()
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
