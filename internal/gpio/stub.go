//go:build !linux

package gpio

import "github.com/sweeney/aircon-controller/internal/logic"

// RealRelays is not available on non-Linux platforms.
type RealRelays struct{}

// NewRealRelays returns ErrUnsupported on non-Linux platforms.
func NewRealRelays(cfg Config) (*RealRelays, error) {
	return nil, ErrUnsupported
}

// ObserveRealRelays returns ErrUnsupported on non-Linux platforms.
func ObserveRealRelays(cfg Config) (*RealRelays, error) {
	return nil, ErrUnsupported
}

// Set is not implemented on non-Linux platforms.
func (r *RealRelays) Set(a logic.Actuator, on bool) error {
	return ErrUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RealRelays) Read(a logic.Actuator) (bool, error) {
	return false, ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelays) Close() error {
	return nil
}
