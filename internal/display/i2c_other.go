//go:build !linux

package display

// OpenLCD returns ErrUnsupported on non-Linux platforms.
func OpenLCD(bus string, addr int) (*LCD, error) {
	return nil, ErrUnsupported
}
