package display

import (
	"fmt"
	"io"
	"time"
)

// HD44780 over a PCF8574 I2C backpack, 4-bit mode.
const (
	DefaultI2CBus  = "/dev/i2c-1"
	DefaultI2CAddr = 0x27

	lcdEnable    = 0x04
	lcdBacklight = 0x08
	modeCommand  = 0x00
	modeData     = 0x01
)

// DDRAM start address of each row.
var lineAddr = [4]byte{0x80, 0xC0, 0x94, 0xD4}

// Function set, display on, clear, entry mode.
var initSequence = []byte{0x03, 0x03, 0x03, 0x02, 0x28, 0x0C, 0x01, 0x06}

// LCD drives a 20x4 character display. Every Render re-initializes the
// controller so a panel that was power-cycled recovers on the next frame.
type LCD struct {
	w     io.Writer
	c     io.Closer
	sleep func(time.Duration)
}

// NewLCD wraps an already addressed I2C device. If w is also an io.Closer it
// is closed by Close.
func NewLCD(w io.Writer) *LCD {
	l := &LCD{w: w, sleep: time.Sleep}
	if c, ok := w.(io.Closer); ok {
		l.c = c
	}
	return l
}

// Render writes the four lines.
func (l *LCD) Render(lines Lines) error {
	var buf []byte
	for _, b := range initSequence {
		buf = appendByte(buf, b, modeCommand)
	}
	if _, err := l.w.Write(buf); err != nil {
		return fmt.Errorf("lcd init: %w", err)
	}
	// Clear display needs 1.52ms before the next command.
	l.sleep(2 * time.Millisecond)

	for i, line := range lines {
		buf = appendByte(buf[:0], lineAddr[i], modeCommand)
		for _, ch := range []byte(fit(line)) {
			buf = appendByte(buf, ch, modeData)
		}
		if _, err := l.w.Write(buf); err != nil {
			return fmt.Errorf("lcd line %d: %w", i+1, err)
		}
	}
	return nil
}

// Close releases the underlying device.
func (l *LCD) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}

// appendByte sends one byte as two nibbles, each latched by an enable pulse.
func appendByte(buf []byte, b, mode byte) []byte {
	buf = appendNibble(buf, mode|(b&0xF0))
	return appendNibble(buf, mode|((b<<4)&0xF0))
}

func appendNibble(buf []byte, data byte) []byte {
	return append(buf,
		data|lcdBacklight,
		data|lcdEnable|lcdBacklight,
		(data&^lcdEnable)|lcdBacklight,
	)
}
