// Package sensor reads a DS18B20 1-Wire temperature probe through the
// kernel's w1_therm sysfs interface and feeds readings to the controller.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultDir is where the w1 bus master exposes slave devices.
const DefaultDir = "/sys/bus/w1/devices"

var (
	// ErrCRC is returned when the probe reports a checksum failure.
	ErrCRC = errors.New("sensor: crc check failed")
	// ErrMalformed is returned when w1_slave output cannot be parsed.
	ErrMalformed = errors.New("sensor: malformed reading")
)

// Reader returns one temperature reading.
type Reader interface {
	Read() (float64, error)
}

// W1Reader reads <Dir>/<Device>/w1_slave.
type W1Reader struct {
	Dir        string
	Device     string
	Fahrenheit bool
}

// Path returns the sysfs file the reader opens.
func (r W1Reader) Path() string {
	dir := r.Dir
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, r.Device, "w1_slave")
}

// Read returns the current temperature rounded to 0.1 degree.
func (r W1Reader) Read() (float64, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		return 0, fmt.Errorf("sensor: %w", err)
	}
	c, err := ParseW1Slave(string(data))
	if err != nil {
		return 0, err
	}
	if r.Fahrenheit {
		c = c*9/5 + 32
	}
	return math.Round(c*10) / 10, nil
}

// ParseW1Slave parses w1_therm output and returns degrees Celsius.
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func ParseW1Slave(s string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("%w: want 2 lines, got %d", ErrMalformed, len(lines))
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRC
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, fmt.Errorf("%w: no t= field", ErrMalformed)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][i+2:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return float64(milli) / 1000, nil
}

// Format renders a reading the way temperature payloads travel on MQTT.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Poller reads on a fixed interval, starting immediately.
type Poller struct {
	Reader   Reader
	Interval time.Duration
	OnRead   func(string)
	OnError  func(error)
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	v, err := p.Reader.Read()
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	if p.OnRead != nil {
		p.OnRead(Format(v))
	}
}
