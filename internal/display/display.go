// Package display renders the four-line status panel: the 20x4 character
// LCD on the unit and a console rendering for bench runs.
package display

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// Columns is the width of the character LCD.
const Columns = 20

// Lines is one frame of the status panel.
type Lines [4]string

// Renderer draws a frame.
type Renderer interface {
	Render(lines Lines) error
	Close() error
}

// ErrUnsupported is returned where the I2C bus is unavailable.
var ErrUnsupported = errors.New("display: i2c not supported on this platform (requires Linux)")

// Compose builds the panel for a report: task, time in state, temperature and
// setpoint.
func Compose(snap logic.Snapshot, task string) Lines {
	return Lines{
		"Status: " + task,
		"For: " + FormatElapsed(snap.ElapsedInState),
		"Current: " + formatTemp(snap.CurrentTemp),
		"Set: " + formatTemp(snap.Setpoint),
	}
}

// FormatElapsed renders d as HH:MM. Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	m := int64(d/time.Minute) % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// fit pads or truncates s to exactly Columns characters.
func fit(s string) string {
	if len(s) > Columns {
		return s[:Columns]
	}
	return fmt.Sprintf("%-*s", Columns, s)
}
