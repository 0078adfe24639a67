// Package status provides a thread-safe status tracker for the aircon daemon
// and the wire formats built from it.
// It is read by HTTP handlers and the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Broker             string
	ControlTopic       string
	HTTPAddr           string
	EvaluateEveryMs    int64
	CheckupEveryMs     int64
	StartupDelayMs     int64
	DefrostDelayMs     int64
	CompressorMinOffMs int64
	Hysteresis         float64
	SensorEnabled      bool
	Display            string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Controller    logic.Snapshot
	Counts        logic.Counts
	Reported      bool // false until the controller has produced its first report
	LastAlarm     string
	LastAlarmAt   time.Time
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
	Labels        Labels
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// ElapsedInState extrapolates the controller's state timer from its last
// report to Now.
func (s Snapshot) ElapsedInState() time.Duration {
	if !s.Reported {
		return 0
	}
	d := s.Controller.ElapsedInState + s.Now.Sub(s.Controller.Timestamp)
	if d < 0 {
		return s.Controller.ElapsedInState
	}
	return d
}

// Task returns the display label of the current duty.
func (s Snapshot) Task() string {
	return s.Labels.For(s.Controller.Duty)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, config and labels.
func NewTracker(startTime time.Time, cfg Config, labels Labels) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Controller: logic.Snapshot{Duty: logic.DutyOff},
			StartTime:  startTime,
			Config:     cfg,
			Labels:     labels,
		},
	}
}

// Update records the latest controller report and counters.
// Called from the run loop for every report.
func (t *Tracker) Update(snap logic.Snapshot, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Controller = snap
	t.snap.Counts = counts
	t.snap.Reported = true
	t.mu.Unlock()
}

// RecordAlarm remembers the most recent interlock alarm.
func (t *Tracker) RecordAlarm(message string, at time.Time) {
	t.mu.Lock()
	t.snap.LastAlarm = message
	t.snap.LastAlarmAt = at
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
