package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Enabled       bool         `json:"enabled"`
	Task          string       `json:"task"`
	Duty          string       `json:"duty"`
	RuntimeMs     int64        `json:"runtime_ms"`
	Fan           bool         `json:"fan"`
	Compressor    bool         `json:"compressor"`
	Temp          float64      `json:"temp"`
	Setpoint      float64      `json:"setpoint"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	LastAlarm     *AlarmJSON   `json:"last_alarm,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of controller counters.
type CountsJSON struct {
	Transitions      int `json:"transitions"`
	EStops           int `json:"estops"`
	StartupsAborted  int `json:"startups_aborted"`
	ShutdownsAborted int `json:"shutdowns_aborted"`
	Faults           int `json:"faults"`
}

// AlarmJSON is the most recent interlock alarm.
type AlarmJSON struct {
	Message string `json:"message"`
	At      string `json:"at"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	EvaluateEveryMs    int64   `json:"evaluate_every_ms"`
	CheckupEveryMs     int64   `json:"checkup_every_ms"`
	StartupDelayMs     int64   `json:"startup_delay_ms"`
	DefrostDelayMs     int64   `json:"defrost_delay_ms"`
	CompressorMinOffMs int64   `json:"compressor_min_off_ms"`
	Hysteresis         float64 `json:"hysteresis"`
	Broker             string  `json:"broker"`
	HTTPAddr           string  `json:"http_addr"`
	SensorEnabled      bool    `json:"sensor_enabled"`
	Display            string  `json:"display,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Controller
	inner := StatusInner{
		Enabled:       c.Enabled,
		Task:          snap.Task(),
		Duty:          string(c.Duty),
		RuntimeMs:     snap.ElapsedInState().Milliseconds(),
		Fan:           c.Fan,
		Compressor:    c.Compressor,
		Temp:          c.CurrentTemp,
		Setpoint:      c.Setpoint,
		Ready:         snap.Reported,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.ControlTopic,
		},
		Counts: CountsJSON{
			Transitions:      snap.Counts.Transitions,
			EStops:           snap.Counts.EStops,
			StartupsAborted:  snap.Counts.StartupsAborted,
			ShutdownsAborted: snap.Counts.ShutdownsAborted,
			Faults:           snap.Counts.Faults,
		},
		Config: ConfigJSON{
			EvaluateEveryMs:    snap.Config.EvaluateEveryMs,
			CheckupEveryMs:     snap.Config.CheckupEveryMs,
			StartupDelayMs:     snap.Config.StartupDelayMs,
			DefrostDelayMs:     snap.Config.DefrostDelayMs,
			CompressorMinOffMs: snap.Config.CompressorMinOffMs,
			Hysteresis:         snap.Config.Hysteresis,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
			SensorEnabled:      snap.Config.SensorEnabled,
			Display:            snap.Config.Display,
		},
	}
	if snap.LastAlarm != "" {
		inner.LastAlarm = &AlarmJSON{
			Message: snap.LastAlarm,
			At:      snap.LastAlarmAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
