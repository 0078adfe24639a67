// Package mqtt connects the controller to the broker: it routes inbound
// commands and temperature readings and publishes reports, alarms and
// lifecycle events, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// DefaultControlTopic is the command/report topic of the stock deployment.
const DefaultControlTopic = "pi9_aircon"

// Topics names the three topics the controller uses.
type Topics struct {
	// Control carries inbound commands and outbound reports, alarms and the
	// online greeting.
	Control string

	// Temperature carries bare numeric readings.
	Temperature string

	// System carries retained lifecycle events and the last will.
	System string
}

// NewTopics derives the temperature and system topics from the control topic.
func NewTopics(control string) Topics {
	return Topics{
		Control:     control,
		Temperature: control + "/temp",
		System:      control + "/system",
	}
}

// Publisher publishes controller output to MQTT.
type Publisher interface {
	// PublishReport sends a JSON status report on the control topic.
	// Returns error if publishing fails (should not crash the process).
	PublishReport(payload []byte) error

	// PublishAlarm sends a plain-text alarm on the control topic.
	PublishAlarm(message string) error

	// PublishTemperature republishes a local reading on the temperature topic.
	PublishTemperature(reading string) error

	// PublishSystem sends a lifecycle event on the system topic.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Handlers receive inbound messages. They are called from paho's goroutines
// and must hand the payload off quickly.
type Handlers struct {
	Command     func(payload string)
	Temperature func(payload string)
}

// SystemEvent represents a lifecycle event (ONLINE, SHUTDOWN, OFFLINE).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "ONLINE", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload is the payload for system events that don't carry a full
// status snapshot (the last will).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// WillPayload is the last will registered with the broker. It has no
// timestamp because it is fixed at connect time.
func WillPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "CONNECTION_LOST"})
	return data
}

// Greeting is published on the control topic every time the client connects.
func Greeting(clientID string) string {
	return "AirCon Controller Client " + clientID + " is online!"
}
