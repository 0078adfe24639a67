// Package logic contains the duty-cycle state machine for a two-stage cooling
// appliance (fan + compressor).
// This package has NO transport dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters and hardware is reached
// only through ActuatorPort.
package logic

import (
	"errors"
	"fmt"
	"time"
)

// DutyState is the high-level operating mode of the appliance.
type DutyState string

const (
	DutyOff        DutyState = "OFF"
	DutyIdle       DutyState = "IDLE"
	DutyCooling    DutyState = "COOLING"
	DutyDefrosting DutyState = "DEFROSTING"
)

// Actuator names a physical output.
type Actuator string

const (
	ActuatorFan        Actuator = "fan"
	ActuatorCompressor Actuator = "compressor"
)

// ActuatorPort drives named outputs and reads them back.
type ActuatorPort interface {
	// Set energizes (on=true) or de-energizes the actuator.
	Set(a Actuator, on bool) error

	// Read returns the observed state of the actuator.
	Read(a Actuator) (bool, error)
}

// AlarmMessage is published when the interlock stops the compressor.
const AlarmMessage = "------------  COMPRESSOR E-STOP TRIGGERED! System shutting down to prevent damage!  ------------"

// Config holds the control parameters. Only the setpoint changes at runtime.
type Config struct {
	Setpoint           float64
	Hysteresis         float64
	StartupDelay       time.Duration
	DefrostDelay       time.Duration
	CompressorMinOff   time.Duration // 0 disables the guard
	InitialTemperature float64
}

// DefaultConfig returns the stock tuning of the unit.
func DefaultConfig() Config {
	return Config{
		Setpoint:           76,
		Hysteresis:         2.0,
		StartupDelay:       15 * time.Second,
		DefrostDelay:       180 * time.Second,
		InitialTemperature: 70,
	}
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	if c.Hysteresis < 0 {
		return fmt.Errorf("hysteresis must be >= 0, got %v", c.Hysteresis)
	}
	if c.StartupDelay < 0 {
		return fmt.Errorf("startup delay must be >= 0, got %v", c.StartupDelay)
	}
	if c.DefrostDelay < 0 {
		return fmt.Errorf("defrost delay must be >= 0, got %v", c.DefrostDelay)
	}
	if c.CompressorMinOff < 0 {
		return fmt.Errorf("compressor min-off must be >= 0, got %v", c.CompressorMinOff)
	}
	return nil
}

// ActuatorState pairs what we last wrote with what the hardware reports.
type ActuatorState struct {
	FanCommanded        bool
	FanObserved         bool
	CompressorCommanded bool
	CompressorObserved  bool
}

// Snapshot is a point-in-time projection of the controller, rebuilt for
// every report immediately after a checkup.
type Snapshot struct {
	Enabled        bool
	Duty           DutyState
	ElapsedInState time.Duration
	Fan            bool
	Compressor     bool
	CurrentTemp    float64
	Setpoint       float64
	Timestamp      time.Time
}

// EventType classifies controller output.
type EventType string

const (
	EventReport     EventType = "REPORT"
	EventAlarm      EventType = "ALARM"
	EventTransition EventType = "TRANSITION"
	EventActuator   EventType = "ACTUATOR"
	EventAborted    EventType = "ABORTED"
	EventFault      EventType = "FAULT"
)

// FaultKind classifies a non-fatal fault.
type FaultKind string

const (
	FaultHardwareRead         FaultKind = "HARDWARE_READ"
	FaultHardwareWrite        FaultKind = "HARDWARE_WRITE"
	FaultMalformedCommand     FaultKind = "MALFORMED_COMMAND"
	FaultMalformedTemperature FaultKind = "MALFORMED_TEMPERATURE"
)

// Sequence names a staged sequencer operation.
type Sequence string

const (
	SequenceStartup  Sequence = "startup"
	SequenceShutdown Sequence = "shutdown"
)

// Event is something the controller wants the outside world to know about.
// Which fields are set depends on Type.
type Event struct {
	Timestamp time.Time
	Type      EventType

	Snapshot Snapshot // EventReport
	Reason   string   // EventReport, EventAborted

	From DutyState // EventTransition
	To   DutyState // EventTransition

	Actuator Actuator // EventActuator, EventFault (hardware)
	On       bool     // EventActuator

	Sequence Sequence // EventAborted

	Message string    // EventAlarm
	Fault   FaultKind // EventFault
	Err     error     // EventFault
}

// Counts tracks notable controller activity since startup.
type Counts struct {
	Transitions      int
	EStops           int
	StartupsAborted  int
	ShutdownsAborted int
	Faults           int
}

// Command is a parsed control-channel message.
type Command struct {
	Kind     CommandKind
	Setpoint float64 // CommandSetpoint only
}

// CommandKind enumerates the control-channel alphabet.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandOn
	CommandOff
	CommandStatus
	CommandSetpoint
)

var (
	// ErrMalformedSetpoint is returned for a set command with a non-numeric value.
	ErrMalformedSetpoint = errors.New("malformed setpoint")

	// ErrMalformedTemperature is returned for a non-numeric temperature reading.
	ErrMalformedTemperature = errors.New("malformed temperature")
)
