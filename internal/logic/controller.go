package logic

import "time"

// Controller is the duty-cycle state machine. It owns the enabled flag, the
// duty state, setpoint, temperature and the actuator state record.
//
// Controller is not safe for concurrent use: a single goroutine must own it
// and feed it commands, readings and ticks in sequence.
type Controller struct {
	cfg  Config
	port ActuatorPort

	enabled  bool
	duty     DutyState
	setpoint float64
	temp     float64
	since    time.Time
	act      ActuatorState

	seq sequencer

	counts   Counts
	out      []Event
	reported bool
	tripped  bool
}

// NewController returns a disabled controller in DutyOff.
func NewController(cfg Config, port ActuatorPort, now time.Time) *Controller {
	return &Controller{
		cfg:      cfg,
		port:     port,
		duty:     DutyOff,
		setpoint: cfg.Setpoint,
		temp:     cfg.InitialTemperature,
		since:    now,
	}
}

// Enable turns the system on. A disabled system enters Idle with a fresh
// state timer; either way the controller is evaluated immediately.
func (c *Controller) Enable(now time.Time) []Event {
	if !c.enabled || c.duty == DutyOff {
		c.enabled = true
		c.transition(DutyIdle, now)
		c.since = now
	}
	c.evaluate(now)
	return c.flush()
}

// Disable turns the system off and evaluates immediately.
func (c *Controller) Disable(now time.Time) []Event {
	c.enabled = false
	c.evaluate(now)
	return c.flush()
}

// SetSetpoint stores a new target and reports it. The value is picked up by
// the next evaluation so a sequence already in flight is not pre-empted.
func (c *Controller) SetSetpoint(v float64, now time.Time) []Event {
	c.setpoint = v
	c.report(now, "setpoint")
	return c.flush()
}

// SetTemperature stores the latest reading for the next evaluation.
func (c *Controller) SetTemperature(v float64) {
	c.temp = v
}

// Status publishes a report without changing anything.
func (c *Controller) Status(now time.Time) []Event {
	c.report(now, "status")
	return c.flush()
}

// HandleCommand parses and applies a control-channel payload.
// Unrecognized payloads are ignored; malformed setpoints leave the previous
// setpoint in place and surface as a fault event.
func (c *Controller) HandleCommand(raw string, now time.Time) []Event {
	cmd, err := ParseCommand(raw)
	if err != nil {
		c.fault(FaultMalformedCommand, "", err, now)
		return c.flush()
	}
	switch cmd.Kind {
	case CommandOn:
		return c.Enable(now)
	case CommandOff:
		return c.Disable(now)
	case CommandStatus:
		return c.Status(now)
	case CommandSetpoint:
		return c.SetSetpoint(cmd.Setpoint, now)
	}
	return nil
}

// HandleTemperature parses and stores a temperature reading.
func (c *Controller) HandleTemperature(raw string, now time.Time) []Event {
	v, err := ParseTemperature(raw)
	if err != nil {
		c.fault(FaultMalformedTemperature, "", err, now)
		return c.flush()
	}
	c.SetTemperature(v)
	return nil
}

// Evaluate runs one pass of the transition rules. It is idempotent: with no
// change in inputs a second call performs no actuator transition.
func (c *Controller) Evaluate(now time.Time) []Event {
	c.evaluate(now)
	return c.flush()
}

// Checkup re-reads the actuators and enforces the interlock. A report is
// emitted only when a correction was made.
func (c *Controller) Checkup(now time.Time) []Event {
	if c.checkup(now) {
		c.report(now, "interlock")
	}
	return c.flush()
}

// Advance fires every pending sequencer phase due at or before now.
func (c *Controller) Advance(now time.Time) []Event {
	for {
		p, ok := c.seq.popDue(now)
		if !ok {
			break
		}
		c.fire(p, now)
	}
	return c.flush()
}

// NextDue returns when the earliest pending phase is due.
func (c *Controller) NextDue() (time.Time, bool) {
	return c.seq.nextDue()
}

// Halt brings both motors down immediately and disables the system. It is
// meant for process exit, where the defrost delay cannot be honoured.
func (c *Controller) Halt(now time.Time) []Event {
	c.enabled = false
	c.write(ActuatorCompressor, false, now)
	c.write(ActuatorFan, false, now)
	c.transition(DutyOff, now)
	c.report(now, "halt")
	return c.flush()
}

// Enabled reports whether the system is enabled.
func (c *Controller) Enabled() bool { return c.enabled }

// Duty returns the current duty state.
func (c *Controller) Duty() DutyState { return c.duty }

// Setpoint returns the current target temperature.
func (c *Controller) Setpoint() float64 { return c.setpoint }

// Temperature returns the latest temperature reading.
func (c *Controller) Temperature() float64 { return c.temp }

// Actuators returns the last commanded and observed actuator states.
func (c *Controller) Actuators() ActuatorState { return c.act }

// Counts returns activity counters since startup.
func (c *Controller) Counts() Counts { return c.counts }

func (c *Controller) evaluate(now time.Time) {
	c.checkup(now)

	if !c.enabled {
		if c.duty != DutyOff {
			c.transition(DutyOff, now)
			c.shutdown(now)
		} else if c.strayMotor() {
			c.shutdown(now)
		}
		c.finishReport(now, "evaluate")
		return
	}

	if c.duty == DutyOff {
		c.transition(DutyIdle, now)
	}

	switch c.duty {
	case DutyIdle:
		if c.temp > c.setpoint {
			c.transition(DutyCooling, now)
			c.startup(now)
		} else if c.act.CompressorObserved || c.strayMotor() {
			c.shutdown(now)
		}

	case DutyCooling:
		if c.temp <= c.setpoint-c.cfg.Hysteresis {
			c.transition(DutyDefrosting, now)
			c.shutdown(now)
		} else if !c.act.CompressorObserved {
			c.startup(now)
		}

	case DutyDefrosting:
		if !c.seq.pending(SequenceShutdown) {
			if c.act.CompressorObserved || c.act.FanObserved {
				c.shutdown(now)
			} else {
				c.transition(DutyIdle, now)
			}
		}
	}
	c.finishReport(now, "evaluate")
}

// strayMotor reports a motor left running in a state that wants both off,
// with no shutdown in flight to stop it.
func (c *Controller) strayMotor() bool {
	if c.seq.pending(SequenceShutdown) {
		return false
	}
	return c.act.CompressorObserved || c.act.FanObserved
}

// checkup refreshes the observed actuator state and enforces the interlock.
// It returns true when the interlock had to stop the compressor. The
// interlock fires at most once per public call.
func (c *Controller) checkup(now time.Time) bool {
	c.act.FanObserved = c.read(ActuatorFan, now)
	c.act.CompressorObserved = c.read(ActuatorCompressor, now)

	if !c.act.CompressorObserved || c.act.FanObserved || c.tripped {
		return false
	}

	c.tripped = true
	c.write(ActuatorCompressor, false, now)
	c.enabled = false
	c.counts.EStops++
	c.emit(Event{Timestamp: now, Type: EventAlarm, Message: AlarmMessage})
	return true
}

func (c *Controller) transition(to DutyState, now time.Time) {
	if c.duty == to {
		return
	}
	from := c.duty
	c.duty = to
	c.since = now
	c.counts.Transitions++
	c.emit(Event{Timestamp: now, Type: EventTransition, From: from, To: to})
}

// report runs a checkup and emits a fresh snapshot.
func (c *Controller) report(now time.Time, reason string) {
	c.checkup(now)
	c.reported = true
	c.emit(Event{Timestamp: now, Type: EventReport, Snapshot: c.snapshot(now), Reason: reason})
}

// finishReport reports unless something already did during this call.
func (c *Controller) finishReport(now time.Time, reason string) {
	if !c.reported {
		c.report(now, reason)
	}
}

func (c *Controller) snapshot(now time.Time) Snapshot {
	return Snapshot{
		Enabled:        c.enabled,
		Duty:           c.duty,
		ElapsedInState: now.Sub(c.since),
		Fan:            c.act.FanObserved,
		Compressor:     c.act.CompressorObserved,
		CurrentTemp:    c.temp,
		Setpoint:       c.setpoint,
		Timestamp:      now,
	}
}

// read returns the observed state; a failed read counts as "off".
func (c *Controller) read(a Actuator, now time.Time) bool {
	on, err := c.port.Read(a)
	if err != nil {
		c.fault(FaultHardwareRead, a, err, now)
		return false
	}
	return on
}

func (c *Controller) write(a Actuator, on bool, now time.Time) bool {
	if err := c.port.Set(a, on); err != nil {
		c.fault(FaultHardwareWrite, a, err, now)
		return false
	}
	switch a {
	case ActuatorFan:
		c.act.FanCommanded = on
	case ActuatorCompressor:
		if !on && c.act.CompressorCommanded {
			c.seq.compressorOffAt = now
		}
		c.act.CompressorCommanded = on
	}
	c.emit(Event{Timestamp: now, Type: EventActuator, Actuator: a, On: on})
	return true
}

func (c *Controller) fault(kind FaultKind, a Actuator, err error, now time.Time) {
	c.counts.Faults++
	c.emit(Event{Timestamp: now, Type: EventFault, Fault: kind, Actuator: a, Err: err})
}

func (c *Controller) emit(e Event) {
	c.out = append(c.out, e)
}

func (c *Controller) flush() []Event {
	out := c.out
	c.out = nil
	c.reported = false
	c.tripped = false
	return out
}
