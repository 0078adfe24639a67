package logic

import (
	"errors"
	"testing"
	"time"
)

// fakePort is an in-memory ActuatorPort. Writes land immediately unless the
// actuator is stuck, in which case Read keeps returning the stuck value.
type fakePort struct {
	state    map[Actuator]bool
	stuck    map[Actuator]bool
	readErr  map[Actuator]error
	writeErr map[Actuator]error
	writes   []portWrite
}

type portWrite struct {
	a  Actuator
	on bool
}

func newFakePort() *fakePort {
	return &fakePort{
		state:    map[Actuator]bool{},
		stuck:    map[Actuator]bool{},
		readErr:  map[Actuator]error{},
		writeErr: map[Actuator]error{},
	}
}

func (p *fakePort) Set(a Actuator, on bool) error {
	if err := p.writeErr[a]; err != nil {
		return err
	}
	p.writes = append(p.writes, portWrite{a, on})
	if _, ok := p.stuck[a]; !ok {
		p.state[a] = on
	}
	return nil
}

func (p *fakePort) Read(a Actuator) (bool, error) {
	if err := p.readErr[a]; err != nil {
		return false, err
	}
	if v, ok := p.stuck[a]; ok {
		return v, nil
	}
	return p.state[a], nil
}

// force simulates an external change of the relay (E-stop, manual switch).
func (p *fakePort) force(a Actuator, on bool) {
	p.state[a] = on
}

func (p *fakePort) writesTo(a Actuator) []bool {
	var out []bool
	for _, w := range p.writes {
		if w.a == a {
			out = append(out, w.on)
		}
	}
	return out
}

var t0 = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T) (*Controller, *fakePort) {
	t.Helper()
	port := newFakePort()
	return NewController(DefaultConfig(), port, t0), port
}

func reports(events []Event) []Snapshot {
	var out []Snapshot
	for _, e := range events {
		if e.Type == EventReport {
			out = append(out, e.Snapshot)
		}
	}
	return out
}

func lastReport(t *testing.T, events []Event) Snapshot {
	t.Helper()
	r := reports(events)
	if len(r) == 0 {
		t.Fatal("expected at least one report")
	}
	return r[len(r)-1]
}

func countType(events []Event, typ EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// cooling drives a fresh controller into Cooling with both motors running.
func cooling(t *testing.T) (*Controller, *fakePort) {
	t.Helper()
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)
	c.Advance(t0.Add(15 * time.Second))
	if c.Duty() != DutyCooling {
		t.Fatalf("setup: duty = %s, want COOLING", c.Duty())
	}
	if !port.state[ActuatorFan] || !port.state[ActuatorCompressor] {
		t.Fatalf("setup: expected fan and compressor on, got %v", port.state)
	}
	port.writes = nil
	return c, port
}

func TestNewControllerStartsOff(t *testing.T) {
	c, _ := newTestController(t)

	if c.Enabled() {
		t.Error("expected disabled at startup")
	}
	if c.Duty() != DutyOff {
		t.Errorf("duty: got %s, want OFF", c.Duty())
	}
	if c.Setpoint() != 76 {
		t.Errorf("setpoint: got %v, want 76", c.Setpoint())
	}
	if c.Temperature() != 70 {
		t.Errorf("temperature: got %v, want 70", c.Temperature())
	}
}

func TestEnableEntersIdle(t *testing.T) {
	c, port := newTestController(t)

	events := c.Enable(t0)

	if c.Duty() != DutyIdle {
		t.Fatalf("duty: got %s, want IDLE", c.Duty())
	}
	snap := lastReport(t, events)
	if !snap.Enabled || snap.Duty != DutyIdle {
		t.Errorf("report: got enabled=%v duty=%s", snap.Enabled, snap.Duty)
	}
	if snap.Fan || snap.Compressor {
		t.Errorf("report: expected both motors off, got fan=%v comp=%v", snap.Fan, snap.Compressor)
	}
	if len(port.writes) != 0 {
		t.Errorf("expected no actuator writes, got %v", port.writes)
	}
	if snap.ElapsedInState != 0 {
		t.Errorf("expected state timer reset, got %v", snap.ElapsedInState)
	}
}

func TestEndToEndCoolOn(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)

	c.SetTemperature(80)
	events := c.Evaluate(t0.Add(time.Minute))

	if c.Duty() != DutyCooling {
		t.Fatalf("duty: got %s, want COOLING", c.Duty())
	}
	snap := lastReport(t, events)
	if !snap.Fan || snap.Compressor {
		t.Errorf("phase 1: expected fan on, compressor off; got fan=%v comp=%v", snap.Fan, snap.Compressor)
	}
	if got := port.writesTo(ActuatorCompressor); len(got) != 0 {
		t.Errorf("compressor must not be written in phase 1, got %v", got)
	}

	due, ok := c.NextDue()
	if !ok || !due.Equal(t0.Add(time.Minute+15*time.Second)) {
		t.Fatalf("NextDue: got %v %v", due, ok)
	}

	// Not yet due.
	if events := c.Advance(due.Add(-time.Millisecond)); len(events) != 0 {
		t.Errorf("expected nothing before the delay, got %d events", len(events))
	}

	events = c.Advance(due)
	snap = lastReport(t, events)
	if !snap.Fan || !snap.Compressor {
		t.Errorf("phase 2: expected both on, got fan=%v comp=%v", snap.Fan, snap.Compressor)
	}
	if snap.Duty != DutyCooling {
		t.Errorf("phase 2: duty %s, want COOLING", snap.Duty)
	}
	if _, ok := c.NextDue(); ok {
		t.Error("expected no pending phases")
	}
}

func TestEndToEndCoolOff(t *testing.T) {
	c, port := cooling(t)
	start := t0.Add(time.Hour)

	c.SetTemperature(73)
	events := c.Evaluate(start)

	snap := lastReport(t, events)
	if snap.Compressor {
		t.Error("expected compressor off immediately")
	}
	if !snap.Fan {
		t.Error("expected fan to keep running through defrost")
	}
	if c.Duty() != DutyDefrosting {
		t.Errorf("duty: got %s, want DEFROSTING", c.Duty())
	}

	// Half way through defrost nothing changes.
	c.Evaluate(start.Add(90 * time.Second))
	if !port.state[ActuatorFan] {
		t.Error("fan stopped before defrost delay elapsed")
	}

	events = c.Advance(start.Add(180 * time.Second))
	snap = lastReport(t, events)
	if snap.Fan || snap.Compressor {
		t.Errorf("expected both off, got fan=%v comp=%v", snap.Fan, snap.Compressor)
	}
	if c.Duty() != DutyIdle {
		t.Errorf("duty: got %s, want IDLE", c.Duty())
	}
	if snap.ElapsedInState != 0 {
		t.Errorf("expected timer reset on Idle, got %v", snap.ElapsedInState)
	}
}

func TestHysteresisBand(t *testing.T) {
	tests := []struct {
		temp     float64
		wantDuty DutyState
	}{
		{74.1, DutyCooling},
		{74, DutyDefrosting},
		{73, DutyDefrosting},
		{76, DutyCooling},
	}

	for _, tt := range tests {
		c, _ := cooling(t)
		c.SetTemperature(tt.temp)
		c.Evaluate(t0.Add(time.Hour))
		if c.Duty() != tt.wantDuty {
			t.Errorf("temp %v: duty %s, want %s", tt.temp, c.Duty(), tt.wantDuty)
		}
	}
}

func TestIdleDoesNotStartAtSetpoint(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)

	c.SetTemperature(76)
	c.Evaluate(t0)

	if c.Duty() != DutyIdle {
		t.Errorf("duty: got %s, want IDLE", c.Duty())
	}
	if len(port.writes) != 0 {
		t.Errorf("expected no writes, got %v", port.writes)
	}
}

func TestStartupAbortedWhenFanForcedOff(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)

	port.force(ActuatorFan, false)
	events := c.Advance(t0.Add(15 * time.Second))

	if got := port.writesTo(ActuatorCompressor); len(got) != 0 {
		t.Fatalf("compressor must not be commanded, got %v", got)
	}
	if countType(events, EventAborted) != 1 {
		t.Errorf("expected one abort event, got %d", countType(events, EventAborted))
	}
	if c.Counts().StartupsAborted != 1 {
		t.Errorf("StartupsAborted: got %d, want 1", c.Counts().StartupsAborted)
	}
}

func TestShutdownAbortedWhenCompressorForcedOn(t *testing.T) {
	c, port := cooling(t)
	start := t0.Add(time.Hour)
	c.SetTemperature(70)
	c.Evaluate(start)

	port.force(ActuatorCompressor, true)
	events := c.Advance(start.Add(180 * time.Second))

	for _, on := range port.writesTo(ActuatorFan) {
		if !on {
			t.Fatal("fan must not be commanded off while the compressor runs")
		}
	}
	if countType(events, EventAborted) != 1 {
		t.Errorf("expected one abort event, got %d", countType(events, EventAborted))
	}
	if c.Duty() != DutyDefrosting {
		t.Errorf("duty: got %s, want DEFROSTING", c.Duty())
	}

	// The next evaluate re-issues the shutdown.
	port.writes = nil
	c.Evaluate(start.Add(181 * time.Second))
	if got := port.writesTo(ActuatorCompressor); len(got) != 1 || got[0] {
		t.Errorf("expected corrective compressor stop, got %v", got)
	}
}

func TestDisableDuringStartupSkipsCompressor(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)

	c.Disable(t0.Add(5 * time.Second))
	if c.Duty() != DutyOff {
		t.Fatalf("duty: got %s, want OFF", c.Duty())
	}

	c.Advance(t0.Add(15 * time.Second))
	for _, on := range port.writesTo(ActuatorCompressor) {
		if on {
			t.Fatal("compressor started after the system was disabled")
		}
	}

	c.Advance(t0.Add(5*time.Second + 180*time.Second))
	if port.state[ActuatorFan] {
		t.Error("expected fan off after defrost")
	}
	if c.Duty() != DutyOff {
		t.Errorf("duty: got %s, want OFF", c.Duty())
	}
}

func TestInterlockTripsOnCompressorWithoutFan(t *testing.T) {
	c, port := cooling(t)

	port.force(ActuatorFan, false)
	events := c.Checkup(t0.Add(time.Hour))

	if c.Enabled() {
		t.Error("expected system disabled")
	}
	if got := port.writesTo(ActuatorCompressor); len(got) != 1 || got[0] {
		t.Errorf("expected a single compressor stop, got %v", got)
	}
	if countType(events, EventAlarm) != 1 {
		t.Fatalf("expected one alarm, got %d", countType(events, EventAlarm))
	}
	for _, e := range events {
		if e.Type == EventAlarm && e.Message != AlarmMessage {
			t.Errorf("alarm message: got %q", e.Message)
		}
	}
	snap := lastReport(t, events)
	if snap.Compressor {
		t.Error("report should show compressor off after the stop")
	}
	if c.Counts().EStops != 1 {
		t.Errorf("EStops: got %d, want 1", c.Counts().EStops)
	}

	c.Evaluate(t0.Add(time.Hour + time.Second))
	if c.Duty() != DutyOff {
		t.Errorf("duty after trip: got %s, want OFF", c.Duty())
	}
}

func TestInterlockReenabledByOn(t *testing.T) {
	c, port := cooling(t)
	port.force(ActuatorFan, false)
	c.Checkup(t0.Add(time.Hour))

	c.HandleCommand("on", t0.Add(2*time.Hour))

	if !c.Enabled() {
		t.Error("expected on to re-enable after a trip")
	}
	if c.Counts().EStops != 1 {
		t.Errorf("EStops should not be cleared, got %d", c.Counts().EStops)
	}
}

func TestInterlockRepeatsWhileRelayStuck(t *testing.T) {
	c, port := cooling(t)
	port.stuck[ActuatorCompressor] = true
	port.force(ActuatorFan, false)

	first := c.Checkup(t0.Add(time.Hour))
	second := c.Checkup(t0.Add(time.Hour + 5*time.Second))

	if countType(first, EventAlarm) != 1 || countType(second, EventAlarm) != 1 {
		t.Errorf("alarms: got %d and %d, want one per checkup",
			countType(first, EventAlarm), countType(second, EventAlarm))
	}
	if got := port.writesTo(ActuatorCompressor); len(got) != 2 {
		t.Errorf("compressor stops: got %v, want one per checkup", got)
	}
	if c.Counts().EStops != 2 {
		t.Errorf("EStops: got %d, want 2", c.Counts().EStops)
	}
}

func TestCheckupQuietWhenHealthy(t *testing.T) {
	c, _ := cooling(t)

	if events := c.Checkup(t0.Add(time.Hour)); len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)

	first := c.Evaluate(t0)
	writes := len(port.writes)
	second := c.Evaluate(t0.Add(time.Second))

	if len(port.writes) != writes {
		t.Errorf("second evaluate wrote actuators: %v", port.writes[writes:])
	}
	if countType(second, EventTransition) != 0 {
		t.Error("second evaluate transitioned")
	}
	if len(reports(first)) == 0 || len(reports(second)) == 0 {
		t.Error("both evaluations should report")
	}
}

func TestEvaluateIdempotentWhileCooling(t *testing.T) {
	c, port := cooling(t)

	c.Evaluate(t0.Add(time.Hour))
	c.Evaluate(t0.Add(time.Hour + time.Second))

	if len(port.writes) != 0 {
		t.Errorf("expected no writes, got %v", port.writes)
	}
}

func TestIdleCorrectsRunningCompressor(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	port.force(ActuatorFan, true)
	port.force(ActuatorCompressor, true)

	c.Evaluate(t0.Add(time.Second))

	if port.state[ActuatorCompressor] {
		t.Error("expected corrective compressor stop in Idle")
	}
	if c.Duty() != DutyIdle {
		t.Errorf("duty: got %s, want IDLE", c.Duty())
	}
}

func TestIdleStopsStrayFan(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	port.force(ActuatorFan, true)

	c.Evaluate(t0.Add(time.Second))
	if !port.state[ActuatorFan] {
		t.Error("fan should run out the defrost delay")
	}
	c.Advance(t0.Add(181 * time.Second))

	if port.state[ActuatorFan] {
		t.Error("expected stray fan stopped in Idle")
	}
	if c.Duty() != DutyIdle {
		t.Errorf("duty: got %s, want IDLE", c.Duty())
	}
}

func TestFanOffRetriedAfterFailedWrite(t *testing.T) {
	tests := []struct {
		name    string
		stop    func(c *Controller, now time.Time)
		settled DutyState
	}{
		{
			name:    "disabled",
			stop:    func(c *Controller, now time.Time) { c.HandleCommand("off", now) },
			settled: DutyOff,
		},
		{
			name: "cooled down",
			stop: func(c *Controller, now time.Time) {
				c.SetTemperature(73)
				c.Evaluate(now)
			},
			settled: DutyIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, port := cooling(t)
			start := t0.Add(time.Hour)
			tt.stop(c, start)

			port.writeErr[ActuatorFan] = errors.New("line busy")
			events := c.Advance(start.Add(180 * time.Second))
			if countType(events, EventAborted) != 1 {
				t.Errorf("expected the failed fan stop to abort the shutdown")
			}
			if c.Duty() == DutyIdle {
				t.Error("must not settle in Idle with the fan still running")
			}
			delete(port.writeErr, ActuatorFan)

			for i := 1; i <= 5; i++ {
				now := start.Add(time.Duration(i) * time.Hour)
				c.Evaluate(now)
				c.Advance(now.Add(180 * time.Second))
			}

			if port.state[ActuatorFan] || port.state[ActuatorCompressor] {
				t.Errorf("expected both off, got %v", port.state)
			}
			if c.Actuators().FanCommanded {
				t.Error("fan still commanded on")
			}
			if c.Duty() != tt.settled {
				t.Errorf("duty: got %s, want %s", c.Duty(), tt.settled)
			}
		})
	}
}

func TestCoolingRestartsStoppedCompressor(t *testing.T) {
	c, port := cooling(t)
	port.force(ActuatorCompressor, false)

	c.Evaluate(t0.Add(time.Hour))
	if got := port.writesTo(ActuatorFan); len(got) != 1 || !got[0] {
		t.Fatalf("expected corrective fan start, got %v", got)
	}

	c.Advance(t0.Add(time.Hour + 15*time.Second))
	if !port.state[ActuatorCompressor] {
		t.Error("expected compressor restarted")
	}
}

func TestSetpointCommand(t *testing.T) {
	c, _ := newTestController(t)

	events := c.HandleCommand("anythingset-68", t0)
	if c.Setpoint() != 68 {
		t.Fatalf("setpoint: got %v, want 68", c.Setpoint())
	}
	if lastReport(t, events).Setpoint != 68 {
		t.Error("report should carry the new setpoint")
	}

	events = c.HandleCommand("set-abc", t0)
	if c.Setpoint() != 68 {
		t.Errorf("malformed command changed setpoint to %v", c.Setpoint())
	}
	if countType(events, EventFault) != 1 {
		t.Fatalf("expected one fault, got %d", countType(events, EventFault))
	}
	for _, e := range events {
		if e.Type == EventFault {
			if e.Fault != FaultMalformedCommand {
				t.Errorf("fault kind: got %s", e.Fault)
			}
			if !errors.Is(e.Err, ErrMalformedSetpoint) {
				t.Errorf("fault err: got %v", e.Err)
			}
		}
	}
}

func TestSetpointDoesNotPreemptSequence(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)

	// Raise the setpoint above the temperature mid-startup.
	c.HandleCommand("set-90", t0.Add(5*time.Second))
	c.Advance(t0.Add(15 * time.Second))

	if !port.state[ActuatorCompressor] {
		t.Error("pending startup should still complete")
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	c, port := newTestController(t)

	for _, raw := range []string{"ON", "Off", "", "reboot", `{"Enabled":true,"Task":"Idle"}`} {
		if events := c.HandleCommand(raw, t0); len(events) != 0 {
			t.Errorf("%q: expected no events, got %v", raw, events)
		}
	}
	if c.Enabled() || len(port.writes) != 0 {
		t.Error("unknown commands must not change state")
	}
}

func TestStatusCommandReports(t *testing.T) {
	c, _ := newTestController(t)

	events := c.HandleCommand("status", t0.Add(90*time.Minute))

	snap := lastReport(t, events)
	if snap.ElapsedInState != 90*time.Minute {
		t.Errorf("elapsed: got %v, want 90m", snap.ElapsedInState)
	}
	if countType(events, EventTransition) != 0 {
		t.Error("status must not transition")
	}
}

func TestOffCommandFromCooling(t *testing.T) {
	c, port := cooling(t)

	c.HandleCommand("off", t0.Add(time.Hour))

	if c.Enabled() || c.Duty() != DutyOff {
		t.Errorf("got enabled=%v duty=%s", c.Enabled(), c.Duty())
	}
	if port.state[ActuatorCompressor] {
		t.Error("expected compressor off")
	}
	if !port.state[ActuatorFan] {
		t.Error("fan should keep running for defrost")
	}
}

func TestTemperatureInput(t *testing.T) {
	c, _ := newTestController(t)

	if events := c.HandleTemperature("81.5", t0); len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
	if c.Temperature() != 81.5 {
		t.Errorf("temperature: got %v", c.Temperature())
	}

	events := c.HandleTemperature("warm", t0)
	if c.Temperature() != 81.5 {
		t.Errorf("malformed reading changed temperature to %v", c.Temperature())
	}
	if countType(events, EventFault) != 1 || events[0].Fault != FaultMalformedTemperature {
		t.Errorf("expected MALFORMED_TEMPERATURE fault, got %v", events)
	}
}

func TestReadFailureTreatedAsOff(t *testing.T) {
	c, port := cooling(t)
	port.readErr[ActuatorCompressor] = errors.New("bus error")

	events := c.Status(t0.Add(time.Hour))

	snap := lastReport(t, events)
	if snap.Compressor {
		t.Error("failed read should be reported as off")
	}
	found := false
	for _, e := range events {
		if e.Type == EventFault && e.Fault == FaultHardwareRead && e.Actuator == ActuatorCompressor {
			found = true
		}
	}
	if !found {
		t.Error("expected HARDWARE_READ fault for compressor")
	}
	if !c.Enabled() {
		t.Error("a read failure alone must not disable the system")
	}
}

func TestWriteFailureKeepsCommandedState(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	port.writeErr[ActuatorFan] = errors.New("line busy")

	c.SetTemperature(80)
	events := c.Evaluate(t0)

	if c.Actuators().FanCommanded {
		t.Error("commanded state must not change on a failed write")
	}
	if countType(events, EventFault) == 0 {
		t.Error("expected a fault event")
	}

	// Phase 2 sees the fan off and skips the compressor.
	c.Advance(t0.Add(15 * time.Second))
	if len(port.writesTo(ActuatorCompressor)) != 0 {
		t.Error("compressor must not start without the fan")
	}
}

func TestCompressorMinOffTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompressorMinOff = 5 * time.Minute
	port := newFakePort()
	c := NewController(cfg, port, t0)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)
	c.Advance(t0.Add(15 * time.Second))

	// Stop, then call for cooling again well inside the min-off window.
	c.SetTemperature(70)
	c.Evaluate(t0.Add(time.Minute))
	c.Advance(t0.Add(4 * time.Minute))
	c.SetTemperature(80)
	c.Evaluate(t0.Add(4 * time.Minute))

	port.writes = nil
	c.Advance(t0.Add(4*time.Minute + 15*time.Second))
	if len(port.writesTo(ActuatorCompressor)) != 0 {
		t.Fatal("compressor restarted inside the minimum off-time")
	}

	// After the window the Cooling corrective branch gets it going.
	c.Evaluate(t0.Add(7 * time.Minute))
	c.Advance(t0.Add(7*time.Minute + 15*time.Second))
	if !port.state[ActuatorCompressor] {
		t.Error("expected compressor restarted after the minimum off-time")
	}
}

func TestStaleStartupSuperseded(t *testing.T) {
	c, port := newTestController(t)
	c.Enable(t0)
	c.SetTemperature(80)
	c.Evaluate(t0)

	// Fan knocked off, then the corrective branch restarts the sequence.
	port.force(ActuatorFan, false)
	c.Evaluate(t0.Add(10 * time.Second))

	port.writes = nil
	c.Advance(t0.Add(15 * time.Second))
	if len(port.writesTo(ActuatorCompressor)) != 0 {
		t.Fatal("superseded phase started the compressor early")
	}

	c.Advance(t0.Add(25 * time.Second))
	if !port.state[ActuatorCompressor] {
		t.Error("expected the newer phase to start the compressor")
	}
}

func TestHalt(t *testing.T) {
	c, port := cooling(t)

	events := c.Halt(t0.Add(time.Hour))

	if port.state[ActuatorFan] || port.state[ActuatorCompressor] {
		t.Errorf("expected both off, got %v", port.state)
	}
	got := port.writesTo(ActuatorCompressor)
	if len(got) == 0 || got[0] {
		t.Error("compressor must be stopped")
	}
	if port.writes[0].a != ActuatorCompressor {
		t.Error("compressor must stop before the fan")
	}
	if c.Enabled() || c.Duty() != DutyOff {
		t.Errorf("got enabled=%v duty=%s", c.Enabled(), c.Duty())
	}
	if lastReport(t, events).Duty != DutyOff {
		t.Error("expected final OFF report")
	}
}

// TestSafetyInvariantHolds drives the controller through a scripted mix of
// commands, readings, external relay interference and ticks, and checks that
// the hardware never ends a step with the compressor on and the fan off.
func TestSafetyInvariantHolds(t *testing.T) {
	c, port := newTestController(t)
	now := t0

	steps := []func(){
		func() { c.Enable(now) },
		func() { c.SetTemperature(85); c.Evaluate(now) },
		func() { port.force(ActuatorFan, false) },
		func() { c.Advance(now) },
		func() { c.HandleCommand("on", now) },
		func() { c.Evaluate(now) },
		func() { port.force(ActuatorCompressor, true) },
		func() { c.Checkup(now) },
		func() { c.HandleCommand("off", now) },
		func() { c.HandleCommand("on", now) },
		func() { c.SetTemperature(60); c.Evaluate(now) },
		func() { port.force(ActuatorFan, false); port.force(ActuatorCompressor, true) },
		func() { c.Checkup(now) },
	}

	for i, step := range steps {
		step()
		now = now.Add(20 * time.Second)
		c.Advance(now)
		c.Checkup(now)
		if port.state[ActuatorCompressor] && !port.state[ActuatorFan] {
			t.Fatalf("step %d: compressor on without fan after checkup", i)
		}
	}
}
