package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/aircon-controller/internal/logic"
)

func TestObserveCounters(t *testing.T) {
	m := New()
	now := time.Now()

	events := []logic.Event{
		{Timestamp: now, Type: logic.EventTransition, From: logic.DutyIdle, To: logic.DutyCooling},
		{Timestamp: now, Type: logic.EventActuator, Actuator: logic.ActuatorFan, On: true},
		{Timestamp: now, Type: logic.EventActuator, Actuator: logic.ActuatorFan, On: true},
		{Timestamp: now, Type: logic.EventAborted, Sequence: logic.SequenceStartup},
		{Timestamp: now, Type: logic.EventFault, Fault: logic.FaultHardwareRead, Err: errors.New("x")},
		{Timestamp: now, Type: logic.EventAlarm, Message: logic.AlarmMessage},
	}
	for _, e := range events {
		m.Observe(e)
	}

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("IDLE", "COOLING")); got != 1 {
		t.Errorf("transitions: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.actuatorWrites.WithLabelValues("fan", "on")); got != 2 {
		t.Errorf("fan on writes: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.aborts.WithLabelValues("startup")); got != 1 {
		t.Errorf("aborts: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.faults.WithLabelValues("HARDWARE_READ")); got != 1 {
		t.Errorf("faults: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.estops); got != 1 {
		t.Errorf("estops: got %v, want 1", got)
	}
}

func TestObserveReportSetsGauges(t *testing.T) {
	m := New()

	m.Observe(logic.Event{Type: logic.EventReport, Snapshot: logic.Snapshot{
		Enabled:     true,
		Duty:        logic.DutyCooling,
		Fan:         true,
		Compressor:  false,
		CurrentTemp: 80.5,
		Setpoint:    76,
	}})

	if got := testutil.ToFloat64(m.reports); got != 1 {
		t.Errorf("reports: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.duty.WithLabelValues("COOLING")); got != 1 {
		t.Errorf("duty COOLING: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.duty.WithLabelValues("OFF")); got != 0 {
		t.Errorf("duty OFF: got %v, want 0", got)
	}
	if testutil.ToFloat64(m.enabled) != 1 || testutil.ToFloat64(m.fan) != 1 || testutil.ToFloat64(m.compressor) != 0 {
		t.Error("unexpected relay/enabled gauges")
	}
	if got := testutil.ToFloat64(m.temperature); got != 80.5 {
		t.Errorf("temperature: got %v", got)
	}
	if got := testutil.ToFloat64(m.setpoint); got != 76 {
		t.Errorf("setpoint: got %v", got)
	}
}

func TestInitialDutyIsOff(t *testing.T) {
	m := New()
	if got := testutil.ToFloat64(m.duty.WithLabelValues("OFF")); got != 1 {
		t.Errorf("duty OFF: got %v, want 1", got)
	}
}

func TestAuxiliaryCounters(t *testing.T) {
	m := New()
	m.DisplayError()
	m.SensorError()
	m.SensorError()
	m.SetMQTTConnected(true)

	if got := testutil.ToFloat64(m.displayErrors); got != 1 {
		t.Errorf("display errors: got %v", got)
	}
	if got := testutil.ToFloat64(m.sensorErrors); got != 2 {
		t.Errorf("sensor errors: got %v", got)
	}
	if got := testutil.ToFloat64(m.mqttConnected); got != 1 {
		t.Errorf("mqtt connected: got %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(logic.Event{Type: logic.EventAlarm})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"aircon_estops_total 1", "aircon_duty{state=\"OFF\"} 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	New()
	New()
}
