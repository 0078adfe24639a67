// Package metrics exposes controller activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/aircon-controller/internal/logic"
)

const namespace = "aircon"

var duties = []logic.DutyState{logic.DutyOff, logic.DutyIdle, logic.DutyCooling, logic.DutyDefrosting}

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	transitions    *prometheus.CounterVec
	actuatorWrites *prometheus.CounterVec
	aborts         *prometheus.CounterVec
	faults         *prometheus.CounterVec
	estops         prometheus.Counter
	reports        prometheus.Counter
	displayErrors  prometheus.Counter
	sensorErrors   prometheus.Counter

	duty          *prometheus.GaugeVec
	enabled       prometheus.Gauge
	fan           prometheus.Gauge
	compressor    prometheus.Gauge
	temperature   prometheus.Gauge
	setpoint      prometheus.Gauge
	mqttConnected prometheus.Gauge
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "duty_transitions_total",
			Help: "Duty state transitions.",
		}, []string{"from", "to"}),
		actuatorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "actuator_writes_total",
			Help: "Successful relay writes.",
		}, []string{"actuator", "state"}),
		aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sequence_aborts_total",
			Help: "Staged sequences whose second phase was skipped.",
		}, []string{"sequence"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "faults_total",
			Help: "Non-fatal faults by kind.",
		}, []string{"kind"}),
		estops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "estops_total",
			Help: "Interlock trips (compressor running without fan).",
		}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "reports_total",
			Help: "Status reports emitted.",
		}),
		displayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "display_errors_total",
			Help: "Failed display renders.",
		}),
		sensorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sensor_errors_total",
			Help: "Failed local temperature reads.",
		}),

		duty: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "duty",
			Help: "1 for the current duty state, 0 otherwise.",
		}, []string{"state"}),
		enabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "enabled",
			Help: "1 when the system is enabled.",
		}),
		fan: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "fan_on",
			Help: "Observed fan relay state.",
		}),
		compressor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "compressor_on",
			Help: "Observed compressor relay state.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "temperature_degrees",
			Help: "Latest temperature reading.",
		}),
		setpoint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "setpoint_degrees",
			Help: "Current setpoint.",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "mqtt_connected",
			Help: "1 when the broker connection is up.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions, m.actuatorWrites, m.aborts, m.faults,
		m.estops, m.reports, m.displayErrors, m.sensorErrors,
		m.duty, m.enabled, m.fan, m.compressor, m.temperature, m.setpoint, m.mqttConnected,
	)
	for _, d := range duties {
		m.duty.WithLabelValues(string(d)).Set(0)
	}
	m.duty.WithLabelValues(string(logic.DutyOff)).Set(1)
	return m
}

// Observe updates the collectors for one controller event.
func (m *Metrics) Observe(e logic.Event) {
	switch e.Type {
	case logic.EventTransition:
		m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
	case logic.EventActuator:
		m.actuatorWrites.WithLabelValues(string(e.Actuator), onOff(e.On)).Inc()
	case logic.EventAborted:
		m.aborts.WithLabelValues(string(e.Sequence)).Inc()
	case logic.EventFault:
		m.faults.WithLabelValues(string(e.Fault)).Inc()
	case logic.EventAlarm:
		m.estops.Inc()
	case logic.EventReport:
		m.reports.Inc()
		m.setSnapshot(e.Snapshot)
	}
}

func (m *Metrics) setSnapshot(s logic.Snapshot) {
	for _, d := range duties {
		m.duty.WithLabelValues(string(d)).Set(boolValue(d == s.Duty))
	}
	m.enabled.Set(boolValue(s.Enabled))
	m.fan.Set(boolValue(s.Fan))
	m.compressor.Set(boolValue(s.Compressor))
	m.temperature.Set(s.CurrentTemp)
	m.setpoint.Set(s.Setpoint)
}

// SetMQTTConnected records the broker connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	m.mqttConnected.Set(boolValue(connected))
}

// DisplayError counts a failed render.
func (m *Metrics) DisplayError() {
	m.displayErrors.Inc()
}

// SensorError counts a failed local temperature read.
func (m *Metrics) SensorError() {
	m.sensorErrors.Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
