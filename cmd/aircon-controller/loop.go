package main

import (
	"os"
	"syscall"
	"time"

	"github.com/sweeney/aircon-controller/internal/display"
	"github.com/sweeney/aircon-controller/internal/logger"
	"github.com/sweeney/aircon-controller/internal/logic"
	"github.com/sweeney/aircon-controller/internal/metrics"
	"github.com/sweeney/aircon-controller/internal/mqtt"
	"github.com/sweeney/aircon-controller/internal/status"
)

// loop owns the controller. Everything that touches it runs on the
// goroutine that calls run.
type loop struct {
	ctrl    *logic.Controller
	pub     mqtt.Publisher
	conn    mqtt.ConnectionStatus // may be nil
	tracker *status.Tracker
	panel   display.Renderer // may be nil
	metrics *metrics.Metrics
	labels  status.Labels
	log     *logger.Logger
	now     func() time.Time
	network func() *status.NetworkInfo // may be nil
}

// inputs are the event sources multiplexed by run. Nil channels never fire.
type inputs struct {
	evaluate <-chan time.Time
	checkup  <-chan time.Time
	commands <-chan string
	temps    <-chan string
	readings <-chan string
	sig      <-chan os.Signal

	// after arms the sequencer wake-up.
	after func(time.Duration) <-chan time.Time
}

func (l *loop) run(in inputs) error {
	l.start()

	for {
		var wake <-chan time.Time
		if due, ok := l.ctrl.NextDue(); ok {
			wake = in.after(due.Sub(l.now()))
		}

		select {
		case s := <-in.sig:
			l.shutdown(s)
			return nil
		case <-in.evaluate:
			l.onEvaluate()
		case <-in.checkup:
			l.onCheckup()
		case <-wake:
			l.onWake()
		case raw := <-in.commands:
			l.onCommand(raw)
		case raw := <-in.temps:
			l.onTemperature(raw)
		case raw := <-in.readings:
			l.onReading(raw)
		}
	}
}

// start publishes the initial report. The controller comes up disabled, so
// this also stops a compressor left running by a previous crash.
func (l *loop) start() {
	l.syncConnection()
	l.dispatch(l.ctrl.Evaluate(l.now()))
}

func (l *loop) onEvaluate() {
	l.syncConnection()
	if l.network != nil {
		if net := l.network(); net != nil {
			l.tracker.SetNetwork(net)
		}
	}
	l.dispatch(l.ctrl.Evaluate(l.now()))
}

func (l *loop) onCheckup() {
	now := l.now()
	l.dispatch(l.ctrl.Advance(now))
	l.dispatch(l.ctrl.Checkup(now))
	l.syncConnection()
}

func (l *loop) onWake() {
	l.dispatch(l.ctrl.Advance(l.now()))
}

func (l *loop) onCommand(raw string) {
	l.log.Infow("command", "payload", raw)
	l.dispatch(l.ctrl.HandleCommand(raw, l.now()))
}

func (l *loop) onTemperature(raw string) {
	l.log.Debugw("temperature", "payload", raw)
	l.dispatch(l.ctrl.HandleTemperature(raw, l.now()))
}

// onReading handles a local probe reading and shares it on the broker.
func (l *loop) onReading(raw string) {
	l.onTemperature(raw)
	if err := l.pub.PublishTemperature(raw); err != nil {
		l.log.Debugw("temperature not published", "err", err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	name := signalName(s)
	l.log.Infow("shutting down", "signal", name)

	now := l.now()
	l.dispatch(l.ctrl.Halt(now))
	l.syncConnection()

	snap := l.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  now,
		Event:      "SHUTDOWN",
		Reason:     name,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
	}
	if err := l.pub.PublishSystem(event); err != nil {
		l.log.Warnw("failed to publish shutdown event", "err", err)
	} else {
		l.log.Infow("published shutdown event")
	}
}

// dispatch fans controller output out to the broker, the tracker, the panel,
// metrics and the log.
func (l *loop) dispatch(events []logic.Event) {
	for _, e := range events {
		l.metrics.Observe(e)

		switch e.Type {
		case logic.EventReport:
			l.tracker.Update(e.Snapshot, l.ctrl.Counts())
			l.publishReport(e)
			l.render(e.Snapshot)

		case logic.EventAlarm:
			l.log.Errorw("interlock tripped", "message", e.Message)
			l.tracker.RecordAlarm(e.Message, e.Timestamp)
			if err := l.pub.PublishAlarm(e.Message); err != nil {
				l.log.Warnw("alarm publish error", "err", err)
			}

		case logic.EventTransition:
			l.log.Infow("duty", "from", e.From, "to", e.To)

		case logic.EventActuator:
			l.log.Infow("relay", "actuator", e.Actuator, "on", e.On)

		case logic.EventAborted:
			l.log.Warnw("sequence aborted", "sequence", e.Sequence, "reason", e.Reason)

		case logic.EventFault:
			l.log.Warnw("fault", "kind", e.Fault, "actuator", e.Actuator, "err", e.Err)
		}
	}
}

func (l *loop) publishReport(e logic.Event) {
	payload, err := status.FormatReport(e.Snapshot, l.labels)
	if err != nil {
		l.log.Errorw("format report", "err", err)
		return
	}
	l.log.Debugw("report", "reason", e.Reason, "payload", string(payload))
	if err := l.pub.PublishReport(payload); err != nil {
		l.log.Warnw("report publish error", "err", err)
	}
}

func (l *loop) render(snap logic.Snapshot) {
	if l.panel == nil {
		return
	}
	if err := l.panel.Render(display.Compose(snap, l.labels.For(snap.Duty))); err != nil {
		l.metrics.DisplayError()
		l.log.Debugw("display render failed", "err", err)
	}
}

func (l *loop) syncConnection() {
	if l.conn == nil {
		return
	}
	connected := l.conn.IsConnected()
	l.tracker.SetMQTTConnected(connected)
	l.metrics.SetMQTTConnected(connected)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
