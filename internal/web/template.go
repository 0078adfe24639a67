package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/aircon-controller/internal/display"
	"github.com/sweeney/aircon-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	},
	"ms": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>AirCon Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alarm { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
pre.lcd { background: #1d3b1d; color: #b6f0b6; padding: 8px; display: inline-block; }
</style>
</head>
<body>
<h1>AirCon Controller</h1>

<pre class="lcd">{{range .Panel}}{{.}}
{{end}}</pre>

<h2>State</h2>
<table>
<tr><th>System</th><td id="enabled" class="{{if .Controller.Enabled}}on{{else}}off{{end}}">{{if .Controller.Enabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Task</th><td id="task">{{.Task}}</td></tr>
<tr><th>In state</th><td>{{uptime .Elapsed}}</td></tr>
<tr><th>Fan</th><td id="fan" class="{{if .Controller.Fan}}on{{else}}off{{end}}">{{onoff .Controller.Fan}}</td></tr>
<tr><th>Compressor</th><td id="compressor" class="{{if .Controller.Compressor}}on{{else}}off{{end}}">{{onoff .Controller.Compressor}}</td></tr>
<tr><th>Temperature</th><td id="temp">{{.Controller.CurrentTemp}}</td></tr>
<tr><th>Setpoint</th><td id="setpoint">{{.Controller.Setpoint}}</td></tr>
<tr><th>Ready</th><td>{{if .Reported}}yes{{else}}no{{end}}</td></tr>
{{if .LastAlarm}}<tr><th>Last alarm</th><td class="alarm">{{.LastAlarmAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.ControlTopic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counters</h2>
<table>
<tr><th>Transitions</th><td>{{.Counts.Transitions}}</td></tr>
<tr><th>E-stops</th><td id="estops">{{.Counts.EStops}}</td></tr>
<tr><th>Startups aborted</th><td>{{.Counts.StartupsAborted}}</td></tr>
<tr><th>Shutdowns aborted</th><td>{{.Counts.ShutdownsAborted}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Evaluate</th><td>every {{ms .Config.EvaluateEveryMs}}</td></tr>
<tr><th>Checkup</th><td>every {{ms .Config.CheckupEveryMs}}</td></tr>
<tr><th>Startup delay</th><td>{{ms .Config.StartupDelayMs}}</td></tr>
<tr><th>Defrost delay</th><td>{{ms .Config.DefrostDelayMs}}</td></tr>
<tr><th>Compressor min-off</th><td>{{if eq .Config.CompressorMinOffMs 0}}disabled{{else}}{{ms .Config.CompressorMinOffMs}}{{end}}</td></tr>
<tr><th>Hysteresis</th><td>{{.Config.Hysteresis}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	ctrl := snap.Controller
	ctrl.ElapsedInState = snap.ElapsedInState()
	lines := display.Compose(ctrl, snap.Task())
	data := struct {
		status.Snapshot
		Task    string
		Uptime  time.Duration
		Elapsed time.Duration
		Panel   []string
	}{
		Snapshot: snap,
		Task:     snap.Task(),
		Uptime:   snap.Uptime(),
		Elapsed:  snap.ElapsedInState(),
		Panel:    lines[:],
	}
	indexTmpl.Execute(w, data)
}
