package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dht-sensor/internal/frame"
	"github.com/sweeney/dht-sensor/internal/status"
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
	"tenths": tenths,
}).Parse(indexHTML))

// tenths formats a tenths-scaled integer with one decimal.
func tenths(v int) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%d", sign, v/10, v%10)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>DHT22 Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-size: 1.6em; font-weight: bold; }
.stale { color: #888; }
.ok { color: green; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>DHT22 Sensor</h1>

<h2>Reading</h2>
<table>
{{if .HasValid}}<tr><th>Humidity</th><td id="humidity" class="value{{if .Stale}} stale{{end}}">{{tenths .Humidity}} %</td></tr>
<tr><th>Temperature</th><td id="temperature" class="value{{if .Stale}} stale{{end}}">{{tenths .Temperature}} °C</td></tr>
{{else}}<tr><th>Humidity</th><td id="humidity" class="unknown">--</td></tr>
<tr><th>Temperature</th><td id="temperature" class="unknown">--</td></tr>
{{end}}<tr><th>Last cycle</th><td id="error" class="{{if not .HasLatest}}unknown{{else if .Latest.Valid}}ok{{else}}fault{{end}}">{{if .HasLatest}}{{.Latest.Error}}{{else}}waiting{{end}}</td></tr>
<tr><th>Health</th><td class="{{if eq .HealthText "OK"}}ok{{else if eq .HealthText "FAULT"}}fault{{else}}unknown{{end}}">{{.HealthText}}</td></tr>
<tr><th>State</th><td>{{.State}}</td></tr>
</table>

<h2>Diagnostics</h2>
<table>
<tr><th>Cycles</th><td>{{.Stats.Cycles}}</td></tr>
<tr><th>Valid</th><td>{{.Stats.Valid}}</td></tr>
<tr><th>Checksum failures</th><td>{{.Stats.ChecksumFailures}}</td></tr>
<tr><th>Acquisition failures</th><td>{{.Stats.AcquisitionFailures}}</td></tr>
{{range .Kinds}}<tr><th>{{.Name}}</th><td>{{.Count}}</td></tr>
{{end}}<tr><th>Dropped edges</th><td>{{.Stats.Dropped}}</td></tr>
<tr><th>Stray edges</th><td>{{.Stats.Stray}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensor</th><td>{{if .Config.Simulate}}simulated{{else}}{{.Config.Chip}} line {{.Config.Line}}{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

type kindCount struct {
	Name  string
	Count uint32
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has methods but the template needs plain fields.
	data := struct {
		status.Snapshot
		Uptime      time.Duration
		Humidity    int
		Temperature int
		Stale       bool
		HealthText  string
		Kinds       []kindCount
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		Humidity:    int(snap.LastValid.Humidity),
		Temperature: int(snap.LastValid.Temperature),
		Stale:       snap.HasLatest && !snap.Latest.Valid,
		HealthText:  string(snap.Health),
	}
	if data.HealthText == "" {
		data.HealthText = "UNKNOWN"
	}
	for _, k := range frame.Kinds {
		data.Kinds = append(data.Kinds, kindCount{Name: k.String(), Count: snap.Stats.Failed(k)})
	}
	indexTmpl.Execute(w, data)
}
