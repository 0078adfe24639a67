package status

import (
	"encoding/json"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// TimestampLayout is the local date/time format of the report Timestamp.
const TimestampLayout = "1/2/2006 3:04:05 PM"

// Report is the JSON status published on the control topic. Field names are
// part of the wire contract.
type Report struct {
	Enabled   bool    `json:"Enabled"`
	Task      string  `json:"Task"`
	Runtime   int64   `json:"Runtime"`
	FanON     bool    `json:"FanON"`
	CompON    bool    `json:"CompON"`
	Temp      float64 `json:"Temp"`
	SetTemp   float64 `json:"SetTemp"`
	Timestamp string  `json:"Timestamp"`
}

// NewReport projects a controller snapshot onto the wire format.
func NewReport(snap logic.Snapshot, labels Labels) Report {
	return Report{
		Enabled:   snap.Enabled,
		Task:      labels.For(snap.Duty),
		Runtime:   snap.ElapsedInState.Milliseconds(),
		FanON:     snap.Fan,
		CompON:    snap.Compressor,
		Temp:      snap.CurrentTemp,
		SetTemp:   snap.Setpoint,
		Timestamp: snap.Timestamp.Local().Format(TimestampLayout),
	}
}

// FormatReport returns the JSON report for snap.
func FormatReport(snap logic.Snapshot, labels Labels) ([]byte, error) {
	return json.Marshal(NewReport(snap, labels))
}
