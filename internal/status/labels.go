package status

import (
	"fmt"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// Labels maps duty states onto the Task strings shown on the wire and the
// display. Downstream dashboards match on these, so they are configurable.
type Labels struct {
	Off        string `mapstructure:"off"`
	Idle       string `mapstructure:"idle"`
	Cooling    string `mapstructure:"cooling"`
	Defrosting string `mapstructure:"defrosting"`
}

// DefaultLabels returns the label set of the stock deployment.
func DefaultLabels() Labels {
	return Labels{
		Off:        "OFF",
		Idle:       "Idle",
		Cooling:    "Cool",
		Defrosting: "Defrosting",
	}
}

// For returns the label for d, or the duty's own name if it has none.
func (l Labels) For(d logic.DutyState) string {
	var s string
	switch d {
	case logic.DutyOff:
		s = l.Off
	case logic.DutyIdle:
		s = l.Idle
	case logic.DutyCooling:
		s = l.Cooling
	case logic.DutyDefrosting:
		s = l.Defrosting
	}
	if s == "" {
		return string(d)
	}
	return s
}

// Validate rejects empty and duplicate labels, and labels the command
// parser would act on when a report echoes back on the shared topic.
func (l Labels) Validate() error {
	seen := make(map[string]string, 4)
	for _, kv := range [][2]string{
		{"off", l.Off}, {"idle", l.Idle}, {"cooling", l.Cooling}, {"defrosting", l.Defrosting},
	} {
		if kv[1] == "" {
			return fmt.Errorf("label for %s is empty", kv[0])
		}
		if logic.ReadsAsCommand(kv[1]) {
			return fmt.Errorf("label %q for %s reads as a command", kv[1], kv[0])
		}
		if prev, ok := seen[kv[1]]; ok {
			return fmt.Errorf("label %q used for both %s and %s", kv[1], prev, kv[0])
		}
		seen[kv[1]] = kv[0]
	}
	return nil
}
