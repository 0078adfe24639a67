package display

import (
	"time"

	"github.com/sony/gobreaker"
)

// Guarded isolates the control loop from a failing panel: after Failures
// consecutive errors it stops touching the bus for OpenFor, then probes again.
type Guarded struct {
	r  Renderer
	cb *gobreaker.CircuitBreaker
}

// BreakerSettings tunes a Guarded renderer.
type BreakerSettings struct {
	Failures uint32
	OpenFor  time.Duration

	// OnStateChange is called with the breaker's old and new state names.
	OnStateChange func(from, to string)
}

// NewGuarded wraps r in a circuit breaker.
func NewGuarded(name string, r Renderer, s BreakerSettings) *Guarded {
	if s.Failures == 0 {
		s.Failures = 3
	}
	if s.OpenFor <= 0 {
		s.OpenFor = time.Minute
	}
	return &Guarded{
		r: r,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: s.OpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= s.Failures
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				if s.OnStateChange != nil {
					s.OnStateChange(from.String(), to.String())
				}
			},
		}),
	}
}

// Render draws through the breaker. While open it returns
// gobreaker.ErrOpenState without touching the renderer.
func (g *Guarded) Render(lines Lines) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.r.Render(lines)
	})
	return err
}

// State returns the breaker state name.
func (g *Guarded) State() string {
	return g.cb.State().String()
}

// Close closes the wrapped renderer.
func (g *Guarded) Close() error {
	return g.r.Close()
}
