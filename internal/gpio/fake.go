package gpio

import (
	"fmt"
	"sync"

	"github.com/sweeney/aircon-controller/internal/logic"
)

// Write records a single Set call on a FakeRelays.
type Write struct {
	Actuator logic.Actuator
	On       bool
}

// FakeRelays is an in-memory test double for Relays.
// It is safe for concurrent use so tests can force relay changes while a
// run loop is reading them.
type FakeRelays struct {
	mu sync.Mutex

	state    map[logic.Actuator]bool
	stuck    map[logic.Actuator]bool
	readErr  map[logic.Actuator]error
	writeErr map[logic.Actuator]error
	writes   []Write
	closed   bool
}

// NewFakeRelays creates a FakeRelays with both relays off.
func NewFakeRelays() *FakeRelays {
	return &FakeRelays{
		state:    make(map[logic.Actuator]bool),
		stuck:    make(map[logic.Actuator]bool),
		readErr:  make(map[logic.Actuator]error),
		writeErr: make(map[logic.Actuator]error),
	}
}

// Set records the write and updates the relay unless it is stuck.
func (f *FakeRelays) Set(a logic.Actuator, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkActuator(a); err != nil {
		return err
	}
	if err := f.writeErr[a]; err != nil {
		return err
	}
	f.writes = append(f.writes, Write{Actuator: a, On: on})
	if _, stuck := f.stuck[a]; !stuck {
		f.state[a] = on
	}
	return nil
}

// Read returns the relay state, the stuck value or the scripted error.
func (f *FakeRelays) Read(a logic.Actuator) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkActuator(a); err != nil {
		return false, err
	}
	if err := f.readErr[a]; err != nil {
		return false, err
	}
	if v, stuck := f.stuck[a]; stuck {
		return v, nil
	}
	return f.state[a], nil
}

// Close drives both relays off and marks the fake as closed.
func (f *FakeRelays) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state[logic.ActuatorCompressor] = false
	f.state[logic.ActuatorFan] = false
	f.closed = true
	return nil
}

// Force changes a relay as if something outside the controller had switched it.
func (f *FakeRelays) Force(a logic.Actuator, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[a] = on
}

// Stick pins Read to the given value regardless of writes, like a welded contact.
func (f *FakeRelays) Stick(a logic.Actuator, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stuck[a] = on
}

// Unstick releases a relay pinned by Stick.
func (f *FakeRelays) Unstick(a logic.Actuator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stuck, a)
}

// FailReads makes Read return err for a (nil clears it).
func (f *FakeRelays) FailReads(a logic.Actuator, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr[a] = err
}

// FailWrites makes Set return err for a (nil clears it).
func (f *FakeRelays) FailWrites(a logic.Actuator, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr[a] = err
}

// State returns the current relay level.
func (f *FakeRelays) State(a logic.Actuator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[a]
}

// Writes returns a copy of every successful Set call so far.
func (f *FakeRelays) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// Closed reports whether Close was called.
func (f *FakeRelays) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded writes and returns both relays to off.
func (f *FakeRelays) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = make(map[logic.Actuator]bool)
	f.stuck = make(map[logic.Actuator]bool)
	f.writes = nil
	f.closed = false
}

func checkActuator(a logic.Actuator) error {
	switch a {
	case logic.ActuatorFan, logic.ActuatorCompressor:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownActuator, a)
}
