package mqtt

import "sync"

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use.
type FakePublisher struct {
	mu sync.Mutex

	reports      [][]byte
	alarms       []string
	temperatures []string
	systemEvents []SystemEvent

	// PublishError, if set, is returned by every Publish method.
	PublishError error

	closed    bool
	connected bool
}

// NewFakePublisher creates a connected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{connected: true}
}

// PublishReport records the report payload.
func (f *FakePublisher) PublishReport(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.reports = append(f.reports, append([]byte(nil), payload...))
	return nil
}

// PublishAlarm records the alarm text.
func (f *FakePublisher) PublishAlarm(message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.alarms = append(f.alarms, message)
	return nil
}

// PublishTemperature records the reading.
func (f *FakePublisher) PublishTemperature(reading string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.temperatures = append(f.temperatures, reading)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.systemEvents = append(f.systemEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected controls the return value of IsConnected.
func (f *FakePublisher) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// Reports returns a copy of the recorded report payloads.
func (f *FakePublisher) Reports() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.reports...)
}

// Alarms returns a copy of the recorded alarms.
func (f *FakePublisher) Alarms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.alarms...)
}

// Temperatures returns a copy of the recorded readings.
func (f *FakePublisher) Temperatures() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.temperatures...)
}

// SystemEvents returns a copy of the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = nil
	f.alarms = nil
	f.temperatures = nil
	f.systemEvents = nil
	f.PublishError = nil
	f.closed = false
}
