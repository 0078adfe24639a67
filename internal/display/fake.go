package display

import "sync"

// FakeRenderer records frames for test assertions.
type FakeRenderer struct {
	mu     sync.Mutex
	frames []Lines

	// RenderError, if set, is returned by Render.
	RenderError error

	closed bool
}

// NewFakeRenderer creates a FakeRenderer.
func NewFakeRenderer() *FakeRenderer {
	return &FakeRenderer{}
}

// Render records the frame.
func (f *FakeRenderer) Render(lines Lines) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RenderError != nil {
		return f.RenderError
	}
	f.frames = append(f.frames, lines)
	return nil
}

// SetError changes RenderError under the lock.
func (f *FakeRenderer) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RenderError = err
}

// Frames returns a copy of the recorded frames.
func (f *FakeRenderer) Frames() []Lines {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Lines(nil), f.frames...)
}

// Last returns the most recent frame.
func (f *FakeRenderer) Last() (Lines, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return Lines{}, false
	}
	return f.frames[len(f.frames)-1], true
}

// Close marks the renderer as closed.
func (f *FakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeRenderer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
