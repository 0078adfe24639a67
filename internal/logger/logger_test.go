package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{DebugLevel, InfoLevel, WarnLevel, ErrorLevel} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	if ValidLevel("trace") {
		t.Error("expected trace to be invalid")
	}
}

func TestNewWithCoreNamed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore(core).Named("mqtt")

	log.Debugw("hidden")
	log.Infow("connected", "broker", "tcp://localhost:1883")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "mqtt" {
		t.Errorf("logger name: got %q, want mqtt", entries[0].LoggerName)
	}
	if got := entries[0].ContextMap()["broker"]; got != "tcp://localhost:1883" {
		t.Errorf("broker field: got %v", got)
	}
}

func TestNewNop(t *testing.T) {
	// Must not panic.
	NewNop().Infow("discarded", "k", "v")
}
