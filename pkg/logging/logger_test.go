package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if logger := New(level); logger == nil || logger.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestComponentOnNilLogger(t *testing.T) {
	var logger *Logger
	child := logger.Component("conversation")
	if child == nil || child.Logger == nil {
		t.Fatal("expected a usable logger from nil receiver")
	}
}
