package logging

import "testing"

func TestNewWithLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		logger := New(level)
		if logger == nil || logger.Logger == nil {
			t.Fatalf("expected logger for level %q", level)
		}
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected default logger")
	}
}

func TestComponent(t *testing.T) {
	logger := Default().Component("booking")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected component logger")
	}
	var nilLogger *Logger
	if nilLogger.Component("booking") == nil {
		t.Fatal("nil receiver should fall back to default")
	}
}
