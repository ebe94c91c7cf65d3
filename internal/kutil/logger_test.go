package kutil

import (
	"log/slog"
	"testing"
)

func TestParseLevelKnownNames(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for name, want := range cases {
		// parseLevel must never panic and must fall back to Info for
		// anything it doesn't recognize.
		if got := parseLevel(name); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewLoggerEnablesRequestedLevel(t *testing.T) {
	log := NewLogger("debug", "spt")
	if log == nil {
		t.Fatalf("NewLogger returned nil")
	}
	if !log.Enabled(nil, -4) { // slog.LevelDebug == -4
		t.Fatalf("logger built with level=debug does not have debug enabled")
	}
}
