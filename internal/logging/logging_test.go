package logging

import (
	"testing"
)

func TestLogLevelConstants(t *testing.T) {
	// Levels must be ordered so that threshold comparisons work
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestGetLevelIsStable(t *testing.T) {
	// The level is latched on first read; subsequent reads must agree.
	first := GetLevel()
	for i := 0; i < 3; i++ {
		if got := GetLevel(); got != first {
			t.Fatalf("GetLevel() changed between calls: %v then %v", first, got)
		}
	}
}
