package logger

import (
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Reset defaultLogger
	defaultLogger = nil

	Init("debug")

	if defaultLogger == nil {
		t.Fatal("defaultLogger should not be nil after Init")
	}

	// Reset for other tests
	defaultLogger = nil
}

func TestGet(t *testing.T) {
	defaultLogger = nil

	logger := Get()
	if logger == nil {
		t.Fatal("Get() should return a logger")
	}

	defaultLogger = nil
}

func TestWithComponent(t *testing.T) {
	defaultLogger = nil

	logger := WithComponent("cluster")
	if logger == nil {
		t.Fatal("WithComponent should return a logger")
	}

	defaultLogger = nil
}
