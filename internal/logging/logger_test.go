package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestWithRunIDReplacesPreviousID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	tests := []struct {
		runID    string
		expected string
		stale    string
	}{
		{"run-1", `"run_id":"run-1"`, ""},
		{"run-2", `"run_id":"run-2"`, `"run_id":"run-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.runID, func(t *testing.T) {
			buf.Reset()
			WithRunID(tt.runID)
			Info().Msg("Run started")

			line := buf.String()
			if !strings.Contains(line, tt.expected) {
				t.Errorf("Expected %s in %q", tt.expected, line)
			}
			if got := strings.Count(line, `"run_id"`); got != 1 {
				t.Errorf("Expected 1 run_id field, got %d in %q", got, line)
			}
			if tt.stale != "" && strings.Contains(line, tt.stale) {
				t.Errorf("Expected %s to be dropped, got %q", tt.stale, line)
			}
		})
	}
}

func TestInitLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected bool
	}{
		{"debug", true},
		{"info", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			Init(Config{Level: tt.level, Output: &buf})
			t.Cleanup(func() { Init(DefaultConfig()) })

			Debug().Msg("detail")
			if got := buf.Len() > 0; got != tt.expected {
				t.Errorf("Expected debug output %t, got %t", tt.expected, got)
			}
		})
	}
}
