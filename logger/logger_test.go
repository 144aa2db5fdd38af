package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "test-service", "debug")
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	line := lastNonEmptyLine(buf.String())
	if line == "" {
		t.Fatalf("no output captured")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, line)
	}
	if svc, ok := payload["service"].(string); !ok || svc != "test-service" {
		t.Fatalf("expected service=\"test-service\", got %v", payload["service"])
	}
	if lvl, ok := payload["level"].(string); !ok || lvl != "error" {
		t.Fatalf("expected level=\"error\", got %v", payload["level"])
	}
	if _, ok := payload["stack"]; !ok {
		t.Fatalf("expected stack field in error log: %s", line)
	}
}

func TestLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "warn")
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %s", buf.String())
	}
	log.Warn().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not written: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" ERROR ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
