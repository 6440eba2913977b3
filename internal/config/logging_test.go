package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (&Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := (&Config{Env: "production", LogLevel: "warn"}).NewLogger(&buf)

	log.Info("dropped")
	log.Warn("kept", slog.String("media_id", "m1"))

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"media_id":"m1"`) {
		t.Errorf("expected a JSON line, got %q", out)
	}
}
