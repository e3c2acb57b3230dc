package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := Setup(Config{Format: "json", Level: "warn", Output: &buf})
	logger.Info("dropped")
	Component(logger, "seed").Warn("kept", "table", "teams_historical")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line emitted at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"seed"`) || !strings.Contains(out, `"table":"teams_historical"`) {
		t.Errorf("missing structured fields: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
