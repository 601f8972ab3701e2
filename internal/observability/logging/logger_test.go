package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func logLine(t *testing.T, service, level string, log func(*slog.Logger)) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	log(newJSONLogger(&buf, service, level))
	if buf.Len() == 0 {
		return nil
	}
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v: %s", err, buf.String())
	}
	return record
}

func TestLoggerTagsService(t *testing.T) {
	record := logLine(t, "worker", "info", func(l *slog.Logger) { l.Info("hello") })
	if record["service"] != "worker" {
		t.Errorf("expected service tag worker, got %v", record["service"])
	}

	record = logLine(t, "  ", "info", func(l *slog.Logger) { l.Info("hello") })
	if record["service"] != "docxp" {
		t.Errorf("expected fallback service tag, got %v", record["service"])
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	if record := logLine(t, "api", "warn", func(l *slog.Logger) { l.Info("suppressed") }); record != nil {
		t.Errorf("info record emitted at warn level: %v", record)
	}
	if record := logLine(t, "api", "warn", func(l *slog.Logger) { l.Warn("kept") }); record == nil {
		t.Error("warn record suppressed at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
