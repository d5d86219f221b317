package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewWithWriterTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "arena-area", slog.LevelInfo)
	log.Debug("hidden")
	log.Info("team created", "team_id", 4)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "arena-area" || entry["msg"] != "team created" || entry["team_id"] != float64(4) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, ok := ParseLevel(in)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %v %v, want %v", in, got, ok, want)
		}
	}
	if got, ok := ParseLevel("loud"); ok || got != slog.LevelInfo {
		t.Fatalf("expected fallback to info, got %v %v", got, ok)
	}
}
