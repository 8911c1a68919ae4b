package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug().Str("run_id", "abc").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
	if entry["message"] != "hello" || entry["run_id"] != "abc" || entry["level"] != "debug" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp")
	}
}

func TestDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "json", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at the default level, got %q", buf.String())
	}
	logger.Warn().Msg("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("expected warn entry, got %q", buf.String())
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("INFO", "", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Str("tool", "sh").Msg("tool call")
	out := buf.String()
	if !strings.Contains(out, "tool call") || !strings.Contains(out, "tool=sh") {
		t.Errorf("unexpected console output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("non-terminal output must not be colored: %q", out)
	}
}

func TestInvalidSettings(t *testing.T) {
	if _, err := New("loud", "json", nil); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}
