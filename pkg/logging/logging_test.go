package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"emberhq/ember/pkg/config"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Errorf("Unexpected record: %v", record)
	}
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("Expected text format, got %q", buf.String())
	}
}

func TestSetup_LevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Expected info suppressed at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("Expected warn record emitted")
	}
}

func TestSetup_LevelVarRetunesAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger, levelVar, err := Setup(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	logger.Debug("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("Expected debug suppressed, got %q", buf.String())
	}

	levelVar.Set(slog.LevelDebug)
	logger.Debug("emitted")
	if buf.Len() == 0 {
		t.Error("Expected debug emitted after level change")
	}
}

func TestSetup_InvalidInputs(t *testing.T) {
	if _, _, err := Setup(config.LoggingConfig{Level: "loud", Format: "json"}, nil); err == nil {
		t.Error("Expected invalid level to be rejected")
	}
	if _, _, err := Setup(config.LoggingConfig{Level: "info", Format: "xml"}, nil); err == nil {
		t.Error("Expected invalid format to be rejected")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.input, tt.want, got)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected unknown level to be rejected")
	}
}
