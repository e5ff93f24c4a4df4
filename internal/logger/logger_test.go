package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestConfigure_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "info", Format: "json", Output: &buf})
	defer Configure(Options{Level: "info"})

	Info("section decoded", "section", "trends", "attempt", 2)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "section decoded" {
		t.Errorf("Expected message 'section decoded', got %v", line["message"])
	}
	if line["section"] != "trends" {
		t.Errorf("Expected section field 'trends', got %v", line["section"])
	}
	if line["attempt"] != float64(2) {
		t.Errorf("Expected attempt field 2, got %v", line["attempt"])
	}
}

func TestConfigure_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})
	defer Configure(Options{Level: "info"})

	Debug("hidden")
	Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below warn level, got %q", buf.String())
	}

	Error("persist failed", errors.New("boom"), "report_id", "r-1")
	if !bytes.Contains(buf.Bytes(), []byte(`"error":"boom"`)) {
		t.Errorf("Expected error field in output, got %q", buf.String())
	}
}

func TestFields_OddArguments(t *testing.T) {
	m := fields([]any{"a", 1, "dangling"})
	if m["a"] != 1 {
		t.Errorf("Expected a=1, got %v", m["a"])
	}
	if m["!BADKEY"] != "dangling" {
		t.Errorf("Expected dangling key recorded under !BADKEY, got %v", m["!BADKEY"])
	}

	if fields(nil) != nil {
		t.Error("Expected nil map for no arguments")
	}
}
