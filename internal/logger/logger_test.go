package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriter_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("import started", "elements", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["message"] != "import started" {
		t.Errorf("expected message %q, got %v", "import started", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("expected level info, got %v", entry["level"])
	}
	if entry["elements"] != float64(3) {
		t.Errorf("expected elements 3, got %v", entry["elements"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("should be filtered")
	log.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should be filtered") {
		t.Error("info message should have been filtered at warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn message missing from output")
	}
	if !strings.Contains(output, `"level":"warning"`) {
		t.Errorf("expected warn level renamed to warning, got %s", output)
	}
}

func TestWithModule(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).WithModule("filecache")

	log.Info("file cached")

	if !strings.Contains(buf.String(), `"module":"filecache"`) {
		t.Errorf("expected module field, got %s", buf.String())
	}
}

func TestWithRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).WithRecord("10005-2023-SS")

	log.Error("record import failed")

	if !strings.Contains(buf.String(), `"moodle_pid_value":"10005-2023-SS"`) {
		t.Errorf("expected moodle_pid_value field, got %s", buf.String())
	}
}

func TestFormattedHelpers(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Debugf("processed %d of %d", 2, 5)

	if !strings.Contains(buf.String(), "processed 2 of 5") {
		t.Errorf("expected formatted message, got %s", buf.String())
	}
}
