package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriterTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "text", &buf)

	logger.Info("tick handled", "task", 3)

	out := buf.String()
	if !strings.Contains(out, "tick handled") {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, "task=3") {
		t.Errorf("expected task attribute in output, got: %s", out)
	}
}

func TestNewWithWriterJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "json", &buf)

	logger.Info("tick handled", "task", 3)

	out := buf.String()
	if !strings.Contains(out, `"msg":"tick handled"`) {
		t.Errorf("expected JSON msg field, got: %s", out)
	}
}

func TestNewWithWriterLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", "text", &buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-level messages leaked through: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("loud", "text", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Errorf("unknown level should behave as info, got: %s", out)
	}
}
