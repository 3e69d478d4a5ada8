package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalLoggerWritesTextWithoutTime(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(&buf, "warn"), "gateway")

	logger.Info("hidden")
	logger.Warn("request failed", "path", "profile")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered at warn: %q", out)
	}
	if !strings.Contains(out, "msg=\"request failed\"") || !strings.Contains(out, "component=gateway") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Fatalf("terminal lines should not carry a timestamp: %q", out)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud")
	logger.Debug("debug")
	logger.Info("info")
	if strings.Contains(buf.String(), "debug") || !strings.Contains(buf.String(), "msg=info") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestComponentOnNilLogger(t *testing.T) {
	if Component(nil, "x") == nil {
		t.Fatalf("expected a usable logger")
	}
}
