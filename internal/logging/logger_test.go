package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"graphout/internal/config"
)

// TestColorLineWriter_HighlightsLevelAndTokens verifies level and token coloring.
// Params: testing.T for assertions.
// Returns: none.
func TestColorLineWriter_HighlightsLevelAndTokens(t *testing.T) {
	var dst bytes.Buffer
	writer := &colorLineWriter{dst: &dst}

	line := `level=INFO msg="hello" peer=10.20.30.40 retries=3`
	if _, err := writer.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}

	rendered := dst.String()
	if !strings.HasPrefix(rendered, ansiBlue) {
		t.Fatalf("expected INFO line base color")
	}
	if !strings.Contains(rendered, ansiGreen+`"hello"`+ansiReset+ansiBlue) {
		t.Fatalf("expected quoted string token color")
	}
	if !strings.Contains(rendered, ansiCyan+`10.20.30.40`+ansiReset+ansiBlue) {
		t.Fatalf("expected IP token color")
	}
	if !strings.Contains(rendered, ansiYellow+`3`+ansiReset+ansiBlue) {
		t.Fatalf("expected number token color")
	}
	if !strings.HasSuffix(rendered, ansiReset) {
		t.Fatalf("expected trailing reset sequence")
	}
}

// TestColorLineWriter_NoLevelColor verifies passthrough for unknown levels.
// Params: testing.T for assertions.
// Returns: none.
func TestColorLineWriter_NoLevelColor(t *testing.T) {
	var dst bytes.Buffer
	writer := &colorLineWriter{dst: &dst}

	line := `msg="plain" value=42`
	if _, err := writer.Write([]byte(line)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := dst.String(); got != line {
		t.Fatalf("expected passthrough line, got %q", got)
	}
}

// TestNewLogger_FansOutToConsoleAndFile verifies both sinks receive records with their own levels.
// Params: testing.T for assertions.
// Returns: none.
func TestNewLogger_FansOutToConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "graphout.log")

	logger, closeFn, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "warn", Format: "line"},
		File:    config.LogSinkConfig{Enabled: true, Level: "debug", Format: "json", Path: path},
	}, &console, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Debug("dial attempt", "host", "carbon")
	logger.Warn("connection to graphite server failed, sleeping", "port", 2003)
	closeFn()

	consoleOut := console.String()
	if strings.Contains(consoleOut, "dial attempt") {
		t.Fatalf("debug record leaked into warn console: %q", consoleOut)
	}
	if !strings.Contains(consoleOut, "level=WARN") || !strings.Contains(consoleOut, "port=2003") {
		t.Fatalf("unexpected console output: %q", consoleOut)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	fileOut := string(raw)
	if !strings.Contains(fileOut, `"msg":"dial attempt"`) || !strings.Contains(fileOut, `"level":"WARN"`) {
		t.Fatalf("unexpected file output: %q", fileOut)
	}
}

// TestNewLogger_RejectsUnknownLevel verifies level parsing errors surface.
// Params: testing.T for assertions.
// Returns: none.
func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, _, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "loud", Format: "line"},
	}, &bytes.Buffer{}, false)
	if err == nil {
		t.Fatalf("expected level error")
	}
}

// TestNewLogger_PanicLevelLabel verifies the panic level renders with its own label.
// Params: testing.T for assertions.
// Returns: none.
func TestNewLogger_PanicLevelLabel(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "panic", Format: "line"},
	}, &console, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Error("filtered")
	logger.Log(context.Background(), levelPanic, "fatal state")

	out := console.String()
	if strings.Contains(out, "filtered") {
		t.Fatalf("error record should be below panic level: %q", out)
	}
	if !strings.Contains(out, "level=PANIC") {
		t.Fatalf("expected PANIC label, got %q", out)
	}
}
