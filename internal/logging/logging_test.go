package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelWarn {
		t.Errorf("Expected default level %s, got %s", LevelWarn, cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Expected default format %s, got %s", FormatText, cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got '%s'", cfg.Output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{LevelError, slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(Config{Level: LevelInfo, Format: FormatJSON}, &buf)

		logger.WithRunID("run-1").InfoScan("scan started", "127.0.0.1", "ports", 10)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
		}
		if entry["target"] != "127.0.0.1" {
			t.Errorf("expected target field, got %v", entry["target"])
		}
		if entry["run_id"] != "run-1" {
			t.Errorf("expected run_id field, got %v", entry["run_id"])
		}
		if entry["ports"] != float64(10) {
			t.Errorf("expected ports field, got %v", entry["ports"])
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(Config{Level: LevelWarn, Format: FormatText}, &buf)

		logger.Info("hidden")
		logger.ErrorScan("probe failed", "10.0.0.1", errors.New("boom"))

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("info line should be filtered at warn level: %q", out)
		}
		if !strings.Contains(out, "target=10.0.0.1") || !strings.Contains(out, "error=boom") {
			t.Errorf("expected target and error fields in %q", out)
		}
	})

	t.Run("component field", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(Config{Level: LevelDebug}, &buf).WithComponent("engine").WithTarget("::1")
		logger.Debug("tick")

		if !strings.Contains(buf.String(), "component=engine") || !strings.Contains(buf.String(), "target=::1") {
			t.Errorf("expected component and target fields, got %q", buf.String())
		}
	})
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "portprowler.log")

	logger, err := New(Config{Level: LevelInfo, Format: FormatText, Output: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("expected log line in file, got %q", string(data))
	}
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: LevelDebug}, &buf))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	for _, level := range []string{"DEBUG", "INFO", "WARN", "ERROR"} {
		if !strings.Contains(out, "level="+level) {
			t.Errorf("expected %s entry in %q", level, out)
		}
	}
}
