package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_ConsoleFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "WARN"
	l, closer, err := New(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	l.Info("hidden")
	l.Warn("shown", "rule", "start")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "rule=start") {
		t.Errorf("expected warning with attrs, got %q", out)
	}
}

func TestNew_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.FileEnabled = true
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "test.log")

	l, closer, err := New(cfg, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Error("boom")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"boom"`) {
		t.Errorf("file log = %q, want JSON record", data)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("console log = %q, want message", buf.String())
	}
}

func TestSet_RestoresDefault(t *testing.T) {
	var buf bytes.Buffer
	Set(slog.New(slog.NewTextHandler(&buf, nil)))
	Warning("captured")
	Set(nil)

	if !strings.Contains(buf.String(), "captured") {
		t.Errorf("expected message in custom logger, got %q", buf.String())
	}
	if L() != slog.Default() {
		t.Error("Set(nil) should restore slog.Default()")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DUNGEONRULES_LOG_LEVEL", "debug")
	t.Setenv("DUNGEONRULES_LOG_FILE", "/tmp/x.log")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Level != "DEBUG" {
		t.Errorf("Level = %q, want DEBUG", cfg.Level)
	}
	if !cfg.FileEnabled || cfg.FilePath != "/tmp/x.log" {
		t.Errorf("file = %v %q, want enabled /tmp/x.log", cfg.FileEnabled, cfg.FilePath)
	}
}
