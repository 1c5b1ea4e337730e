package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/datadig/pkg/datadig/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"warn", logging.LevelWarn, false},
		{"warning", logging.LevelWarn, false},
		{" error ", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, logging.ErrInvalidLevel) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	if logging.LevelWarn.String() != "warn" {
		t.Errorf("LevelWarn.String() = %q", logging.LevelWarn.String())
	}
	if logging.Level(42).String() != "unknown" {
		t.Errorf("Level(42).String() = %q", logging.Level(42).String())
	}
}

// Tests below modify global state and must not run in parallel.

func TestInit_WritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "datadig.log")

	if err := logging.Init(logging.Config{Level: "info", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	logger := logging.Get("extract")
	logger.Info("extracted archive", "path", "/data/a.zip")
	logger.Debug("hidden debug line")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "extracted archive") {
		t.Errorf("log missing info line: %q", content)
	}
	if !strings.Contains(content, "extract") {
		t.Errorf("log missing component prefix: %q", content)
	}
	if strings.Contains(content, "hidden debug line") {
		t.Errorf("debug line written at info level: %q", content)
	}
}

func TestInit_ComponentOverride(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "components.log")

	err := logging.Init(logging.Config{
		Level:      "warn",
		Path:       logPath,
		Components: map[string]string{"inspect": "debug"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	logging.Get("inspect").Debug("inspect debug")
	logging.Get("walker").Info("walker info")
	_ = logging.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "inspect debug") {
		t.Error("component override not applied")
	}
	if strings.Contains(string(data), "walker info") {
		t.Error("default level not applied")
	}
}

func TestInit_Console(t *testing.T) {
	var console bytes.Buffer

	err := logging.Init(logging.Config{
		Level:        "debug",
		Path:         filepath.Join(t.TempDir(), "console.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	logger := logging.Get("cache")
	logger.Info("quiet on console")
	logger.Warn("loud on console")

	if strings.Contains(console.String(), "quiet on console") {
		t.Error("info line reached console at warn level")
	}
	if !strings.Contains(console.String(), "loud on console") {
		t.Error("warn line missing from console")
	}
}

func TestGet_LoggerCreatedBeforeInit(t *testing.T) {
	early := logging.Get("early-component")
	early.Info("dropped before init")

	logPath := filepath.Join(t.TempDir(), "early.log")
	if err := logging.Init(logging.Config{Level: "info", Path: logPath}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = logging.Close() })

	early.Info("written after init")
	_ = logging.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if strings.Contains(string(data), "dropped before init") {
		t.Error("line logged before Init reached the file")
	}
	if !strings.Contains(string(data), "written after init") {
		t.Error("package-level logger not rebound after Init")
	}
}

func TestInit_InvalidLevel(t *testing.T) {
	err := logging.Init(logging.Config{Level: "nope", Path: filepath.Join(t.TempDir(), "x.log")})
	if !errors.Is(err, logging.ErrInvalidLevel) {
		t.Errorf("Init() error = %v, want ErrInvalidLevel", err)
	}
}

func TestClose_WithoutInit(t *testing.T) {
	if err := logging.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestGet_ReturnsSameLogger(t *testing.T) {
	a := logging.Get("same")
	b := logging.Get("same")
	if a != b {
		t.Error("Get returned different loggers for one component")
	}
}
