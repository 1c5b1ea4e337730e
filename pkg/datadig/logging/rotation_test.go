package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/datadig/pkg/datadig/logging"
)

func countLogFiles(t *testing.T, dir, prefix string) int {
	t.Helper()
	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	n := 0
	for _, f := range files {
		if strings.HasPrefix(f.Name(), prefix) && strings.HasSuffix(f.Name(), ".log") {
			n++
		}
	}
	return n
}

func TestRotationBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer, err := logging.NewRotatingWriter(filepath.Join(dir, "size.log"), logging.RotationConfig{
		MaxSize: 256,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		if _, err := writer.Write([]byte(strings.Repeat("x", 50) + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if n := countLogFiles(t, dir, "size"); n < 2 {
		t.Errorf("expected at least 2 log files after rotation, got %d", n)
	}
}

func TestRotationMaxBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"app.2024-01-01-000000.log", "app.2024-01-02-000000.log", "app.2024-01-03-000000.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writer, err := logging.NewRotatingWriter(filepath.Join(dir, "app.log"), logging.RotationConfig{
		MaxSize:    1024,
		MaxBackups: 1,
	})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer writer.Close()

	// app.log plus one retained backup.
	if n := countLogFiles(t, dir, "app"); n != 2 {
		t.Errorf("expected 2 log files after pruning, got %d", n)
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	t.Parallel()

	writer, err := logging.NewRotatingWriter(filepath.Join(t.TempDir(), "closed.log"), logging.RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := writer.Write([]byte("late\n")); err == nil {
		t.Error("Write() after Close() succeeded")
	}
}

func TestDefaultRotationConfig(t *testing.T) {
	cfg := logging.DefaultRotationConfig()
	if cfg.MaxSize != 10*1024*1024 || cfg.MaxBackups != 5 || cfg.MaxAge != 30 || !cfg.Daily {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
