package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// isolate points HOME and XDG_CONFIG_HOME at a temp dir and runs the test
// from an empty working directory so no .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Chdir(tempDir)
	return tempDir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DataPath != DefaultDataPath {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, DefaultDataPath)
	}
	if cfg.Extract.Unpacker != DefaultUnpacker {
		t.Errorf("Extract.Unpacker = %q, want %q", cfg.Extract.Unpacker, DefaultUnpacker)
	}
	if cfg.Extract.MaxPasses != DefaultMaxPasses {
		t.Errorf("Extract.MaxPasses = %d, want %d", cfg.Extract.MaxPasses, DefaultMaxPasses)
	}
	if cfg.Inspect.Extension != DefaultExtension || cfg.Inspect.Output != DefaultOutput || cfg.Inspect.Verbose {
		t.Errorf("Inspect = %+v", cfg.Inspect)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != DefaultCachePath() {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if !cfg.Manifest.Enabled || cfg.Manifest.RetentionDays != DefaultRetentionDays {
		t.Errorf("Manifest = %+v", cfg.Manifest)
	}
	if cfg.Logging.Components["walker"] != "warn" {
		t.Errorf("Logging.Components = %v", cfg.Logging.Components)
	}
	if len(cfg.Exclude) != len(DefaultExclusions) {
		t.Errorf("len(Exclude) = %d, want %d", len(cfg.Exclude), len(DefaultExclusions))
	}

	size, err := cfg.MaxFileSize()
	if err != nil || size != 512*1024*1024 {
		t.Errorf("MaxFileSize() = %d, %v", size, err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := isolate(t)
	configDir := filepath.Join(tempDir, ".config", "datadig")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
data_path: ~/studies
exclude:
  - scratch
extract:
  unpacker: builtin
  max_passes: 4
inspect:
  verbose: true
  output: json
manifest:
  enabled: false
  retention_days: 7
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DataPath != filepath.Join(tempDir, "studies") {
		t.Errorf("DataPath = %q, want expanded home path", cfg.DataPath)
	}
	if cfg.Extract.Unpacker != "builtin" || cfg.Extract.MaxPasses != 4 {
		t.Errorf("Extract = %+v", cfg.Extract)
	}
	if !cfg.Inspect.Verbose || cfg.Inspect.Output != "json" {
		t.Errorf("Inspect = %+v", cfg.Inspect)
	}
	if cfg.Manifest.Enabled || cfg.Manifest.RetentionDays != 7 {
		t.Errorf("Manifest = %+v", cfg.Manifest)
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "scratch" {
		t.Errorf("Exclude = %v", cfg.Exclude)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	tempDir := isolate(t)

	_, err := LoadFile(filepath.Join(tempDir, "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFile() with missing explicit file should fail")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("DATADIG_EXTRACT_UNPACKER", "builtin")
	t.Setenv("DATADIG_DATA_PATH", "/srv/data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extract.Unpacker != "builtin" {
		t.Errorf("Extract.Unpacker = %q, want builtin", cfg.Extract.Unpacker)
	}
	if cfg.DataPath != "/srv/data" {
		t.Errorf("DataPath = %q, want /srv/data", cfg.DataPath)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	tempDir := isolate(t)
	t.Setenv("DATADIG_INSPECT_OUTPUT", "")
	os.Unsetenv("DATADIG_INSPECT_OUTPUT")

	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("DATADIG_INSPECT_OUTPUT=yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("DATADIG_INSPECT_OUTPUT") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Inspect.Output != "yaml" {
		t.Errorf("Inspect.Output = %q, want yaml from .env", cfg.Inspect.Output)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Extract: ExtractConfig{Unpacker: "exec", MaxPasses: 16},
			Inspect: InspectConfig{Extension: ".csv", MaxFileSize: "1G"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"unknown unpacker", func(c *Config) { c.Extract.Unpacker = "7z" }, true},
		{"zero passes", func(c *Config) { c.Extract.MaxPasses = 0 }, true},
		{"extension without dot", func(c *Config) { c.Inspect.Extension = "csv" }, true},
		{"bad size", func(c *Config) { c.Inspect.MaxFileSize = "lots" }, true},
		{"empty size disables limit", func(c *Config) { c.Inspect.MaxFileSize = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	if v.GetString("inspect.output") != DefaultOutput {
		t.Errorf("inspect.output = %q", v.GetString("inspect.output"))
	}
	if v.GetInt("extract.max_passes") != DefaultMaxPasses {
		t.Errorf("extract.max_passes = %d", v.GetInt("extract.max_passes"))
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := isolate(t)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tempDir, "xdg"))

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if want := filepath.Join(tempDir, "xdg", "datadig", "config.yaml"); path != want {
		t.Errorf("WriteDefault() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "unpacker: exec") {
		t.Error("default config missing extract.unpacker")
	}

	if err := os.WriteFile(path, []byte("data_path: /kept\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "data_path: /kept\n" {
		t.Error("WriteDefault() overwrote an existing config")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DataPath != "/kept" {
		t.Errorf("DataPath = %q, want /kept", cfg.DataPath)
	}
}

func TestExpandPath(t *testing.T) {
	tempDir := isolate(t)

	tests := []struct {
		in   string
		want string
	}{
		{"~/data", filepath.Join(tempDir, "data")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
