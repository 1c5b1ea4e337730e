package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jamesainslie/datadig/pkg/datadig/types"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// ExtractConfig configures archive extraction.
type ExtractConfig struct {
	Unpacker  string `mapstructure:"unpacker"`
	MaxPasses int    `mapstructure:"max_passes"`
}

// InspectConfig configures keyword inspection.
type InspectConfig struct {
	Extension   string `mapstructure:"extension"`
	Verbose     bool   `mapstructure:"verbose"`
	Output      string `mapstructure:"output"`
	MaxFileSize string `mapstructure:"max_file_size"`
}

// CacheConfig configures the table cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ManifestConfig configures run history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	DataPath string         `mapstructure:"data_path"`
	Exclude  []string       `mapstructure:"exclude"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Inspect  InspectConfig  `mapstructure:"inspect"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from the default file locations, a .env file
// and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/datadig/config.yaml
//   - $HOME/.config/datadig/config.yaml
//
// Environment variables are prefixed with DATADIG_ (e.g., DATADIG_DATA_PATH).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := Setup(v, path); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Setup registers defaults, config paths and environment binding on v and
// reads the config file. A missing file in the default locations is not an
// error; a missing explicit file is.
func Setup(v *viper.Viper, path string) error {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "datadig"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "datadig"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_path", DefaultDataPath)
	v.SetDefault("exclude", DefaultExclusions)

	v.SetDefault("extract.unpacker", DefaultUnpacker)
	v.SetDefault("extract.max_passes", DefaultMaxPasses)

	v.SetDefault("inspect.extension", DefaultExtension)
	v.SetDefault("inspect.verbose", false)
	v.SetDefault("inspect.output", DefaultOutput)
	v.SetDefault("inspect.max_file_size", DefaultMaxFileSize)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", DefaultCachePath())

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", ManifestDir())
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponents)
}

// Decode unmarshals v into a Config, expands ~ in paths and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.DataPath, &cfg.Cache.Path, &cfg.Manifest.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be enforced by types.
func (c *Config) Validate() error {
	if !slices.Contains(Unpackers, c.Extract.Unpacker) {
		return fmt.Errorf("%w: extract.unpacker must be one of %s, got %q",
			ErrInvalidConfig, strings.Join(Unpackers, ", "), c.Extract.Unpacker)
	}
	if c.Extract.MaxPasses <= 0 {
		return fmt.Errorf("%w: extract.max_passes must be positive, got %d", ErrInvalidConfig, c.Extract.MaxPasses)
	}
	if !strings.HasPrefix(c.Inspect.Extension, ".") {
		return fmt.Errorf("%w: inspect.extension must start with a dot, got %q", ErrInvalidConfig, c.Inspect.Extension)
	}
	if _, err := c.MaxFileSize(); err != nil {
		return fmt.Errorf("%w: inspect.max_file_size: %w", ErrInvalidConfig, err)
	}
	return nil
}

// MaxFileSize returns inspect.max_file_size in bytes. An empty value or
// zero disables the limit.
func (c *Config) MaxFileSize() (int64, error) {
	if strings.TrimSpace(c.Inspect.MaxFileSize) == "" {
		return 0, nil
	}
	return types.ParseSize(c.Inspect.MaxFileSize)
}

// loadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "datadig"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "datadig"), nil
}

// ConfigFile returns the default config file path.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns
// its path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigFile()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# datadig configuration

# Data directory used when --data-path is not given
data_path: %q

# Glob patterns skipped while walking (basename or full path)
exclude:
  - .git
  - __MACOSX

extract:
  # exec runs gunzip, tar and unzip; builtin extracts in-process
  unpacker: %s
  # Extraction repeats until a pass finds no archives, at most this often
  max_passes: %d

inspect:
  extension: %s
  # Print per-column statistics by default
  verbose: false
  # Report format: plain, json, yaml, pretty
  output: %s
  # Larger CSV files are reported as load errors
  max_file_size: %s

# Cache of parsed tables, keyed by path, size and mtime
cache:
  enabled: true
  path: %s

# History of extract and inspect runs
manifest:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/datadig/datadig.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    extract: info
    inspect: info
    walker: warn
    cache: warn
`, DefaultDataPath, DefaultUnpacker, DefaultMaxPasses, DefaultExtension, DefaultOutput,
		DefaultMaxFileSize, DefaultCachePath(), ManifestDir(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/datadig/ for run history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "datadig")
}

// StateDir returns $XDG_STATE_HOME/datadig/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "datadig")
}

// CacheDir returns $XDG_CACHE_HOME/datadig/.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "datadig")
}

// ManifestDir returns the default history directory.
func ManifestDir() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultCachePath returns the default table cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "tables")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "datadig.log")
}

// EnsureDirs creates the config, data and state directories.
func EnsureDirs() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	for _, dir := range []string{DataDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
