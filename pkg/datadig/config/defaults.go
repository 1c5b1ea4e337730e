// Package config provides configuration management for datadig.
package config

// Default configuration values for datadig.
const (
	// DefaultDataPath is empty: commands need a data path from the
	// --data-path flag or the data_path setting.
	DefaultDataPath = ""

	// DefaultUnpacker selects external tools for extraction.
	DefaultUnpacker = "exec"

	// DefaultMaxPasses bounds repeated extraction passes.
	DefaultMaxPasses = 16

	// DefaultExtension selects CSV files for inspection.
	DefaultExtension = ".csv"

	// DefaultOutput is the default report formatter.
	DefaultOutput = "plain"

	// DefaultMaxFileSize is the largest CSV file inspect will load.
	DefaultMaxFileSize = "512MB"

	// DefaultRetentionDays is the default number of days to retain history.
	DefaultRetentionDays = 30

	// EnvPrefix prefixes environment overrides, e.g. DATADIG_DATA_PATH.
	EnvPrefix = "DATADIG"

	// DotEnvFile is loaded from the working directory when present.
	DotEnvFile = ".env"
)

// Unpackers lists the accepted values of extract.unpacker.
var Unpackers = []string{"exec", "builtin"}

// DefaultExclusions contains patterns skipped by every walk.
var DefaultExclusions = []string{
	".git",
	"__MACOSX",
}

// DefaultComponents sets per-component log levels.
var DefaultComponents = map[string]string{
	"extract": "info",
	"inspect": "info",
	"walker":  "warn",
	"cache":   "warn",
}
