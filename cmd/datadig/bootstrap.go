package main

import (
	"fmt"

	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/jamesainslie/datadig/pkg/datadig/logging"
	"github.com/jamesainslie/datadig/pkg/datadig/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultRotationSize is used when logging.rotation.max_size is empty or
// cannot be parsed.
const defaultRotationSize = 10 * 1024 * 1024

// initializeLogging creates the XDG directories and starts file logging.
// It runs as the root PersistentPreRunE hook.
func initializeLogging(cmd *cobra.Command, args []string) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	var logCfg config.LoggingConfig
	if err := viper.UnmarshalKey("logging", &logCfg); err != nil {
		return fmt.Errorf("failed to read logging configuration: %w", err)
	}
	if logCfg.Level == "" {
		logCfg.Level = "info"
	}

	path := logCfg.Path
	if path == "" {
		path = config.DefaultLogPath()
	} else if expanded, err := config.ExpandPath(path); err == nil {
		path = expanded
	}

	consoleLevel := "warn"
	switch {
	case getDebug():
		consoleLevel = "debug"
	case getQuiet():
		consoleLevel = "error"
	}

	return logging.Init(logging.Config{
		Level:        logCfg.Level,
		Path:         path,
		Rotation:     parseRotationConfig(logCfg.Rotation),
		Components:   logCfg.Components,
		ConsoleLevel: consoleLevel,
	})
}

// parseRotationConfig converts the config form of rotation settings into
// the logging form.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(defaultRotationSize)
	if rc.MaxSize != "" {
		if parsed, err := types.ParseSize(rc.MaxSize); err == nil && parsed > 0 {
			maxSize = parsed
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
