package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage datadig configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/datadig/config.yaml (if set)
  2. ~/.config/datadig/config.yaml

Environment variables can override config file settings using the DATADIG_
prefix, and a .env file in the working directory is read first:
  DATADIG_DATA_PATH=/data/study
  DATADIG_EXTRACT_UNPACKER=builtin
  DATADIG_INSPECT_OUTPUT=json`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

// envOverrides lists the environment variables reported by config show.
var envOverrides = []string{
	"data_path",
	"exclude",
	"extract.unpacker",
	"extract.max_passes",
	"inspect.extension",
	"inspect.verbose",
	"inspect.output",
	"inspect.max_file_size",
	"cache.enabled",
	"cache.path",
	"manifest.enabled",
	"manifest.path",
	"manifest.retention_days",
	"logging.level",
	"logging.path",
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("%v", err)
		// Show defaults anyway
		v := viper.New()
		config.SetDefaults(v)
		if cfg, err = config.Decode(v); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	// Show config file being used
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", configFile)
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	printConfig(out, cfg)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	anyOverrides := false
	for _, key := range envOverrides {
		name := envName(key)
		if val := os.Getenv(name); val != "" {
			fmt.Fprintf(out, "%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Fprintln(out, "(none)")
	}

	return nil
}

// printConfig writes the effective settings.
func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	dataPath := cfg.DataPath
	if dataPath == "" {
		dataPath = "(not set)"
	}
	fmt.Fprintf(w, "data_path:              %s\n", dataPath)
	fmt.Fprintf(w, "exclude:                %v\n", cfg.Exclude)
	fmt.Fprintf(w, "extract.unpacker:       %s\n", cfg.Extract.Unpacker)
	fmt.Fprintf(w, "extract.max_passes:     %d\n", cfg.Extract.MaxPasses)
	fmt.Fprintf(w, "inspect.extension:      %s\n", cfg.Inspect.Extension)
	fmt.Fprintf(w, "inspect.verbose:        %t\n", cfg.Inspect.Verbose)
	fmt.Fprintf(w, "inspect.output:         %s\n", cfg.Inspect.Output)
	fmt.Fprintf(w, "inspect.max_file_size:  %s\n", cfg.Inspect.MaxFileSize)
	fmt.Fprintf(w, "cache.enabled:          %t\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "cache.path:             %s\n", cfg.Cache.Path)
	fmt.Fprintf(w, "manifest.enabled:       %t\n", cfg.Manifest.Enabled)
	fmt.Fprintf(w, "manifest.path:          %s\n", cfg.Manifest.Path)
	fmt.Fprintf(w, "manifest.retention:     %d days\n", cfg.Manifest.RetentionDays)
	fmt.Fprintf(w, "logging.level:          %s\n", cfg.Logging.Level)
}

// envName returns the environment variable that overrides key.
func envName(key string) string {
	return config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigFile()
	if err != nil {
		return fmt.Errorf("failed to get config file path: %w", err)
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'datadig config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigFile()
	if err != nil {
		return fmt.Errorf("failed to get config file path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	// Show if file exists
	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
