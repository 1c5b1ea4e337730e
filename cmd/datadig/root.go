package main

import (
	"fmt"
	"os"

	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "datadig",
		Short: "Extract nested archives and search CSV data by keyword",
		Long: `Datadig prepares and searches a directory of tabular data.

The extract command replaces every gzip, tar, tar.gz and zip archive below a
data directory with its contents, repeating until no archives remain. The
inspect command loads every CSV file, keeps those whose path, column names
or nominal values contain a keyword, and prints a per-column summary.

Examples:
  datadig extract --data-path ./data           # Unpack nested archives
  datadig extract --data-path ./data --dry-run # List archives only
  datadig inspect --data-path ./data --key-words adni merge
  datadig inspect --data-path ./data -k age -v -o json
  datadig history                              # View previous runs`,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/datadig/config.yaml)")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().Bool("debug", false, "log debug output to stderr")

	// Bind flags to viper
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if err := config.Setup(viper.GetViper(), cfgFile); err != nil {
		printError("%v", err)
	}
}

// loadConfig decodes the global viper state into a validated Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getDebug returns true if debug output is enabled.
func getDebug() bool {
	return viper.GetBool("debug")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if debug output is enabled.
func printVerbose(format string, args ...interface{}) {
	if getDebug() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printWarn prints a warning to stderr unless quiet mode is enabled.
func printWarn(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
