package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/datadig/pkg/datadig/cache"
	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/jamesainslie/datadig/pkg/datadig/inspect"
	"github.com/jamesainslie/datadig/pkg/datadig/manifest"
	"github.com/jamesainslie/datadig/pkg/datadig/report"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [keyword...]",
	Short: "Find CSV files matching keywords",
	Long: `Inspect every CSV file below the data directory.

A file is relevant when a keyword appears, ignoring case, in its path
relative to the data directory, in one of its column names, or in a value
of one of its nominal columns. Relevant files are printed in sorted order
with their columns; --verbose adds value counts for nominal columns and
Min, Max, Range, Mean and Std for numeric columns.

A file that fails to load is listed with its error when its path matches a
keyword. Any other file that fails to load is reported as a warning on
standard error and left out of the report.

Keywords may be given with --key-words, repeated or space separated:
  datadig inspect --data-path ./data --key-words adni merge
  datadig inspect --data-path ./data -k adni -k merge`,
	Args: cobra.ArbitraryArgs,
	RunE: runInspect,
}

// inspectOptions holds the resolved settings of one inspect run.
type inspectOptions struct {
	DataPath    string
	Keywords    []string
	Verbose     bool
	Output      string
	Extension   string
	MaxFileSize int64
	Exclude     []string
}

func init() {
	inspectCmd.Flags().StringP("data-path", "p", "", "data directory (required unless data_path is set in the config)")
	inspectCmd.Flags().StringArrayP("key-words", "k", nil, "keywords to match (can be specified multiple times)")
	inspectCmd.Flags().BoolP("verbose", "v", false, "print value counts and statistics per column")
	inspectCmd.Flags().StringP("output", "o", "", "output format: plain, json, yaml, pretty")
	inspectCmd.Flags().Bool("no-cache", false, "load every table from disk")

	rootCmd.AddCommand(inspectCmd)
}

// runInspect resolves flags and configuration, then inspects.
func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	maxSize, err := cfg.MaxFileSize()
	if err != nil {
		return err
	}

	flagWords, _ := cmd.Flags().GetStringArray("key-words")
	opts := inspectOptions{
		DataPath:    cfg.DataPath,
		Keywords:    collectKeywords(flagWords, args),
		Verbose:     cfg.Inspect.Verbose,
		Output:      cfg.Inspect.Output,
		Extension:   cfg.Inspect.Extension,
		MaxFileSize: maxSize,
		Exclude:     cfg.Exclude,
	}
	if cmd.Flags().Changed("data-path") {
		opts.DataPath, _ = cmd.Flags().GetString("data-path")
	}
	if cmd.Flags().Changed("verbose") {
		opts.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cmd.Flags().Changed("output") {
		opts.Output, _ = cmd.Flags().GetString("output")
	}

	var tables inspect.TableCache
	noCache, _ := cmd.Flags().GetBool("no-cache")
	if cfg.Cache.Enabled && !noCache {
		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			printWarn("table cache unavailable: %v", err)
		} else {
			defer c.Close()
			tables = c
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executeInspect(ctx, opts, tables, cmd.OutOrStdout())
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			printInfo("Inspection cancelled")
		}
		return err
	}

	for _, w := range result.Warnings {
		printWarn("%s", w.String())
	}

	if cfg.Manifest.Enabled {
		logInspect(cfg, result)
	}
	return nil
}

// collectKeywords merges --key-words values with trailing arguments, so
// "--key-words a b" and "-k a -k b" both select a and b.
func collectKeywords(flagWords, args []string) []string {
	words := make([]string, 0, len(flagWords)+len(args))
	words = append(words, flagWords...)
	words = append(words, args...)
	return words
}

// executeInspect runs one inspection and writes the formatted report to w.
func executeInspect(ctx context.Context, opts inspectOptions, tables inspect.TableCache, w io.Writer) (*inspect.Result, error) {
	if opts.DataPath == "" {
		return nil, errNoDataPath
	}
	if len(opts.Keywords) == 0 {
		return nil, fmt.Errorf("%w: use --key-words", inspect.ErrNoKeywords)
	}
	keywords, err := inspect.NewKeywords(opts.Keywords...)
	if err != nil {
		return nil, err
	}

	format := opts.Output
	if format == "" {
		format = config.DefaultOutput
	}
	formatter, err := report.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, report.Available())
	}

	inspector := inspect.New()
	if opts.Extension != "" {
		inspector.Extension = opts.Extension
	}
	inspector.MaxFileSize = opts.MaxFileSize
	inspector.Exclude = opts.Exclude
	inspector.Cache = tables

	result, err := inspector.Inspect(ctx, opts.DataPath, keywords)
	if err != nil {
		return nil, fmt.Errorf("inspection failed: %w", err)
	}
	printVerbose("Scanned %d files, loaded %d tables, %d from cache",
		result.FilesScanned, result.TablesLoaded, result.CacheHits)

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report.New(result, opts.Verbose)); err != nil {
		return nil, fmt.Errorf("failed to format output: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	return result, nil
}

// logInspect records an inspection in the run history. Failures are
// reported but never fail the command.
func logInspect(cfg *config.Config, result *inspect.Result) {
	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		printWarn("failed to open history: %v", err)
		return
	}

	paths := result.Paths()
	files := make([]manifest.FileRecord, 0, len(paths))
	for _, p := range paths {
		entry := result.Entries[p]
		files = append(files, manifest.FileRecord{
			Path:   p,
			Kind:   entry.Match.Reason.String(),
			Detail: entry.Match.Keyword,
		})
	}

	logged, err := m.LogInspect(result.Root, result.Keywords, files, manifest.Summary{
		TotalFiles: int64(len(files)),
		Scanned:    result.FilesScanned,
		Warnings:   len(result.Warnings),
	})
	if err != nil {
		printWarn("failed to record history: %v", err)
		return
	}
	printVerbose("Recorded history entry %s", logged.ID)
}
