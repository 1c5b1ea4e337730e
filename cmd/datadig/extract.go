package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/jamesainslie/datadig/pkg/datadig/archive"
	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/jamesainslie/datadig/pkg/datadig/manifest"
	"github.com/jamesainslie/datadig/pkg/datadig/types"
	"github.com/jamesainslie/datadig/pkg/datadig/walker"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract nested archives in place",
	Long: `Extract every archive below the data directory.

Gzip files are decompressed next to themselves. Tar, tar.gz, tgz and zip
archives are unpacked into a new directory named after the archive, and the
archive is deleted once its contents are in place. Extraction repeats until
no archives remain, so archives inside archives are handled too.

An existing extraction target is an error; nothing is overwritten.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

// extractOptions holds the resolved settings of one extract run.
type extractOptions struct {
	DataPath  string
	DryRun    bool
	Unpacker  string
	MaxPasses int
	Exclude   []string
}

// errNoDataPath is returned when neither --data-path nor data_path names a
// directory. Both commands modify or read a whole tree, so the working
// directory is never assumed.
var errNoDataPath = fmt.Errorf("%w: no data path: use --data-path or set data_path in the config", walker.ErrInvalidInput)

func init() {
	extractCmd.Flags().StringP("data-path", "p", "", "data directory (required unless data_path is set in the config)")
	extractCmd.Flags().BoolP("dry-run", "d", false, "list archives without extracting")
	extractCmd.Flags().String("unpacker", "", "exec (gunzip, tar, unzip) or builtin")
	extractCmd.Flags().Int("max-passes", 0, "maximum extraction passes (0=config)")

	rootCmd.AddCommand(extractCmd)
}

// runExtract resolves flags and configuration, then extracts.
func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := extractOptions{
		DataPath:  cfg.DataPath,
		Unpacker:  cfg.Extract.Unpacker,
		MaxPasses: cfg.Extract.MaxPasses,
		Exclude:   cfg.Exclude,
	}
	if cmd.Flags().Changed("data-path") {
		opts.DataPath, _ = cmd.Flags().GetString("data-path")
	}
	if cmd.Flags().Changed("unpacker") {
		opts.Unpacker, _ = cmd.Flags().GetString("unpacker")
	}
	if cmd.Flags().Changed("max-passes") {
		opts.MaxPasses, _ = cmd.Flags().GetInt("max-passes")
	}
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := executeExtract(ctx, opts, cmd.OutOrStdout())
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		printInfo("Extraction cancelled")
	}

	// Archives already extracted before a failure are gone from disk, so
	// they are recorded either way.
	if summary != nil && cfg.Manifest.Enabled && (err == nil || len(summary.Extracted) > 0) {
		logExtract(cfg, summary)
	}
	return err
}

// newUnpacker returns the unpacker registered under name.
func newUnpacker(name string) (archive.Unpacker, error) {
	switch name {
	case "exec", "":
		return archive.NewExecUnpacker(), nil
	case "builtin":
		return archive.NewBuiltinUnpacker(), nil
	default:
		return nil, fmt.Errorf("unknown unpacker %q: available unpackers are %v", name, config.Unpackers)
	}
}

// executeExtract runs or previews one extraction and writes progress to w.
// A dry run returns a nil summary. When extraction fails part way the
// summary of what was extracted is returned with the error.
func executeExtract(ctx context.Context, opts extractOptions, w io.Writer) (*archive.Summary, error) {
	if opts.DataPath == "" {
		return nil, errNoDataPath
	}

	unpacker, err := newUnpacker(opts.Unpacker)
	if err != nil {
		return nil, err
	}

	root, err := walker.ValidateRoot(opts.DataPath)
	if err != nil {
		return nil, err
	}

	extractor := archive.NewExtractor(unpacker)
	extractor.Exclude = opts.Exclude
	if opts.MaxPasses > 0 {
		extractor.MaxPasses = opts.MaxPasses
	}

	if opts.DryRun {
		records, err := extractor.Plan(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("planning extraction: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintln(w, "No archives found.")
			return nil, nil
		}
		for _, r := range records {
			fmt.Fprintf(w, "%-8s  %10s  %s -> %s\n",
				r.Format, types.FormatSize(r.Size),
				walker.RelativePath(root, r.Archive), walker.RelativePath(root, r.Dest))
		}
		fmt.Fprintf(w, "\n%s %s at the top level (dry run, nothing extracted)\n",
			humanize.Comma(int64(len(records))), english.PluralWord(len(records), "archive", ""))
		return nil, nil
	}

	printVerbose("Extracting archives below %s with the %s unpacker", root, unpacker.Name())

	extractor.OnExtract = func(r archive.Record) {
		if !getQuiet() {
			fmt.Fprintf(w, "extracted %s (%s, %s)\n",
				walker.RelativePath(root, r.Archive), r.Format, types.FormatSize(r.Size))
		}
	}

	summary, err := extractor.Extract(ctx, root)
	if err != nil {
		if summary != nil && len(summary.Extracted) > 0 {
			fmt.Fprintf(w, "\nExtracted %s before the failure\n", describeExtraction(summary))
		}
		return summary, fmt.Errorf("extraction failed: %w", err)
	}

	if len(summary.Extracted) == 0 {
		fmt.Fprintln(w, "No archives found.")
		return summary, nil
	}
	fmt.Fprintf(w, "\nExtracted %s\n", describeExtraction(summary))
	return summary, nil
}

// describeExtraction renders e.g. "1 archive (2.0 KiB) in 2 passes".
func describeExtraction(summary *archive.Summary) string {
	n := len(summary.Extracted)
	return fmt.Sprintf("%s %s (%s) in %s",
		humanize.Comma(int64(n)), english.PluralWord(n, "archive", ""),
		types.FormatSize(summary.TotalSize()),
		english.Plural(summary.Passes, "pass", "passes"))
}

// logExtract records an extraction in the run history. Failures are
// reported but never fail the command.
func logExtract(cfg *config.Config, summary *archive.Summary) {
	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		printWarn("failed to open history: %v", err)
		return
	}

	files := make([]manifest.FileRecord, 0, len(summary.Extracted))
	for _, r := range summary.Extracted {
		files = append(files, manifest.FileRecord{
			Path:   r.Archive,
			Size:   r.Size,
			Kind:   r.Format,
			Detail: r.Dest,
		})
	}

	entry, err := m.LogExtract(summary.Root, files, manifest.Summary{
		TotalFiles: int64(len(summary.Extracted)),
		TotalBytes: summary.TotalSize(),
		Passes:     summary.Passes,
	})
	if err != nil {
		printWarn("failed to record history: %v", err)
		return
	}
	printVerbose("Recorded history entry %s", entry.ID)
}
