package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/jamesainslie/datadig/pkg/datadig/manifest"
	"github.com/jamesainslie/datadig/pkg/datadig/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of extract and inspect runs.

Each run records the archives it extracted or the files it found relevant,
so earlier results can be reviewed without repeating the work.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific operation",
	Long:  `Display detailed information about a specific operation by its ID or a unique prefix of it.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

// maxShownFiles bounds the file list printed by history show.
const maxShownFiles = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest instance with the configured directory.
func getManifest() (*manifest.Manifest, error) {
	cfg, err := loadConfig()
	if err != nil {
		// Use default manifest path if config fails to load
		return manifest.New(config.ManifestDir())
	}

	return manifest.New(cfg.Manifest.Path)
}

// runHistory lists recent operations.
func runHistory(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'datadig extract' or 'datadig inspect' to record one.")
		return nil
	}

	printHistoryTable(cmd.OutOrStdout(), entries)
	fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Fprintln(cmd.OutOrStdout(), "Use 'datadig history show <id>' for details on a specific entry.")

	return nil
}

// printHistoryTable writes one row per entry.
func printHistoryTable(w io.Writer, entries []manifest.Entry) {
	fmt.Fprintf(w, "\n%-40s  %-8s  %-8s  %-12s  %s\n", "ID", "TYPE", "FILES", "SIZE", "ROOT")
	fmt.Fprintln(w, strings.Repeat("-", 90))

	for _, entry := range entries {
		size := "-"
		if entry.Operation == manifest.OpExtract {
			size = types.FormatSize(entry.Summary.TotalBytes)
		}
		fmt.Fprintf(w, "%-40s  %-8s  %-8d  %-12s  %s\n",
			truncateString(entry.ID, 40),
			entry.Operation,
			entry.Summary.TotalFiles,
			size,
			entry.Root,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 90))
}

// runHistoryShow displays details of a specific operation.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := getManifest()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	printHistoryEntry(cmd.OutOrStdout(), entry)
	return nil
}

// printHistoryEntry writes the details of one entry.
func printHistoryEntry(w io.Writer, entry *manifest.Entry) {
	fmt.Fprintln(w, "\nOperation Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:  %s\n", entry.Operation)
	fmt.Fprintf(w, "Root:       %s\n", entry.Root)

	switch entry.Operation {
	case manifest.OpExtract:
		fmt.Fprintf(w, "Archives:   %d\n", entry.Summary.TotalFiles)
		fmt.Fprintf(w, "Total Size: %s\n", types.FormatSize(entry.Summary.TotalBytes))
		fmt.Fprintf(w, "Passes:     %d\n", entry.Summary.Passes)
	case manifest.OpInspect:
		fmt.Fprintf(w, "Keywords:   %s\n", strings.Join(entry.Keywords, ", "))
		fmt.Fprintf(w, "Scanned:    %d\n", entry.Summary.Scanned)
		fmt.Fprintf(w, "Relevant:   %d\n", entry.Summary.TotalFiles)
		fmt.Fprintf(w, "Warnings:   %d\n", entry.Summary.Warnings)
	}

	if len(entry.Files) == 0 {
		return
	}

	fmt.Fprintln(w, "\nFiles:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-8s  %-12s  %s\n", "KIND", "DETAIL", "PATH")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	limit := min(len(entry.Files), maxShownFiles)
	for _, file := range entry.Files[:limit] {
		detail := file.Detail
		if entry.Operation == manifest.OpExtract {
			detail = types.FormatSize(file.Size)
		}
		fmt.Fprintf(w, "%-8s  %-12s  %s\n", file.Kind, truncateString(detail, 12), file.Path)
	}

	if len(entry.Files) > limit {
		fmt.Fprintf(w, "\n... and %d more files\n", len(entry.Files)-limit)
	}
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize manifest: %w", err)
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete, %d entries removed.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
