package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/datadig/pkg/datadig/cache"
	"github.com/jamesainslie/datadig/pkg/datadig/config"
	"github.com/jamesainslie/datadig/pkg/datadig/walker"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the table cache",
	Long: `Commands for managing the datadig table cache.

The cache stores parsed CSV tables keyed by path, size and modification
time, so repeat inspections of unchanged files skip parsing.
Cache data is stored in the XDG cache directory (typically ~/.cache/datadig/tables).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [data-path [file...]]",
	Short: "Clear cached tables",
	Long: `Removes cached tables. With a data path only the tables below that
directory are removed; otherwise the whole cache is cleared. Files named
after the data path are relative to it, and only their tables are removed.`,
	Args: cobra.ArbitraryArgs,
	RunE: runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats [data-path]",
	Short: "Show cache statistics",
	Long: `Displays the cache location, its size on disk and the number of cached tables below a data path.
With --list the cached files below the data path are printed as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCacheStats,
}

var cacheStatsList bool

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cachePath())
	},
}

func init() {
	cacheStatsCmd.Flags().BoolVar(&cacheStatsList, "list", false, "list cached files below the data path")

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cachePath returns the configured cache directory.
func cachePath() string {
	cfg, err := loadConfig()
	if err != nil || cfg.Cache.Path == "" {
		return config.DefaultCachePath()
	}
	return cfg.Cache.Path
}

// runCacheClear removes cached tables.
func runCacheClear(cmd *cobra.Command, args []string) error {
	return executeCacheClear(cachePath(), args, cmd.OutOrStdout())
}

// executeCacheClear removes the whole cache, the tables below one root, or
// selected files below that root.
func executeCacheClear(path string, args []string, w io.Writer) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "Cache is already empty.")
		return nil
	}

	c, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	if len(args) == 0 {
		if err := c.ClearAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Fprintln(w, "Cache cleared.")
		return nil
	}

	root, err := walker.ValidateRoot(args[0])
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := c.Clear(root); err != nil {
			return fmt.Errorf("failed to clear cache for %s: %w", root, err)
		}
		fmt.Fprintf(w, "Cache cleared for %s.\n", root)
		return nil
	}

	for _, file := range args[1:] {
		rel := filepath.Clean(file)
		if filepath.IsAbs(rel) {
			r, err := filepath.Rel(root, rel)
			if err != nil {
				return fmt.Errorf("%w: %s is not below %s", walker.ErrInvalidInput, file, root)
			}
			rel = r
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %s is not below %s", walker.ErrInvalidInput, file, root)
		}
		if err := c.Forget(root, rel); err != nil {
			return fmt.Errorf("failed to clear cache for %s: %w", rel, err)
		}
		fmt.Fprintf(w, "Cache cleared for %s.\n", filepath.Join(root, rel))
	}
	return nil
}

// runCacheStats prints cache location, size and entry count.
func runCacheStats(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := cachePath()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "Cache: empty (no cache directory)")
		fmt.Fprintf(out, "Cache location: %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat cache: %w", err)
	}

	var size int64
	var fileCount int
	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
			fileCount++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to calculate cache size: %w", err)
	}

	label := "Cached tables"
	root := ""
	if len(args) == 1 {
		root, err = walker.ValidateRoot(args[0])
		if err != nil {
			return err
		}
		label = "Tables below " + root
	}
	if cacheStatsList && root == "" {
		return fmt.Errorf("%w: --list needs a data path", walker.ErrInvalidInput)
	}

	c, err := cache.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer c.Close()

	count, err := c.Count(root)
	if err != nil {
		return fmt.Errorf("failed to count cached tables: %w", err)
	}

	fmt.Fprintf(out, "Cache location: %s\n", path)
	fmt.Fprintf(out, "Cache size: %s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(out, "Cache files: %d\n", fileCount)
	fmt.Fprintf(out, "%s: %s\n", label, humanize.Comma(int64(count)))
	fmt.Fprintf(out, "Last modified: %s (%s)\n",
		info.ModTime().Format("2006-01-02 15:04:05"), humanize.Time(info.ModTime()))

	if cacheStatsList {
		paths, err := c.Paths(root)
		if err != nil {
			return fmt.Errorf("failed to list cached tables: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}

	return nil
}
