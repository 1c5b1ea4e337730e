// Package inspect scans a data tree for CSV files relevant to a set of
// keywords.
package inspect

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jamesainslie/datadig/pkg/datadig/logging"
	"github.com/jamesainslie/datadig/pkg/datadig/table"
	"github.com/jamesainslie/datadig/pkg/datadig/types"
	"github.com/jamesainslie/datadig/pkg/datadig/walker"
)

var logger = logging.Get("inspect")

// DefaultExtension is the file extension of tabular files.
const DefaultExtension = ".csv"

// ErrRunInProgress is returned when Inspect is called on an Inspector
// that is already running.
var ErrRunInProgress = errors.New("inspection already in progress")

// TableCache stores loaded tables between runs.
type TableCache interface {
	Lookup(root, relPath string, info fs.FileInfo) (*table.Table, bool)
	Store(root, relPath string, info fs.FileInfo, t *table.Table) error
}

// Entry is a relevant file: a loaded table, or a load failure whose path
// matched a keyword.
type Entry struct {
	Path  string           `json:"path"`
	Table *table.Table     `json:"-"`
	Err   *table.LoadError `json:"error,omitempty"`
	Match Match            `json:"match"`
}

// Result is the outcome of one inspection.
type Result struct {
	Root     string
	Keywords []string

	// Entries maps relative paths to relevant files.
	Entries map[string]*Entry

	FilesScanned int
	TablesLoaded int
	CacheHits    int

	// Warnings lists files that failed to load and did not match.
	Warnings []types.PathError
}

// Paths returns the relative paths of all entries in sorted order.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Entries))
	for p := range r.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Inspector finds relevant tables below a root directory.
type Inspector struct {
	// Extension selects tabular files, compared without regard to case.
	Extension string

	// MaxFileSize skips files larger than this many bytes. Zero means no
	// limit.
	MaxFileSize int64

	Exclude []string

	// Cache is optional.
	Cache TableCache

	mu      sync.Mutex
	running bool
}

// New returns an Inspector for .csv files.
func New() *Inspector {
	return &Inspector{Extension: DefaultExtension}
}

// Inspect walks root and returns the tables relevant to keywords. Files
// that cannot be loaded never abort the walk.
func (i *Inspector) Inspect(ctx context.Context, root string, keywords Keywords) (*Result, error) {
	if keywords.Len() == 0 {
		return nil, ErrNoKeywords
	}

	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil, ErrRunInProgress
	}
	i.running = true
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}()

	absRoot, err := walker.ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	ext := i.Extension
	if ext == "" {
		ext = DefaultExtension
	}

	result := &Result{
		Root:     absRoot,
		Keywords: keywords.Words(),
		Entries:  make(map[string]*Entry),
	}

	err = walker.WalkWithOptions(ctx, absRoot, walker.Options{Exclude: i.Exclude}, func(_, path string) error {
		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		result.FilesScanned++
		i.inspectFile(result, absRoot, path, keywords)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("inspection complete",
		"root", absRoot,
		"scanned", result.FilesScanned,
		"loaded", result.TablesLoaded,
		"relevant", len(result.Entries),
		"warnings", len(result.Warnings),
	)
	return result, nil
}

func (i *Inspector) inspectFile(result *Result, root, path string, keywords Keywords) {
	relPath := walker.RelativePath(root, path)

	tbl, err := i.load(result, root, relPath, path)
	if err != nil {
		loadErr := table.AsLoadError(err)
		if m, ok := Relevance(relPath, nil, keywords); ok {
			result.Entries[relPath] = &Entry{Path: relPath, Err: loadErr, Match: m}
			logger.Warn("relevant file failed to load", "path", relPath, "kind", string(loadErr.Kind), "error", loadErr.Message)
			return
		}
		result.Warnings = append(result.Warnings, types.PathError{Path: relPath, Error: loadErr.Error()})
		logger.Warn("skipping unloadable file", "path", relPath, "error", loadErr.Error())
		return
	}
	result.TablesLoaded++

	m, ok := Relevance(relPath, tbl, keywords)
	if !ok {
		logger.Debug("not relevant", "path", relPath)
		return
	}
	logger.Debug("relevant table", "path", relPath, "reason", m.Reason.String(), "keyword", m.Keyword)
	result.Entries[relPath] = &Entry{Path: relPath, Table: tbl, Match: m}
}

func (i *Inspector) load(result *Result, root, relPath, path string) (*table.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := table.CheckSize(info.Size(), i.MaxFileSize); err != nil {
		return nil, err
	}

	if i.Cache != nil {
		if tbl, ok := i.Cache.Lookup(root, relPath, info); ok {
			result.CacheHits++
			return tbl, nil
		}
	}

	tbl, err := table.LoadWithOptions(path, table.Options{MaxSize: i.MaxFileSize})
	if err != nil {
		return nil, err
	}

	if i.Cache != nil {
		if err := i.Cache.Store(root, relPath, info, tbl); err != nil {
			logger.Warn("failed to cache table", "path", relPath, "error", err)
		}
	}
	return tbl, nil
}
