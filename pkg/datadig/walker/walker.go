// Package walker provides the directory traversal shared by the extract and
// inspect pipelines.
//
// Walk is sequential and depth-first: it visits every regular file of a
// directory before descending into that directory's subdirectories, and it
// lists subdirectories only after the files have been visited, so
// directories created by the visitor (fresh extraction targets) are
// descended in the same walk.
//
// Find is a parallel, read-only listing built on fastwalk for callers that
// only need to know which files exist.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"
	"github.com/jamesainslie/datadig/pkg/datadig/logging"
)

var logger = logging.Get("walker")

// ErrInvalidInput marks problems with the root path handed to a walk.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotADirectory is returned when the root exists but is not a directory.
var ErrNotADirectory = errors.New("not a directory")

// VisitFunc is called once per regular file with the containing directory
// and the absolute file path. Returning an error stops the walk.
type VisitFunc func(dir, path string) error

// Options configures a walk.
type Options struct {
	// Exclude contains glob patterns for paths to skip. A pattern matches a
	// path equal to it, a path below it, the basename, or the full path.
	// "**" matches across separators.
	Exclude []string
}

// Walk traverses root depth-first, calling visit for every regular file.
func Walk(ctx context.Context, root string, visit VisitFunc) error {
	return WalkWithOptions(ctx, root, Options{}, visit)
}

// WalkWithOptions is Walk with exclusion patterns.
func WalkWithOptions(ctx context.Context, root string, opts Options, visit VisitFunc) error {
	absRoot, err := ValidateRoot(root)
	if err != nil {
		return err
	}
	return walkDir(ctx, absRoot, newExcluder(opts.Exclude), visit)
}

// ValidateRoot resolves root to an absolute path and verifies that it is an
// existing directory. An empty root is rejected rather than taken as the
// working directory. Failures wrap ErrInvalidInput.
func ValidateRoot(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("%w: no data path given", ErrInvalidInput)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %q: %v", ErrInvalidInput, root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: path does not exist: %s", ErrInvalidInput, absRoot)
		}
		return "", fmt.Errorf("%w: cannot access path: %v", ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %w: %s", ErrInvalidInput, ErrNotADirectory, absRoot)
	}

	return absRoot, nil
}

// walkDir visits the files of dir, then recurses into its subdirectories.
func walkDir(ctx context.Context, dir string, ex *excluder, visit VisitFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if ex.match(path) {
			logger.Debug("skipping excluded file", "path", path)
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := visit(dir, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	// Re-list so directories created while visiting files are included.
	entries, err = os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if ex.match(sub) {
			logger.Debug("skipping excluded directory", "path", sub)
			continue
		}
		if err := walkDir(ctx, sub, ex, visit); err != nil {
			return err
		}
	}

	return nil
}

// Find lists the regular files under root accepted by match, in parallel.
// The returned paths are absolute and sorted. Unreadable entries are logged
// and skipped.
func Find(ctx context.Context, root string, opts Options, match func(path string) bool) ([]string, error) {
	absRoot, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	ex := newExcluder(opts.Exclude)
	conf := fastwalk.Config{
		Follow: false,
	}

	var (
		mu    sync.Mutex
		found []string
	)

	walkErr := fastwalk.Walk(&conf, absRoot, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			logger.Warn("cannot read entry", "path", path, "err", err)
			return nil
		}

		if ex.match(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !match(path) {
			return nil
		}

		mu.Lock()
		found = append(found, path)
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Strings(found)
	return found, nil
}

// exclusion is one compiled exclude pattern.
type exclusion struct {
	pattern string
	glob    glob.Glob
}

// excluder matches paths against the exclude patterns of one walk.
type excluder struct {
	exclusions []exclusion
}

// newExcluder compiles patterns. Empty patterns are ignored; a pattern that
// does not compile still matches by equality and prefix.
func newExcluder(patterns []string) *excluder {
	ex := &excluder{}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, filepath.Separator)
		if err != nil {
			logger.Warn("invalid exclude pattern", "pattern", pattern, "err", err)
		}
		ex.exclusions = append(ex.exclusions, exclusion{pattern: pattern, glob: g})
	}
	return ex
}

// match reports whether path is excluded.
func (ex *excluder) match(path string) bool {
	for _, e := range ex.exclusions {
		if e.matches(path) {
			return true
		}
	}
	return false
}

func (e exclusion) matches(path string) bool {
	if path == e.pattern {
		return true
	}
	if strings.HasPrefix(path, e.pattern+string(filepath.Separator)) {
		return true
	}
	if e.glob == nil {
		return false
	}
	return e.glob.Match(filepath.Base(path)) || e.glob.Match(path)
}

// RelativePath strips root and the following separator from path. Paths
// outside root are returned unchanged.
func RelativePath(root, path string) string {
	root = filepath.Clean(root)
	if path == root {
		return ""
	}
	prefix := root
	if prefix != string(filepath.Separator) {
		prefix += string(filepath.Separator)
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):]
	}
	return path
}
