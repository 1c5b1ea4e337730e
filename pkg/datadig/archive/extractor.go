package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/datadig/pkg/datadig/logging"
	"github.com/jamesainslie/datadig/pkg/datadig/walker"
)

var logger = logging.Get("extract")

// DefaultMaxPasses bounds the number of extraction passes over a tree.
const DefaultMaxPasses = 16

var (
	// ErrArchiveCollision is returned when the extraction target already
	// exists. Nothing is overwritten.
	ErrArchiveCollision = errors.New("extraction target already exists")

	// ErrTooManyPasses is returned when archives keep appearing after
	// MaxPasses passes.
	ErrTooManyPasses = errors.New("archives remain after maximum number of passes")

	// ErrUnsupportedKind is returned by unpackers asked to handle a kind
	// they do not support.
	ErrUnsupportedKind = errors.New("unsupported archive kind")

	// ErrUnsafePath is returned for archive entries that escape the
	// destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Record describes one extracted archive.
type Record struct {
	Archive string `json:"archive"`
	Kind    Kind   `json:"-"`
	Format  string `json:"kind"`
	Dest    string `json:"dest"`
	Size    int64  `json:"size"`
}

// Summary is the outcome of an extraction run.
type Summary struct {
	Root      string   `json:"root"`
	Passes    int      `json:"passes"`
	Extracted []Record `json:"extracted"`

	// Remaining lists archives still present after the last pass.
	Remaining []string `json:"remaining,omitempty"`
}

// TotalSize returns the combined size of the extracted archives.
func (s *Summary) TotalSize() int64 {
	var total int64
	for _, r := range s.Extracted {
		total += r.Size
	}
	return total
}

// Extractor replaces every archive below a root with its contents.
type Extractor struct {
	Unpacker  Unpacker
	MaxPasses int
	Exclude   []string

	// OnExtract, when set, is called after each successful extraction.
	OnExtract func(Record)
}

// NewExtractor returns an Extractor using u.
func NewExtractor(u Unpacker) *Extractor {
	return &Extractor{Unpacker: u, MaxPasses: DefaultMaxPasses}
}

// Extract walks root repeatedly, extracting archives until a pass finds
// none. Archives revealed by an extraction are handled in the same pass
// when they land in a fresh directory, and in the next pass otherwise.
func (e *Extractor) Extract(ctx context.Context, root string) (*Summary, error) {
	absRoot, err := walker.ValidateRoot(root)
	if err != nil {
		return nil, err
	}
	if e.Unpacker == nil {
		return nil, errors.New("extractor has no unpacker")
	}

	maxPasses := e.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	summary := &Summary{Root: absRoot, Extracted: []Record{}}
	opts := walker.Options{Exclude: e.Exclude}

	for summary.Passes < maxPasses {
		summary.Passes++
		before := len(summary.Extracted)

		err := walker.WalkWithOptions(ctx, absRoot, opts, func(dir, path string) error {
			rec, ok, err := e.extractOne(ctx, dir, path)
			if err != nil || !ok {
				return err
			}
			summary.Extracted = append(summary.Extracted, rec)
			if e.OnExtract != nil {
				e.OnExtract(rec)
			}
			return nil
		})
		if err != nil {
			return summary, err
		}

		n := len(summary.Extracted) - before
		logger.Debug("extraction pass complete", "pass", summary.Passes, "extracted", n)
		if n == 0 {
			break
		}
	}

	remaining, err := e.find(ctx, absRoot)
	if err != nil {
		return summary, err
	}
	summary.Remaining = remaining

	if len(remaining) > 0 {
		if summary.Passes >= maxPasses {
			return summary, fmt.Errorf("%w: %d passes, %d archives left", ErrTooManyPasses, summary.Passes, len(remaining))
		}
		logger.Warn("archives remain after extraction", "count", len(remaining))
	}
	return summary, nil
}

// Plan lists the archives currently below root without touching them.
// Archives nested inside them are not visible until extraction.
func (e *Extractor) Plan(ctx context.Context, root string) ([]Record, error) {
	absRoot, err := walker.ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	paths, err := e.find(ctx, absRoot)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(paths))
	for _, path := range paths {
		kind := Classify(filepath.Base(path))
		rec := Record{Archive: path, Kind: kind, Format: kind.String(), Dest: target(path)}
		if info, err := os.Stat(path); err == nil {
			rec.Size = info.Size()
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Extractor) find(ctx context.Context, root string) ([]string, error) {
	return walker.Find(ctx, root, walker.Options{Exclude: e.Exclude}, func(path string) bool {
		return IsArchive(filepath.Base(path))
	})
}

// extractOne extracts path if it is an archive. The boolean result is
// false for files that are not archives.
func (e *Extractor) extractOne(ctx context.Context, dir, path string) (Record, bool, error) {
	kind := Classify(filepath.Base(path))
	if kind == KindNone {
		logger.Debug("not an archive", "path", path)
		return Record{}, false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Record{}, false, fmt.Errorf("stat archive: %w", err)
	}

	dest := target(path)
	rec := Record{Archive: path, Kind: kind, Format: kind.String(), Dest: dest, Size: info.Size()}

	if _, err := os.Lstat(dest); err == nil {
		return rec, false, fmt.Errorf("%w: %s", ErrArchiveCollision, dest)
	} else if !os.IsNotExist(err) {
		return rec, false, fmt.Errorf("checking target: %w", err)
	}

	if kind == KindGzip {
		if err := e.Unpacker.Gunzip(ctx, path); err != nil {
			return rec, false, err
		}
		logger.Info("decompressed archive", "path", path, "target", dest)
		return rec, true, nil
	}

	if err := os.Mkdir(dest, 0o755); err != nil {
		return rec, false, fmt.Errorf("creating target directory: %w", err)
	}

	if err := e.Unpacker.Unpack(ctx, kind, path, dest); err != nil {
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			logger.Error("failed to remove partial extraction", "dest", dest, "error", rmErr)
		}
		return rec, false, err
	}

	if err := os.Remove(path); err != nil {
		return rec, false, fmt.Errorf("removing archive: %w", err)
	}

	logger.Info("extracted archive", "path", path, "kind", kind.String(), "dest", dest)
	return rec, true, nil
}

// target returns the path an archive extracts to: the archive path
// without its suffix.
func target(path string) string {
	return filepath.Join(filepath.Dir(path), Strip(filepath.Base(path)))
}
