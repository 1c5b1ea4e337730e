package cache

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jamesainslie/datadig/pkg/datadig/table"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeCSV(t *testing.T, path, content string) os.FileInfo {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info
}

func TestCacheLookupStore(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()
	path := filepath.Join(root, "scores.csv")
	info := writeCSV(t, path, "site,score\nadni,1\nmerge,\n")

	if _, ok := c.Lookup(root, "scores.csv", info); ok {
		t.Fatal("expected miss on empty cache")
	}

	tbl, err := table.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store(root, "scores.csv", info, tbl); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, ok := c.Lookup(root, "scores.csv", info)
	if !ok {
		t.Fatal("expected hit after Store")
	}
	if got.Columns["site"].Counts["adni"] != 1 {
		t.Errorf("nominal counts not preserved: %+v", got.Columns["site"].Counts)
	}
	score := got.Columns["score"]
	if score.Kind != table.KindNumeric || score.Count != 1 {
		t.Errorf("numeric column not preserved: %+v", score)
	}
	if !math.IsNaN(score.Stats.Std) {
		t.Errorf("NaN std not preserved, got %v", score.Stats.Std)
	}
}

func TestCacheLookupStale(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()
	path := filepath.Join(root, "a.csv")
	info := writeCSV(t, path, "a\n1\n")

	tbl, err := table.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store(root, "a.csv", info, tbl); err != nil {
		t.Fatal(err)
	}

	changed := writeCSV(t, path, "a\n1\n2\n")
	if _, ok := c.Lookup(root, "a.csv", changed); ok {
		t.Error("expected miss after size change")
	}

	later := info.ModTime().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a\n1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	touched, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(root, "a.csv", touched); ok {
		t.Error("expected miss after mtime change")
	}
}

func TestCacheClear(t *testing.T) {
	c := openTestCache(t)
	rootA := t.TempDir()
	rootB := t.TempDir()

	for _, root := range []string{rootA, rootB} {
		path := filepath.Join(root, "x.csv")
		info := writeCSV(t, path, "x\n1\n")
		tbl, err := table.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Store(root, "x.csv", info, tbl); err != nil {
			t.Fatal(err)
		}
	}

	if n, err := c.Count(""); err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v; want 2", n, err)
	}

	if err := c.Clear(rootA); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := c.Count(rootA); n != 0 {
		t.Errorf("Count(rootA) = %d after Clear, want 0", n)
	}
	if n, _ := c.Count(rootB); n != 1 {
		t.Errorf("Count(rootB) = %d, want 1", n)
	}

	if err := c.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if n, _ := c.Count(""); n != 0 {
		t.Errorf("Count() = %d after ClearAll, want 0", n)
	}
}

func TestCachePathsAndForget(t *testing.T) {
	c := openTestCache(t)
	root := t.TempDir()
	other := t.TempDir()

	for _, rel := range []string{"b.csv", "a.csv"} {
		path := filepath.Join(root, rel)
		info := writeCSV(t, path, "x\n1\n")
		tbl, err := table.Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Store(root, rel, info, tbl); err != nil {
			t.Fatal(err)
		}
	}
	info := writeCSV(t, filepath.Join(other, "c.csv"), "x\n1\n")
	tbl, err := table.Load(filepath.Join(other, "c.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Store(other, "c.csv", info, tbl); err != nil {
		t.Fatal(err)
	}

	paths, err := c.Paths(root)
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != "a.csv" || paths[1] != "b.csv" {
		t.Errorf("Paths(root) = %v, want [a.csv b.csv]", paths)
	}

	if err := c.Forget(root, "a.csv"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	paths, err = c.Paths(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "b.csv" {
		t.Errorf("Paths(root) after Forget = %v, want [b.csv]", paths)
	}
	if n, _ := c.Count(other); n != 1 {
		t.Errorf("Count(other) = %d, want 1", n)
	}

	// Forgetting an uncached file is not an error.
	if err := c.Forget(root, "missing.csv"); err != nil {
		t.Errorf("Forget(missing) error = %v", err)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.Get("/nonexistent", "path")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMakeKey(t *testing.T) {
	tests := []struct {
		root    string
		relPath string
	}{
		{"/data", ""},
		{"/data", "adni/merge.csv"},
		{"/", "a.csv"},
	}

	for _, tt := range tests {
		key := MakeKey(tt.root, tt.relPath)
		if !strings.HasPrefix(string(key), string(MakeKeyPrefix(tt.root))) {
			t.Errorf("MakeKey(%q, %q) lacks root prefix", tt.root, tt.relPath)
		}
		root, rel := ParseKey(key)
		if root != tt.root || rel != tt.relPath {
			t.Errorf("ParseKey(MakeKey(%q, %q)) = %q, %q", tt.root, tt.relPath, root, rel)
		}
	}
}
