package walker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTree builds:
//
//	root/a.txt
//	root/b.csv
//	root/sub/c.txt
//	root/sub/deeper/d.csv
//	root/skip/e.txt
func createTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := []string{
		"a.txt",
		"b.csv",
		filepath.Join("sub", "c.txt"),
		filepath.Join("sub", "deeper", "d.csv"),
		filepath.Join("skip", "e.txt"),
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return root
}

func TestWalk_VisitsEveryFileOnce(t *testing.T) {
	root := createTestTree(t)

	seen := make(map[string]int)
	err := Walk(context.Background(), root, func(dir, path string) error {
		assert.Equal(t, filepath.Dir(path), dir)
		seen[RelativePath(root, path)]++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"a.txt":                                 1,
		"b.csv":                                 1,
		filepath.Join("sub", "c.txt"):           1,
		filepath.Join("sub", "deeper", "d.csv"): 1,
		filepath.Join("skip", "e.txt"):          1,
	}, seen)
}

func TestWalk_FilesBeforeSubdirectories(t *testing.T) {
	root := createTestTree(t)

	var order []string
	err := Walk(context.Background(), root, func(_, path string) error {
		order = append(order, RelativePath(root, path))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, order, 5)

	// Files directly in root come before anything in a subdirectory.
	assert.False(t, strings.Contains(order[0], string(filepath.Separator)))
	assert.False(t, strings.Contains(order[1], string(filepath.Separator)))
}

func TestWalk_DescendsIntoDirectoriesCreatedByVisitor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "seed.txt"), []byte("x"), 0o644))

	var visited []string
	err := Walk(context.Background(), root, func(dir, path string) error {
		visited = append(visited, RelativePath(root, path))
		if filepath.Base(path) == "seed.txt" {
			fresh := filepath.Join(dir, "fresh")
			if err := os.Mkdir(fresh, 0o755); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(fresh, "inner.txt"), []byte("y"), 0o644)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"seed.txt", filepath.Join("fresh", "inner.txt")}, visited)
}

func TestWalk_InvalidRoot(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		err := Walk(context.Background(), filepath.Join(t.TempDir(), "nope"), func(string, string) error { return nil })
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty root", func(t *testing.T) {
		t.Chdir(createTestTree(t))
		visited := 0
		err := Walk(context.Background(), "", func(string, string) error {
			visited++
			return nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Zero(t, visited)
	})

	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(file, nil, 0o644))

		err := Walk(context.Background(), file, func(string, string) error { return nil })
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorIs(t, err, ErrNotADirectory)
	})
}

func TestWalk_VisitorErrorStopsWalk(t *testing.T) {
	root := createTestTree(t)
	boom := errors.New("boom")

	calls := 0
	err := Walk(context.Background(), root, func(string, string) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWalk_Cancelled(t *testing.T) {
	root := createTestTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Walk(ctx, root, func(string, string) error {
		t.Fatal("visitor called after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWalkWithOptions_Exclude(t *testing.T) {
	root := createTestTree(t)

	var visited []string
	err := WalkWithOptions(context.Background(), root, Options{Exclude: []string{"skip", "*.csv"}}, func(_, path string) error {
		visited = append(visited, RelativePath(root, path))
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.txt", filepath.Join("sub", "c.txt")}, visited)
}

func TestFind(t *testing.T) {
	root := createTestTree(t)

	found, err := Find(context.Background(), root, Options{}, func(path string) bool {
		return strings.HasSuffix(path, ".csv")
	})
	require.NoError(t, err)

	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(absRoot, "b.csv"),
		filepath.Join(absRoot, "sub", "deeper", "d.csv"),
	}, found)
}

func TestFind_Exclude(t *testing.T) {
	root := createTestTree(t)

	found, err := Find(context.Background(), root, Options{Exclude: []string{"sub"}}, func(string) bool { return true })
	require.NoError(t, err)

	var rel []string
	for _, p := range found {
		rel = append(rel, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.txt", "b.csv", "e.txt"}, rel)
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"direct child", "/data", "/data/a.csv", "a.csv"},
		{"nested", "/data", "/data/x/y/a.csv", "x/y/a.csv"},
		{"trailing separator on root", "/data/", "/data/x/a.csv", "x/a.csv"},
		{"root itself", "/data", "/data", ""},
		{"outside root", "/data", "/other/a.csv", "/other/a.csv"},
		{"sibling prefix", "/data", "/database/a.csv", "/database/a.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RelativePath(filepath.FromSlash(tt.root), filepath.FromSlash(tt.path))
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestExcluder(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"/data/tmp", "/data/tmp", true},
		{"/data/tmp/file", "/data/tmp", true},
		{"/data/tmpfile", "/data/tmp", false},
		{"/data/x.bak", "*.bak", true},
		{"/data/x.csv", "*.bak", false},
		{"/data/x.csv", "", false},
		{"/data/a/b/cache", "/data/**/cache", true},
		{"/data/a/b/cache", "/data/*/cache", false},
		{"/data/__MACOSX", "__MACOSX", true},
		{"/data/[x", "/data/[x", true},
	}

	for _, tt := range tests {
		ex := newExcluder([]string{tt.pattern})
		got := ex.match(filepath.FromSlash(tt.path))
		assert.Equal(t, tt.want, got, "path=%s pattern=%s", tt.path, tt.pattern)
	}
}
