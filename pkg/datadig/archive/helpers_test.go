package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func tarBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		data := files[name]
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedNames(files) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// nestedTree builds a data tree exercising every nesting combination and
// returns the files expected after full extraction.
func nestedTree(t *testing.T, root string) map[string]string {
	t.Helper()

	deep := []byte("id,site\n1,adni\n")
	inner := tarBytes(t, map[string][]byte{"deep.csv.gz": gzipBytes(t, deep)})
	outer := gzipBytes(t, tarBytes(t, map[string][]byte{
		"inner.tgz": gzipBytes(t, inner),
		"top.csv":   []byte("a\n1\n"),
	}))

	writeTestFile(t, filepath.Join(root, "outer.tar.gz"), outer)
	writeTestFile(t, filepath.Join(root, "bundle.zip"), zipBytes(t, map[string][]byte{
		"docs/notes.txt.gz": gzipBytes(t, []byte("notes")),
	}))
	writeTestFile(t, filepath.Join(root, "sub", "plain.tar"), tarBytes(t, map[string][]byte{
		"pack.zip": zipBytes(t, map[string][]byte{"x.csv": []byte("x\n2\n")}),
	}))
	writeTestFile(t, filepath.Join(root, "twice.zip.gz"), gzipBytes(t, zipBytes(t, map[string][]byte{
		"y.csv": []byte("y\n3\n"),
	})))
	writeTestFile(t, filepath.Join(root, "already.csv"), []byte("z\n4\n"))

	return map[string]string{
		"outer/top.csv":         "a\n1\n",
		"outer/inner/deep.csv":  string(deep),
		"bundle/docs/notes.txt": "notes",
		"sub/plain/pack/x.csv":  "x\n2\n",
		"twice/y.csv":           "y\n3\n",
		"already.csv":           "z\n4\n",
	}
}

// listFiles returns every regular file below root, relative and slash
// separated, with its contents.
func listFiles(t *testing.T, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}
