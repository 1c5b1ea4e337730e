package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// BuiltinUnpacker extracts archives in-process. It needs no external tools
// and refuses entries that would land outside the destination.
type BuiltinUnpacker struct{}

// NewBuiltinUnpacker returns a BuiltinUnpacker.
func NewBuiltinUnpacker() *BuiltinUnpacker {
	return &BuiltinUnpacker{}
}

// Name implements Unpacker.
func (u *BuiltinUnpacker) Name() string { return "builtin" }

// Gunzip implements Unpacker.
func (u *BuiltinUnpacker) Gunzip(ctx context.Context, path string) error {
	target := filepath.Join(filepath.Dir(path), Strip(filepath.Base(path)))

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	zr, err := gzip.NewReader(src)
	if err != nil {
		return fmt.Errorf("reading gzip header of %s: %w", path, err)
	}
	defer zr.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(dst, &ctxReader{ctx: ctx, r: zr}); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return fmt.Errorf("decompressing %s: %w", path, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("closing %s: %w", target, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Unpack implements Unpacker.
func (u *BuiltinUnpacker) Unpack(ctx context.Context, kind Kind, archive, dest string) error {
	switch kind {
	case KindTar, KindTarGz:
		return untar(ctx, kind, archive, dest)
	case KindZip:
		return unzip(ctx, archive, dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func untar(ctx context.Context, kind Kind, archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archive, err)
	}
	defer f.Close()

	var r io.Reader = f
	if kind == KindTarGz {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("reading gzip header of %s: %w", archive, err)
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", archive, err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			logger.Warn("skipping unsupported tar entry", "archive", archive, "entry", hdr.Name, "type", string(hdr.Typeflag))
		}
	}
}

func unzip(ctx context.Context, archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archive, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}

		info := zf.FileInfo()
		if info.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			logger.Warn("skipping unsupported zip entry", "archive", archive, "entry", zf.Name)
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("opening %s in %s: %w", zf.Name, archive, err)
		}
		err = writeFile(target, rc, info.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if perm == 0 {
		perm = 0o644
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// safeJoin joins an archive entry name onto dest, rejecting names that
// resolve outside dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// ctxReader stops a copy once its context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
