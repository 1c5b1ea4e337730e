// Package archive extracts nested compressed archives in place.
//
// Supported formats are gzip, tar, gzipped tar and zip. Archives are
// recognised by filename suffix only.
package archive

import (
	"strings"
)

// Kind identifies an archive format.
type Kind int

// Archive kinds. KindNone marks files that are not archives.
const (
	KindNone Kind = iota
	KindGzip
	KindTar
	KindTarGz
	KindZip
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindGzip:
		return "gzip"
	case KindTar:
		return "tar"
	case KindTarGz:
		return "tar.gz"
	case KindZip:
		return "zip"
	default:
		return "none"
	}
}

// suffixes is ordered so compound suffixes are tried first.
var suffixes = []struct {
	suffix string
	kind   Kind
}{
	{".tar.gz", KindTarGz},
	{".tgz", KindTarGz},
	{".tar", KindTar},
	{".gz", KindGzip},
	{".zip", KindZip},
}

// Classify returns the archive kind of a file name. Matching ignores case.
// A name that is nothing but a suffix (".gz") is not an archive.
func Classify(name string) Kind {
	kind, _ := match(name)
	return kind
}

// Strip returns name without its archive suffix. Names that Classify
// rejects are returned unchanged.
func Strip(name string) string {
	_, suffix := match(name)
	return name[:len(name)-len(suffix)]
}

// IsArchive reports whether name has a supported archive suffix.
func IsArchive(name string) bool {
	return Classify(name) != KindNone
}

func match(name string) (Kind, string) {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) && len(lower) > len(s.suffix) {
			return s.kind, s.suffix
		}
	}
	return KindNone, ""
}
