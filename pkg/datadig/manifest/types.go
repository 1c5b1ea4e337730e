// Package manifest keeps a JSON history of extract and inspect runs.
package manifest

import "time"

// OperationType represents the type of operation.
type OperationType string

const (
	// OpExtract represents an archive extraction run.
	OpExtract OperationType = "extract"
	// OpInspect represents a keyword inspection run.
	OpInspect OperationType = "inspect"
)

// Entry represents a single manifest entry.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationType `json:"operation"`
	Root      string        `json:"root"`
	Keywords  []string      `json:"keywords,omitempty"`
	Files     []FileRecord  `json:"files"`
	Summary   Summary       `json:"summary"`
}

// FileRecord represents a file touched or reported by a run.
type FileRecord struct {
	Path string `json:"path"`
	Size int64  `json:"size,omitempty"`

	// Kind is the archive kind for extractions and the match reason for
	// inspections.
	Kind string `json:"kind,omitempty"`

	// Detail is the extraction target or the matching keyword.
	Detail string `json:"detail,omitempty"`
}

// Summary contains operation summary.
type Summary struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
	Passes     int   `json:"passes,omitempty"`
	Scanned    int   `json:"scanned,omitempty"`
	Warnings   int   `json:"warnings,omitempty"`
}
