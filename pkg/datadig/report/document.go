package report

import (
	"github.com/jamesainslie/datadig/pkg/datadig/types"
)

// document is the structured form shared by the json and yaml formatters.
type document struct {
	Root         string            `json:"root" yaml:"root"`
	Keywords     []string          `json:"keywords" yaml:"keywords"`
	FilesScanned int               `json:"files_scanned" yaml:"files_scanned"`
	TablesLoaded int               `json:"tables_loaded" yaml:"tables_loaded"`
	Matches      []documentFile    `json:"matches" yaml:"matches"`
	Warnings     []types.PathError `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type documentFile struct {
	Path    string           `json:"path" yaml:"path"`
	Keyword string           `json:"keyword" yaml:"keyword"`
	Reason  string           `json:"matched_on" yaml:"matched_on"`
	Columns []documentColumn `json:"columns,omitempty" yaml:"columns,omitempty"`
	Error   *documentError   `json:"error,omitempty" yaml:"error,omitempty"`
}

type documentColumn struct {
	Name   string              `json:"name" yaml:"name"`
	Kind   string              `json:"kind" yaml:"kind"`
	Counts map[string]int      `json:"counts,omitempty" yaml:"counts,omitempty"`
	Stats  map[string]*float64 `json:"stats,omitempty" yaml:"stats,omitempty"`
}

type documentError struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// buildDocument converts a Report to its structured form. Details are
// included only for verbose reports, mirroring the line report.
func buildDocument(r *Report) document {
	doc := document{
		Root:         r.Root,
		Keywords:     r.Keywords,
		FilesScanned: r.FilesScanned,
		TablesLoaded: r.TablesLoaded,
		Matches:      make([]documentFile, 0, len(r.Files)),
		Warnings:     r.Warnings,
	}

	for _, f := range r.Files {
		df := documentFile{Path: f.Path, Keyword: f.Keyword, Reason: f.Reason}
		if f.Error != nil {
			df.Error = &documentError{Kind: string(f.Error.Kind), Message: f.Error.Message}
		}
		for _, c := range f.Columns {
			dc := documentColumn{Name: c.Name, Kind: c.Kind.String()}
			if r.Verbose {
				if len(c.Values) > 0 {
					dc.Counts = make(map[string]int, len(c.Values))
					for _, v := range c.Values {
						dc.Counts[v.Value] = v.Count
					}
				}
				if len(c.Stats) > 0 {
					dc.Stats = make(map[string]*float64, len(c.Stats))
					for _, s := range c.Stats {
						dc.Stats[s.Name] = finite(s.Value)
					}
				}
			}
			df.Columns = append(df.Columns, dc)
		}
		doc.Matches = append(doc.Matches, df)
	}
	return doc
}
