// Package report turns inspection results into output. The plain line
// report is the canonical form; json, yaml and pretty render the same
// model.
//
// The package uses a registry pattern so formatters can be selected by
// name at runtime:
//
//	formatter, err := report.Get("plain")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, report.New(result, verbose)); err != nil {
//	    return err
//	}
package report

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/jamesainslie/datadig/pkg/datadig/inspect"
	"github.com/jamesainslie/datadig/pkg/datadig/table"
	"github.com/jamesainslie/datadig/pkg/datadig/types"
)

// Report strings.
const (
	Indent      = "\t"
	Mapping     = ": "
	NoMatchLine = "There were no CSVs containing any of the provided key words"
	loadErrLine = "The CSV for this path could not be loaded due to an error of type: %s and with message: %s"
)

// Stat names in report order.
const (
	StatMin   = "Min"
	StatMax   = "Max"
	StatRange = "Range"
	StatMean  = "Mean"
	StatStd   = "Std"
)

// Stat is one named summary statistic.
type Stat struct {
	Name  string
	Value float64
}

// ValueCount is one distinct nominal value and its frequency.
type ValueCount struct {
	Value string
	Count int
}

// Column is a column of a relevant table, with sorted details.
type Column struct {
	Name   string
	Kind   table.Kind
	Values []ValueCount
	Stats  []Stat
}

// File is one relevant path.
type File struct {
	Path    string
	Keyword string
	Reason  string
	Columns []Column
	Error   *table.LoadError
}

// Report is the format-independent view of an inspection.
type Report struct {
	Root         string
	Keywords     []string
	Verbose      bool
	Files        []File
	FilesScanned int
	TablesLoaded int
	Warnings     []types.PathError
}

// New builds a report from an inspection result. Files, columns and values
// are sorted so output is deterministic.
func New(r *inspect.Result, verbose bool) *Report {
	rep := &Report{
		Root:         r.Root,
		Keywords:     r.Keywords,
		Verbose:      verbose,
		FilesScanned: r.FilesScanned,
		TablesLoaded: r.TablesLoaded,
		Warnings:     r.Warnings,
	}

	for _, path := range r.Paths() {
		entry := r.Entries[path]
		f := File{
			Path:    path,
			Keyword: entry.Match.Keyword,
			Reason:  entry.Match.Reason.String(),
			Error:   entry.Err,
		}
		if entry.Table != nil {
			for _, name := range entry.Table.ColumnNames() {
				f.Columns = append(f.Columns, newColumn(entry.Table.Columns[name]))
			}
		}
		rep.Files = append(rep.Files, f)
	}
	return rep
}

func newColumn(c *table.Column) Column {
	col := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == table.KindNumeric {
		col.Stats = []Stat{
			{StatMin, c.Stats.Min},
			{StatMax, c.Stats.Max},
			{StatRange, c.Stats.Range},
			{StatMean, c.Stats.Mean},
			{StatStd, c.Stats.Std},
		}
		return col
	}
	for _, v := range c.Values() {
		col.Values = append(col.Values, ValueCount{Value: v, Count: c.Counts[v]})
	}
	return col
}

// Lines renders the plain line report. With Verbose unset only paths and
// column names are listed.
func Lines(r *Report) []string {
	if len(r.Files) == 0 {
		return []string{NoMatchLine}
	}

	var lines []string
	for _, f := range r.Files {
		lines = append(lines, f.Path)
		if f.Error != nil {
			lines = append(lines, Indent+fmt.Sprintf(loadErrLine, f.Error.Kind, f.Error.Message))
			continue
		}
		for _, c := range f.Columns {
			lines = append(lines, Indent+c.Name)
			if !r.Verbose {
				continue
			}
			for _, v := range c.Values {
				lines = append(lines, Indent+Indent+v.Value+Mapping+strconv.Itoa(v.Count))
			}
			for _, s := range c.Stats {
				lines = append(lines, Indent+Indent+s.Name+Mapping+FormatNumber(s.Value))
			}
		}
	}
	return lines
}

// FormatNumber renders a statistic with the shortest exact representation.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// finite returns nil for NaN and infinities, which JSON cannot carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Formatter is the interface that all report formatters implement.
type Formatter interface {
	// Format writes the formatted report to the buffer.
	Format(w *bytes.Buffer, r *Report) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry, replacing any
// existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
