// Package table loads CSV files into typed columns. Every column is either
// Nominal (value counts) or Numeric (summary statistics).
package table

import (
	"sort"
)

// Kind distinguishes nominal from numeric columns.
type Kind int

// Column kinds.
const (
	KindNominal Kind = iota
	KindNumeric
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNominal:
		return "nominal"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// MissingLabel is the key nominal columns use for missing values.
const MissingLabel = "NaN"

// Stats holds summary statistics over the non-missing values of a numeric
// column. Every field is NaN when the column has no values.
type Stats struct {
	Min   float64
	Max   float64
	Range float64
	Mean  float64
	Std   float64
}

// Column is a single named column of a table.
type Column struct {
	Name string
	Kind Kind

	// Counts maps each distinct value to its number of occurrences.
	// Nominal columns only; missing values are counted under MissingLabel.
	Counts map[string]int

	// Stats is set for numeric columns only.
	Stats Stats

	// Count is the number of non-missing values of a numeric column.
	Count int

	// Len is the number of rows in the column.
	Len int
}

// Values returns the distinct values of a nominal column in sorted order.
func (c *Column) Values() []string {
	values := make([]string, 0, len(c.Counts))
	for v := range c.Counts {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// Table is a loaded CSV file. It is not modified after Load returns.
type Table struct {
	Columns map[string]*Column
	Rows    int
}

// ColumnNames returns the column names in sorted order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}
