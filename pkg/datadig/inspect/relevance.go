package inspect

import (
	"github.com/jamesainslie/datadig/pkg/datadig/table"
)

// Reason records which criterion made a table relevant.
type Reason int

// Relevance criteria in evaluation order.
const (
	ReasonNone Reason = iota
	ReasonPath
	ReasonColumn
	ReasonValue
)

// String returns the name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonPath:
		return "path"
	case ReasonColumn:
		return "column"
	case ReasonValue:
		return "value"
	default:
		return "none"
	}
}

// Match explains why a table is relevant.
type Match struct {
	Reason  Reason `json:"-"`
	Keyword string `json:"keyword"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Relevance checks the relative path, then column names, then the values
// of nominal columns, stopping at the first hit. Numeric columns never
// match. A nil table is judged on its path alone.
func Relevance(relPath string, t *table.Table, kw Keywords) (Match, bool) {
	if w, ok := kw.Match(relPath); ok {
		return Match{Reason: ReasonPath, Keyword: w}, true
	}
	if t == nil {
		return Match{}, false
	}

	names := t.ColumnNames()
	for _, name := range names {
		if w, ok := kw.Match(name); ok {
			return Match{Reason: ReasonColumn, Keyword: w, Column: name}, true
		}
	}

	for _, name := range names {
		col := t.Columns[name]
		if col.Kind != table.KindNominal {
			continue
		}
		for _, v := range col.Values() {
			if w, ok := kw.Match(v); ok {
				return Match{Reason: ReasonValue, Keyword: w, Column: name, Value: v}, true
			}
		}
	}

	return Match{}, false
}
