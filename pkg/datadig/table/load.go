package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/jamesainslie/datadig/pkg/datadig/types"
)

// ErrorKind classifies a LoadError.
type ErrorKind string

// Load error kinds.
const (
	ErrParse    ErrorKind = "ParseError"
	ErrEmpty    ErrorKind = "EmptyFile"
	ErrIO       ErrorKind = "IOError"
	ErrTooLarge ErrorKind = "TooLarge"
)

// LoadError describes why a file could not be loaded as a table.
type LoadError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsLoadError returns err as a *LoadError, converting foreign errors to
// an IOError.
func AsLoadError(err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Kind: ErrIO, Message: err.Error()}
}

var missingTokens = map[string]struct{}{
	"":         {},
	"NaN":      {},
	"nan":      {},
	"-NaN":     {},
	"-nan":     {},
	"NA":       {},
	"N/A":      {},
	"n/a":      {},
	"#NA":      {},
	"#N/A":     {},
	"#N/A N/A": {},
	"NULL":     {},
	"null":     {},
	"None":     {},
	"<NA>":     {},
	"1.#IND":   {},
	"-1.#IND":  {},
	"1.#QNAN":  {},
	"-1.#QNAN": {},
}

// IsMissing reports whether a raw cell value denotes a missing value.
// Tokens match exactly; surrounding spaces make a value present.
func IsMissing(value string) bool {
	_, ok := missingTokens[value]
	return ok
}

// Options controls loading.
type Options struct {
	// MaxSize rejects files larger than this many bytes. Zero disables
	// the limit.
	MaxSize int64
}

// Load reads the CSV file at path.
func Load(path string) (*Table, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions reads the CSV file at path honouring opts.
func LoadWithOptions(path string, opts Options) (*Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrIO, Message: err.Error()}
	}
	if err := CheckSize(info.Size(), opts.MaxSize); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrIO, Message: err.Error()}
	}
	defer f.Close()

	return LoadReader(f)
}

// CheckSize returns a TooLarge LoadError when size exceeds maxSize. A
// maxSize of zero disables the check.
func CheckSize(size, maxSize int64) error {
	if maxSize <= 0 || size <= maxSize {
		return nil
	}
	return &LoadError{
		Kind: ErrTooLarge,
		Message: fmt.Sprintf("file is %s, limit is %s",
			types.FormatSize(size), types.FormatSize(maxSize)),
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadReader parses CSV from r. The first record is the header. Rows
// shorter than the header are padded with missing values; longer rows are
// a ParseError.
func LoadReader(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &LoadError{Kind: ErrEmpty, Message: "No columns to parse from file"}
	}
	if err != nil {
		return nil, readError(err)
	}
	names := dedupeHeader(header)

	raw := make([][]string, len(names))
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}
		if len(record) > len(names) {
			line, _ := reader.FieldPos(0)
			return nil, &LoadError{
				Kind:    ErrParse,
				Message: fmt.Sprintf("Expected %d fields in line %d, saw %d", len(names), line, len(record)),
			}
		}
		for i := range names {
			v := ""
			if i < len(record) {
				v = record[i]
			}
			raw[i] = append(raw[i], v)
		}
		rows++
	}

	t := &Table{Columns: make(map[string]*Column, len(names)), Rows: rows}
	for i, name := range names {
		t.Columns[name] = buildColumn(name, raw[i])
	}
	return t, nil
}

func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &LoadError{Kind: ErrParse, Message: pe.Error()}
	}
	return &LoadError{Kind: ErrIO, Message: err.Error()}
}

// dedupeHeader renames repeated column names to name.1, name.2, ...
func dedupeHeader(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		name := h
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

func buildColumn(name string, values []string) *Column {
	col := &Column{Name: name, Len: len(values)}

	numbers, ok := parseNumeric(values)
	if !ok {
		col.Kind = KindNominal
		col.Counts = make(map[string]int)
		for _, v := range values {
			if IsMissing(v) {
				v = MissingLabel
			}
			col.Counts[v]++
		}
		return col
	}

	col.Kind = KindNumeric
	col.Count = len(numbers)
	col.Stats = summarize(numbers)
	return col
}

// parseNumeric returns the non-missing values as floats, or false when the
// column is empty or any non-missing value is not a number.
func parseNumeric(values []string) ([]float64, bool) {
	if len(values) == 0 {
		return nil, false
	}
	numbers := make([]float64, 0, len(values))
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		// Out-of-range values parse to ±Inf.
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, false
		}
		numbers = append(numbers, f)
	}
	return numbers, true
}

func summarize(data []float64) Stats {
	nan := math.NaN()
	s := Stats{Min: nan, Max: nan, Range: nan, Mean: nan, Std: nan}
	if len(data) == 0 {
		return s
	}

	minimum, err := stats.Min(data)
	if err != nil {
		return s
	}
	maximum, err := stats.Max(data)
	if err != nil {
		return s
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return s
	}
	s.Min, s.Max, s.Range, s.Mean = minimum, maximum, maximum-minimum, mean

	if len(data) > 1 {
		if std, err := stats.StandardDeviationSample(data); err == nil {
			s.Std = std
		}
	}
	return s
}
