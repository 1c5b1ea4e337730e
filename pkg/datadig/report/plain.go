package report

import (
	"bytes"
)

// PlainFormatter writes the line report, one line per row.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Report) error {
	for _, line := range Lines(r) {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
