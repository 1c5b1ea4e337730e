package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter renders the report with colors and boxes using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if len(r.Files) == 0 {
		w.WriteString(MutedStyle.Render("  " + NoMatchLine))
		w.WriteString("\n")
	}
	for _, file := range r.Files {
		w.WriteString(f.formatFile(file, r.Verbose))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")

	if len(r.Warnings) > 0 {
		w.WriteString(f.formatWarnings(r))
	}
	return nil
}

func (f *PrettyFormatter) formatHeader(r *Report) string {
	lines := []string{
		LabelStyle.Render("Root:") + " " + ValueStyle.Render(r.Root),
		LabelStyle.Render("Keywords:") + " " + ValueStyle.Render(strings.Join(r.Keywords, ", ")),
	}
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *PrettyFormatter) formatFile(file File, verbose bool) string {
	var sb strings.Builder

	sb.WriteString(PathStyle.Render(file.Path))
	sb.WriteString(" ")
	sb.WriteString(MutedStyle.Render(fmt.Sprintf("(%s matched %q)", file.Reason, file.Keyword)))
	sb.WriteString("\n")

	if file.Error != nil {
		sb.WriteString("  ")
		sb.WriteString(ErrorStyle.Render(fmt.Sprintf("%s: %s", file.Error.Kind, file.Error.Message)))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, c := range file.Columns {
		sb.WriteString("  ")
		sb.WriteString(ColumnStyle.Render(c.Name))
		sb.WriteString(" ")
		sb.WriteString(KindStyle.Render(c.Kind.String()))
		sb.WriteString("\n")
		if !verbose {
			continue
		}
		for _, v := range c.Values {
			sb.WriteString("    ")
			sb.WriteString(LabelStyle.Render(v.Value + Mapping))
			sb.WriteString(NumberStyle.Render(strconv.Itoa(v.Count)))
			sb.WriteString("\n")
		}
		if len(c.Stats) > 0 {
			parts := make([]string, 0, len(c.Stats))
			for _, s := range c.Stats {
				parts = append(parts, LabelStyle.Render(s.Name+Mapping)+NumberStyle.Render(FormatNumber(s.Value)))
			}
			sb.WriteString("    ")
			sb.WriteString(strings.Join(parts, "  "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Report) string {
	parts := []string{
		LabelStyle.Render("Matches:") + " " + ValueStyle.Render(humanize.Comma(int64(len(r.Files)))),
		LabelStyle.Render("Scanned:") + " " + ValueStyle.Render(humanize.Comma(int64(r.FilesScanned))),
		LabelStyle.Render("Loaded:") + " " + ValueStyle.Render(humanize.Comma(int64(r.TablesLoaded))),
	}
	if !r.Verbose && len(r.Files) > 0 {
		parts = append(parts, MutedStyle.Render("Use --verbose for statistics"))
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func (f *PrettyFormatter) formatWarnings(r *Report) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, w := range r.Warnings {
		sb.WriteString(WarningStyle.Render("  " + w.String()))
		sb.WriteString("\n")
	}
	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
