package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// tableRows flattens a document into header and data rows for the
// delimiter-based formats. The file table wins when present, then the
// process table, then the facts as label/value pairs.
func tableRows(d *Document) ([]string, [][]string) {
	switch {
	case len(d.Files) > 0:
		rows := make([][]string, len(d.Files))
		for i, file := range d.Files {
			rows[i] = []string{humanBytes(file.Size), file.Path}
		}
		return []string{"SIZE", "PATH"}, rows

	case len(d.Processes) > 0:
		rows := make([][]string, len(d.Processes))
		for i, p := range d.Processes {
			rows[i] = []string{
				strconv.Itoa(p.PID),
				p.User,
				humanBytes(p.ResidentBytes),
				strconv.FormatFloat(p.CPUPercent, 'f', 1, 64),
				p.Name,
			}
		}
		return []string{"PID", "USER", "MEM", "CPU", "NAME"}, rows

	default:
		var rows [][]string
		for _, sec := range d.Sections {
			for _, fact := range sec.Facts {
				rows = append(rows, []string{fact.Label, fact.Value})
			}
		}
		return []string{"LABEL", "VALUE"}, rows
	}
}

// TSVFormatter renders the document's dominant table as tab-separated
// values with a header row.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, d *Document) error {
	header, rows := tableRows(d)
	w.WriteString(strings.Join(header, "\t"))
	w.WriteByte('\n')
	for _, row := range rows {
		w.WriteString(strings.Join(row, "\t"))
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("tsv", func() Formatter {
		return &TSVFormatter{}
	})
}

// Ensure TSVFormatter implements Formatter.
var _ Formatter = (*TSVFormatter)(nil)

// CSVFormatter renders the document's dominant table as RFC 4180
// comma-separated values via encoding/csv.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, d *Document) error {
	header, rows := tableRows(d)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter renders the document's dominant table as a
// GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, d *Document) error {
	header, rows := tableRows(d)

	for i, h := range header {
		header[i] = escapeMarkdownPipe(h)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(header, " | "))

	seps := make([]string, len(header))
	for i := range seps {
		seps[i] = "------"
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))

	for _, row := range rows {
		for i, cell := range row {
			row[i] = escapeMarkdownPipe(cell)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters for Markdown table cells.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
