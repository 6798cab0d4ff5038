package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter renders a document as aligned plain text with no
// colors or styling, suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, d *Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	first := true
	sep := func() {
		if !first {
			fmt.Fprintln(tw)
		}
		first = false
	}

	for _, sec := range d.Sections {
		sep()
		if sec.Title != "" {
			fmt.Fprintf(tw, "%s\n", sec.Title)
		}
		for _, fact := range sec.Facts {
			fmt.Fprintf(tw, "%s\t%s\n", fact.Label, fact.Value)
		}
	}

	if len(d.Files) > 0 {
		sep()
		fmt.Fprintln(tw, "SIZE\tPATH")
		for _, file := range d.Files {
			fmt.Fprintf(tw, "%s\t%s\n", humanBytes(file.Size), file.Path)
		}
	}

	if len(d.Processes) > 0 {
		sep()
		fmt.Fprintln(tw, "PID\tUSER\tMEM\tCPU\tNAME")
		for _, p := range d.Processes {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\n",
				p.PID, p.User, humanBytes(p.ResidentBytes), p.CPUPercent, p.Name)
		}
	}

	if len(d.Warnings) > 0 {
		sep()
		for _, warning := range d.Warnings {
			fmt.Fprintf(tw, "WARNING\t%s\n", warning)
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
