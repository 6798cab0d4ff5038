package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// PrettyFormatter renders a document with colors and boxes using
// lipgloss, for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, d *Document) error {
	w.WriteString(f.formatHeader(d))
	w.WriteString("\n")

	if len(d.Files) > 0 {
		w.WriteString(f.formatFiles(d.Files))
		w.WriteString(f.formatFooter(d))
	}

	if len(d.Processes) > 0 {
		w.WriteString(f.formatProcesses(d.Processes))
	}

	if len(d.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(d.Warnings))
	}

	return nil
}

// formatHeader builds the box holding the title and fact sections.
func (f *PrettyFormatter) formatHeader(d *Document) string {
	var lines []string

	if d.Title != "" {
		lines = append(lines, TitleStyle.Render(d.Title))
	}

	for _, sec := range d.Sections {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		if sec.Title != "" {
			lines = append(lines, SectionStyle.Render(sec.Title))
		}

		width := 0
		for _, fact := range sec.Facts {
			if len(fact.Label) > width {
				width = len(fact.Label)
			}
		}
		for _, fact := range sec.Facts {
			label := LabelStyle.Render(padRight(fact.Label+":", width+1))
			lines = append(lines, fmt.Sprintf("%s %s", label, f.styleValue(fact)))
		}
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// styleValue colors a fact value according to its status.
func (f *PrettyFormatter) styleValue(fact Fact) string {
	switch fact.Status {
	case StatusGood:
		return SuccessStyle.Render(fact.Value)
	case StatusWarn:
		return WarningStyle.Render(fact.Value)
	case StatusBad:
		return ErrorStyle.Render(fact.Value)
	default:
		return ValueStyle.Render(fact.Value)
	}
}

// formatFiles builds the file table with SIZE and PATH columns.
func (f *PrettyFormatter) formatFiles(files []FileRow) string {
	var sb strings.Builder

	sizeHeader := TableHeaderStyle.Render("SIZE")
	pathHeader := TableHeaderStyle.Render("PATH")
	sb.WriteString(fmt.Sprintf("  %s  %s\n", sizeHeader, pathHeader))

	maxSizeWidth := 8
	sizes := make([]string, len(files))
	for i, file := range files {
		sizes[i] = humanBytes(file.Size)
		if len(sizes[i]) > maxSizeWidth {
			maxSizeWidth = len(sizes[i])
		}
	}

	for i, file := range files {
		sizeStr := SizeStyle.Render(padLeft(sizes[i], maxSizeWidth))
		pathStr := PathStyle.Render(file.Path)
		sb.WriteString(fmt.Sprintf("  %s  %s\n", sizeStr, pathStr))
	}

	return sb.String()
}

// formatProcesses builds the process table.
func (f *PrettyFormatter) formatProcesses(procs []ProcessRow) string {
	var sb strings.Builder

	header := fmt.Sprintf("  %s  %s  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("PID", 6)),
		TableHeaderStyle.Render(padRight("USER", 10)),
		TableHeaderStyle.Render(padLeft("MEM", 9)),
		TableHeaderStyle.Render(padLeft("CPU", 5)),
		TableHeaderStyle.Render("NAME"))
	sb.WriteString(header)

	for _, p := range procs {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s\n",
			ValueStyle.Render(padLeft(strconv.Itoa(p.PID), 6)),
			MutedStyle.Render(padRight(p.User, 10)),
			SizeStyle.Render(padLeft(humanBytes(p.ResidentBytes), 9)),
			ValueStyle.Render(padLeft(fmt.Sprintf("%.1f", p.CPUPercent), 5)),
			PathStyle.Render(p.Name)))
	}

	return sb.String()
}

// formatFooter builds the summary box under a file table.
func (f *PrettyFormatter) formatFooter(d *Document) string {
	var parts []string

	countLabel := LabelStyle.Render("Files:")
	countValue := ValueStyle.Render(strconv.Itoa(len(d.Files)))
	parts = append(parts, fmt.Sprintf("%s %s", countLabel, countValue))

	totalLabel := LabelStyle.Render("Total:")
	totalValue := SizeStyle.Render(humanBytes(d.TotalSize()))
	parts = append(parts, fmt.Sprintf("%s %s", totalLabel, totalValue))

	hint := MutedStyle.Render("Use -o plain for unformatted output")
	parts = append(parts, hint)

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padLeft pads a string with spaces on the left to the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
