package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/memory"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// ProcessListState holds the processes tab: the current listing, cursor
// position and the stop-candidate selection. Selection is keyed by PID
// so it survives the periodic refresh reordering the rows.
type ProcessListState struct {
	procs    []types.ProcessInfo
	cursor   int
	selected map[int]bool // PID -> selected
	offset   int          // scroll offset
	width    int
	height   int
}

// NewProcessListState creates an empty process list.
func NewProcessListState() *ProcessListState {
	return &ProcessListState{
		selected: make(map[int]bool),
		width:    80,
		height:   24,
	}
}

// SetProcesses replaces the listing with a fresh one. Selections whose
// PID disappeared are dropped; the cursor is clamped.
func (s *ProcessListState) SetProcesses(procs []types.ProcessInfo) {
	s.procs = procs

	alive := make(map[int]bool, len(procs))
	for _, p := range procs {
		alive[p.PID] = true
	}
	for pid := range s.selected {
		if !alive[pid] {
			delete(s.selected, pid)
		}
	}

	if s.cursor >= len(procs) {
		s.cursor = len(procs) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	s.ensureVisible()
}

// SetDimensions updates the width and height.
func (s *ProcessListState) SetDimensions(width, height int) {
	s.width = width
	s.height = height
}

// HandleKey handles navigation and selection keys.
func (s *ProcessListState) HandleKey(key string) {
	switch key {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
			s.ensureVisible()
		}

	case "down", "j":
		if s.cursor < len(s.procs)-1 {
			s.cursor++
			s.ensureVisible()
		}

	case " ":
		s.Toggle(s.cursor)

	case "n":
		s.SelectNone()

	case "home", "g":
		s.cursor = 0
		s.offset = 0

	case "end", "G":
		if len(s.procs) > 0 {
			s.cursor = len(s.procs) - 1
			s.ensureVisible()
		}

	case "pgup":
		s.cursor -= s.visibleRows()
		if s.cursor < 0 {
			s.cursor = 0
		}
		s.ensureVisible()

	case "pgdown":
		s.cursor += s.visibleRows()
		if s.cursor >= len(s.procs) {
			s.cursor = len(s.procs) - 1
		}
		s.ensureVisible()
	}
}

// Toggle toggles selection of the process at the given index. Adding
// beyond the stop-candidate cap is refused.
func (s *ProcessListState) Toggle(index int) {
	if index < 0 || index >= len(s.procs) {
		return
	}
	pid := s.procs[index].PID
	if s.selected[pid] {
		delete(s.selected, pid)
		return
	}
	if len(s.selected) >= memory.MaxStopCandidates {
		return
	}
	s.selected[pid] = true
}

// SelectNone clears the selection.
func (s *ProcessListState) SelectNone() {
	s.selected = make(map[int]bool)
}

// SelectedPIDs returns the selected PIDs in listing order.
func (s *ProcessListState) SelectedPIDs() []int {
	var pids []int
	for _, p := range s.procs {
		if s.selected[p.PID] {
			pids = append(pids, p.PID)
		}
	}
	return pids
}

// SelectedCount returns the number of selected processes.
func (s *ProcessListState) SelectedCount() int {
	return len(s.selected)
}

// HasSelection reports whether any process is selected.
func (s *ProcessListState) HasSelection() bool {
	return len(s.selected) > 0
}

// SelectedBytes returns the total resident size of the selection.
func (s *ProcessListState) SelectedBytes() uint64 {
	var total uint64
	for _, p := range s.procs {
		if s.selected[p.PID] {
			total += p.ResidentBytes
		}
	}
	return total
}

// Cursor returns the current cursor position.
func (s *ProcessListState) Cursor() int {
	return s.cursor
}

// visibleRows returns the number of listing rows that fit.
func (s *ProcessListState) visibleRows() int {
	// Header, column captions, divider and footer take the rest.
	available := s.height - 4
	if available < 5 {
		available = 5
	}
	return available
}

// ensureVisible adjusts offset to keep the cursor visible.
func (s *ProcessListState) ensureVisible() {
	visibleRows := s.visibleRows()

	if s.cursor < s.offset {
		s.offset = s.cursor
	} else if s.cursor >= s.offset+visibleRows {
		s.offset = s.cursor - visibleRows + 1
	}

	if s.offset < 0 {
		s.offset = 0
	}
}

// render renders the processes tab.
func (s *ProcessListState) render(width, height int) string {
	s.width = width
	s.height = height

	if len(s.procs) == 0 {
		return "\n" + center(mutedTextStyle.Render("No process listing yet."), width)
	}

	var b strings.Builder

	b.WriteString(s.renderColumns(width))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	visibleRows := s.visibleRows()
	rendered := 0
	for i := s.offset; i < s.offset+visibleRows && i < len(s.procs); i++ {
		b.WriteString(s.renderRow(i, width))
		b.WriteString("\n")
		rendered++
	}
	for ; rendered < visibleRows; rendered++ {
		b.WriteString("\n")
	}

	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	b.WriteString(s.renderFooter(width))

	return b.String()
}

// renderColumns renders the column captions.
func (s *ProcessListState) renderColumns(width int) string {
	caption := fmt.Sprintf("      %s %s %s  %s  %s",
		padLeft("MEMORY", 9), padLeft("CPU%", 6), padLeft("PID", 6), padRight("USER", 10), "NAME")
	return mutedTextStyle.Render(caption)
}

// renderRow renders one process row.
func (s *ProcessListState) renderRow(index, width int) string {
	p := s.procs[index]
	isSelected := s.selected[p.PID]
	isCursor := index == s.cursor

	var checkbox string
	if isSelected {
		checkbox = checkedStyle.Render("[x]")
	} else {
		checkbox = uncheckedStyle.Render("[ ]")
	}

	var cursor string
	if isCursor {
		cursor = cursorStyle.Render(">")
	} else {
		cursor = " "
	}

	mem := memSizeStyle.Render(padLeft(types.FormatBytes(p.ResidentBytes), 9))
	cpu := padLeft(fmt.Sprintf("%.1f", p.CPUPercent), 6)
	pid := padLeft(fmt.Sprintf("%d", p.PID), 6)
	user := padRight(truncatePath(p.User, 10), 10)

	nameWidth := width - 48
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := truncatePath(p.Name, nameWidth)

	line := fmt.Sprintf(" %s %s %s %s %s  %s  %s", cursor, checkbox, mem, cpu, pid, user, name)

	if isCursor {
		return selectedItemStyle.Width(width).Render(line)
	}
	return normalItemStyle.Render(line)
}

// renderFooter renders the selection summary.
func (s *ProcessListState) renderFooter(width int) string {
	left := fmt.Sprintf("  Selected: %d of %d max (%s resident)",
		s.SelectedCount(), memory.MaxStopCandidates, types.FormatBytes(s.SelectedBytes()))
	right := mutedTextStyle.Render(fmt.Sprintf("%d processes ", len(s.procs)))

	spacing := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 1 {
		spacing = 1
	}

	return left + strings.Repeat(" ", spacing) + right
}
