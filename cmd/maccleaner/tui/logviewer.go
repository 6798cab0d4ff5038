package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
)

// filterEntriesByLevel returns entries at or above the specified level.
func filterEntriesByLevel(entries []logging.LogEntry, minLevel logging.Level) []logging.LogEntry {
	result := make([]logging.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Level >= minLevel {
			result = append(result, e)
		}
	}
	return result
}

// clampLogScroll ensures the scroll offset stays within valid bounds.
func clampLogScroll(offset, totalEntries, visibleRows int) int {
	if totalEntries <= visibleRows {
		return 0
	}
	maxOffset := totalEntries - visibleRows
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

// getVisibleLogEntries returns a slice of entries to display.
// It filters by level, then applies offset and limit.
func getVisibleLogEntries(entries []logging.LogEntry, minLevel logging.Level, offset, limit int) []logging.LogEntry {
	filtered := filterEntriesByLevel(entries, minLevel)

	if offset >= len(filtered) {
		return nil
	}

	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[offset:end]
}

// logLevelStyle returns the style for a log level.
func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelInfo:
		return logInfoStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

// logLevelChar returns a single character for the log level.
func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelInfo:
		return "I"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "?"
	}
}

// renderLogEntry renders a single log entry.
func renderLogEntry(entry logging.LogEntry, width int) string {
	// Format: HH:MM:SS [L] component: message
	timeStr := entry.Time.Format("15:04:05")

	levelChar := logLevelChar(entry.Level)
	levelStyle := logLevelStyle(entry.Level)

	componentWidth := 10
	if len(entry.Component) < componentWidth {
		componentWidth = len(entry.Component)
	}

	prefixWidth := 8 + 1 + 3 + 1 + componentWidth + 1 + 1 // time [L] comp:
	msgWidth := width - prefixWidth
	if msgWidth < 10 {
		msgWidth = 10
	}

	msg := entry.Message
	if len(msg) > msgWidth {
		msg = msg[:msgWidth-3] + "..."
	}

	comp := entry.Component
	if len(comp) > 10 {
		comp = comp[:10]
	}

	return fmt.Sprintf("%s %s %s: %s",
		logTimeStyle.Render(timeStr),
		levelStyle.Render("["+levelChar+"]"),
		logComponentStyle.Render(comp),
		msg)
}

// LogViewerState holds the state for the logs tab. The buffer is the
// shared logging ring when the registry runs in TUI mode; entries then
// arrive through the registry broadcast and the subscription channel
// only signals a repaint. Follow keeps the view pinned to the newest
// entry until the user scrolls up.
type LogViewerState struct {
	Buffer       *logging.LogBuffer
	FilterLevel  logging.Level
	ScrollOffset int
	Follow       bool

	// private is true when the viewer owns its buffer and must add
	// subscribed entries itself.
	private bool
}

// NewLogViewerState creates a log viewer over the given ring buffer.
// A nil buffer gets a private ring fed through Ingest.
func NewLogViewerState(buffer *logging.LogBuffer) *LogViewerState {
	private := buffer == nil
	if private {
		buffer = logging.NewLogBuffer(logging.DefaultBufferSize)
	}
	return &LogViewerState{
		Buffer:      buffer,
		FilterLevel: logging.LevelDebug, // Show all by default
		Follow:      true,
		private:     private,
	}
}

// Ingest records a subscribed entry. Shared buffers receive entries via
// the registry broadcast already, so only a private ring adds here.
func (s *LogViewerState) Ingest(entry logging.LogEntry) {
	if s.private {
		s.Buffer.Add(entry)
	}
}

// SetFilterLevel sets the filter level and snaps back to follow mode.
func (s *LogViewerState) SetFilterLevel(level logging.Level) {
	s.FilterLevel = level
	s.Follow = true
	s.ScrollOffset = 0
}

// ScrollUp scrolls up by one line and leaves follow mode.
func (s *LogViewerState) ScrollUp(visibleRows int) {
	if s.Follow {
		s.ScrollOffset = s.maxOffset(visibleRows)
		s.Follow = false
	}
	if s.ScrollOffset > 0 {
		s.ScrollOffset--
	}
}

// ScrollDown scrolls down by one line. Reaching the bottom re-enables
// follow mode.
func (s *LogViewerState) ScrollDown(visibleRows int) {
	if s.Follow {
		return
	}
	maxOffset := s.maxOffset(visibleRows)
	if s.ScrollOffset < maxOffset {
		s.ScrollOffset++
	}
	if s.ScrollOffset >= maxOffset {
		s.Follow = true
	}
}

// ScrollToEnd jumps to the newest entry and re-enables follow mode.
func (s *LogViewerState) ScrollToEnd() {
	s.Follow = true
	s.ScrollOffset = 0
}

// maxOffset is the largest valid scroll offset for the current filter.
func (s *LogViewerState) maxOffset(visibleRows int) int {
	filtered := len(filterEntriesByLevel(s.Buffer.Entries(), s.FilterLevel))
	if filtered <= visibleRows {
		return 0
	}
	return filtered - visibleRows
}

// FilteredEntryCount returns the number of entries at or above the
// current filter level.
func (s *LogViewerState) FilteredEntryCount() int {
	return len(filterEntriesByLevel(s.Buffer.Entries(), s.FilterLevel))
}

// render renders the logs tab.
func (s *LogViewerState) render(width, height int) string {
	if height < 3 {
		return ""
	}

	var b strings.Builder

	filterName := s.FilterLevel.String()
	title := fmt.Sprintf(" Logs [%s] ", filterName)
	filterHint := "[1-4] filter  [j/k] scroll  [G] follow"

	logTitleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor)

	b.WriteString(logTitleStyle.Render(title) + mutedTextStyle.Render(filterHint))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	visibleRows := height - 2
	if visibleRows < 1 {
		visibleRows = 1
	}

	entries := s.Buffer.Entries()
	filtered := filterEntriesByLevel(entries, s.FilterLevel)

	offset := s.ScrollOffset
	if s.Follow {
		offset = len(filtered) - visibleRows
	}
	offset = clampLogScroll(offset, len(filtered), visibleRows)

	visible := getVisibleLogEntries(entries, s.FilterLevel, offset, visibleRows)

	for _, entry := range visible {
		b.WriteString(renderLogEntry(entry, width))
		b.WriteString("\n")
	}

	for i := len(visible); i < visibleRows; i++ {
		b.WriteString("\n")
	}

	if len(filtered) > visibleRows {
		scrollPct := 0
		if len(filtered)-visibleRows > 0 {
			scrollPct = offset * 100 / (len(filtered) - visibleRows)
		}
		indicator := fmt.Sprintf(" [%d/%d] %d%%", offset+1, len(filtered), scrollPct)
		if s.Follow {
			indicator = " following" + indicator
		}
		styled := mutedTextStyle.Render(indicator)
		padding := width - lipgloss.Width(styled)
		if padding > 0 {
			b.WriteString(strings.Repeat(" ", padding))
		}
		b.WriteString(styled)
	}

	return b.String()
}
