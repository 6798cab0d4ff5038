package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/g4youu/MacCleaner/pkg/client"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/config"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/logging"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/memory"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/privileged"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/process"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/snapshot"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// AppState represents the dashboard's modal state.
type AppState int

const (
	StateLive AppState = iota
	StateConfirm
	StatePurging
	StateReport
)

// Reader is the telemetry surface the dashboard draws on: full samples
// for the overview and paired readings for the purge runner.
type Reader interface {
	snapshot.Reader
	memory.Reader
}

// Options configures the dashboard.
type Options struct {
	// RefreshInterval is the telemetry refresh cadence.
	RefreshInterval time.Duration

	// SettleDelay and StopGrace configure the purge runner.
	SettleDelay time.Duration
	StopGrace   time.Duration

	// Socket is the agent socket path. Empty uses the default.
	Socket string

	// NoAgent disables the agent stream; all readings come from
	// direct probes.
	NoAgent bool

	// Version is shown in the header.
	Version string

	Reader    Reader
	Exec      privileged.Executor
	Directory process.Directory
}

// withDefaults fills empty fields with production handles.
func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = config.DefaultRefreshInterval
	}
	if o.Socket == "" {
		o.Socket = config.DefaultSocketPath()
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.Reader == nil {
		o.Reader = snapshot.NewReader()
	}
	if o.Exec == nil {
		o.Exec = privileged.NewExecutor()
	}
	if o.Directory == nil {
		o.Directory = process.NewDirectory()
	}
	return o
}

// Model is the main Bubble Tea model for the MacCleaner dashboard.
type Model struct {
	state   AppState
	options Options
	tab     Tab

	ctx    context.Context
	cancel context.CancelFunc

	// Telemetry
	sample    types.TelemetrySample
	sampledAt time.Time
	source    string
	history   []int

	// Agent stream
	cli     *client.Client
	eventCh <-chan client.Event

	// Tab state
	procs *ProcessListState
	logs  *LogViewerState
	logCh <-chan logging.LogEntry

	// Purge flow
	purgeSpinner   spinner.Model
	confirmFocused int // 0 = cancel, 1 = purge
	stopPIDs       []int
	report         *types.CleanupReport
	purgeErr       error

	// Window dimensions
	width  int
	height int
}

// NewModel creates a dashboard model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		state:        StateLive,
		options:      opts.withDefaults(),
		ctx:          ctx,
		cancel:       cancel,
		source:       "probe",
		procs:        NewProcessListState(),
		logs:         NewLogViewerState(logging.GetLogBuffer()),
		logCh:        logging.Subscribe(),
		purgeSpinner: s,
		width:        80,
		height:       24,
	}
}

// Messages.
type (
	tickMsg      struct{}
	logClosedMsg struct{}

	sampleMsg struct {
		sample types.TelemetrySample
		source string
	}

	procsMsg struct {
		procs []types.ProcessInfo
		err   error
	}

	agentReadyMsg struct {
		cli    *client.Client
		events <-chan client.Event
	}

	agentGoneMsg struct{ err error }

	eventMsg client.Event

	logEntryMsg logging.LogEntry

	purgeDoneMsg struct {
		report *types.CleanupReport
		err    error
	}
)

// Init kicks off the first paint, the refresh timer, the log stream and
// the agent connection attempt.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.readSample(),
		m.readProcesses(),
		m.listenLogs(),
		m.scheduleTick(),
	}
	if !m.options.NoAgent {
		cmds = append(cmds, m.connectAgent())
	}
	return tea.Batch(cmds...)
}

// scheduleTick arms the refresh timer.
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.options.RefreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// readSample probes the system directly.
func (m Model) readSample() tea.Cmd {
	reader := m.options.Reader
	ctx := m.ctx
	return func() tea.Msg {
		return sampleMsg{sample: reader.Sample(ctx), source: "probe"}
	}
}

// readProcesses refreshes the process listing.
func (m Model) readProcesses() tea.Cmd {
	dir := m.options.Directory
	ctx := m.ctx
	return func() tea.Msg {
		procs, err := dir.List(ctx)
		return procsMsg{procs: procs, err: err}
	}
}

// connectAgent dials the agent socket and opens its event stream.
func (m Model) connectAgent() tea.Cmd {
	socket := m.options.Socket
	ctx := m.ctx
	return func() tea.Msg {
		cli, err := client.ConnectWithContext(ctx, socket)
		if err != nil {
			return agentGoneMsg{err: err}
		}
		events, err := cli.Events(ctx)
		if err != nil {
			_ = cli.Close()
			return agentGoneMsg{err: err}
		}
		return agentReadyMsg{cli: cli, events: events}
	}
}

// listenEvents waits for the next agent event.
func (m Model) listenEvents() tea.Cmd {
	ch := m.eventCh
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return agentGoneMsg{}
		}
		return eventMsg(ev)
	}
}

// listenLogs waits for the next log entry.
func (m Model) listenLogs() tea.Cmd {
	ch := m.logCh
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return logClosedMsg{}
		}
		return logEntryMsg(entry)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.procs.SetDimensions(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		cmds := []tea.Cmd{m.scheduleTick()}
		if m.eventCh == nil {
			// No agent stream; probe directly.
			cmds = append(cmds, m.readSample())
		}
		if m.tab == TabProcesses && m.state == StateLive {
			cmds = append(cmds, m.readProcesses())
		}
		return m, tea.Batch(cmds...)

	case sampleMsg:
		m.applySample(msg.sample, msg.source)
		return m, nil

	case procsMsg:
		if msg.err == nil {
			m.procs.SetProcesses(msg.procs)
		}
		return m, nil

	case agentReadyMsg:
		m.cli = msg.cli
		m.eventCh = msg.events
		return m, m.listenEvents()

	case agentGoneMsg:
		if m.cli != nil {
			_ = m.cli.Close()
			m.cli = nil
		}
		m.eventCh = nil
		// Cover the gap until the next tick.
		return m, m.readSample()

	case eventMsg:
		ev := client.Event(msg)
		if ev.Type == client.EventSample && ev.Sample != nil {
			m.applySample(*ev.Sample, "agent")
		}
		return m, m.listenEvents()

	case logEntryMsg:
		m.logs.Ingest(logging.LogEntry(msg))
		return m, m.listenLogs()

	case logClosedMsg:
		return m, nil

	case purgeDoneMsg:
		m.state = StateReport
		m.report = msg.report
		m.purgeErr = msg.err
		m.procs.SelectNone()
		// Reflect the purge in the overview right away.
		return m, tea.Batch(m.readSample(), m.readProcesses())

	case spinner.TickMsg:
		if m.state == StatePurging {
			var cmd tea.Cmd
			m.purgeSpinner, cmd = m.purgeSpinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// applySample records a telemetry observation.
func (m *Model) applySample(s types.TelemetrySample, source string) {
	m.sample = s
	m.source = source
	m.sampledAt = s.TakenAt
	if m.sampledAt.IsZero() {
		m.sampledAt = time.Now()
	}
	m.history = pushHistory(m.history, s.Memory.UsedPercent)
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m.quit()
	}

	switch m.state {
	case StateConfirm:
		switch key {
		case "q", "esc", "n":
			m.state = StateLive
		case "left", "h":
			m.confirmFocused = 0
		case "right", "l":
			m.confirmFocused = 1
		case "tab":
			m.confirmFocused = (m.confirmFocused + 1) % 2
		case "enter":
			if m.confirmFocused == 1 {
				return m.startPurge()
			}
			m.state = StateLive
		case "y":
			return m.startPurge()
		}
		return m, nil

	case StatePurging:
		// No key handling while the purge runs.
		return m, nil

	case StateReport:
		switch key {
		case "q", "esc", "enter", " ":
			m.state = StateLive
			m.report = nil
			m.purgeErr = nil
		}
		return m, nil
	}

	// StateLive
	switch key {
	case "q":
		return m.quit()
	case "tab", "right":
		m.tab = m.tab.next()
		return m.enterTab()
	case "shift+tab", "left":
		m.tab = m.tab.prev()
		return m.enterTab()
	case "p":
		m.stopPIDs = nil
		m.confirmFocused = 0
		m.state = StateConfirm
		return m, nil
	case "r":
		return m, tea.Batch(m.readSample(), m.readProcesses())
	}

	if m.tab != TabLogs {
		switch key {
		case "1", "2", "3":
			m.tab = Tab(key[0] - '1')
			return m.enterTab()
		}
	}

	switch m.tab {
	case TabProcesses:
		if key == "t" {
			if m.procs.HasSelection() {
				m.stopPIDs = m.procs.SelectedPIDs()
				m.confirmFocused = 0
				m.state = StateConfirm
			}
			return m, nil
		}
		m.procs.HandleKey(key)

	case TabLogs:
		switch key {
		case "1":
			m.logs.SetFilterLevel(logging.LevelDebug)
		case "2":
			m.logs.SetFilterLevel(logging.LevelInfo)
		case "3":
			m.logs.SetFilterLevel(logging.LevelWarn)
		case "4":
			m.logs.SetFilterLevel(logging.LevelError)
		case "up", "k":
			m.logs.ScrollUp(m.logVisibleRows())
		case "down", "j":
			m.logs.ScrollDown(m.logVisibleRows())
		case "end", "G":
			m.logs.ScrollToEnd()
		}
	}

	return m, nil
}

// enterTab runs the entry action for the newly active tab.
func (m Model) enterTab() (tea.Model, tea.Cmd) {
	if m.tab == TabProcesses {
		return m, m.readProcesses()
	}
	return m, nil
}

// logVisibleRows is the log pane's row count, matching its render math.
func (m Model) logVisibleRows() int {
	rows := m.bodyHeight() - 2
	if rows < 1 {
		rows = 1
	}
	return rows
}

// quit tears down the streams and exits.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	logging.Unsubscribe(m.logCh)
	if m.cli != nil {
		_ = m.cli.Close()
	}
	return m, tea.Quit
}

// startPurge transitions into the purge flow.
func (m Model) startPurge() (tea.Model, tea.Cmd) {
	m.state = StatePurging
	m.report = nil
	m.purgeErr = nil
	return m, tea.Batch(m.purgeSpinner.Tick, m.runPurge(m.stopPIDs))
}

// runPurge performs the purge off the UI loop and reports the outcome.
func (m Model) runPurge(pids []int) tea.Cmd {
	runner := memory.NewRunner(m.options.Reader, m.options.Exec, m.options.Directory, memory.Options{
		SettleDelay: m.options.SettleDelay,
		StopGrace:   m.options.StopGrace,
	})
	ctx := m.ctx

	return func() tea.Msg {
		var report *types.CleanupReport
		var err error
		if len(pids) > 0 {
			report, err = runner.RunWithStops(ctx, pids)
		} else {
			report, err = runner.Run(ctx)
		}
		return purgeDoneMsg{report: report, err: err}
	}
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StatePurging:
		return m.renderPurging()
	case StateReport:
		return m.renderReport()
	case StateConfirm:
		return m.overlayDialog(m.renderLive(), m.renderConfirmDialog())
	default:
		return m.renderLive()
	}
}

// contentWidth is the usable width inside the outer box.
func (m Model) contentWidth() int {
	w := m.width - 4
	if w < 60 {
		w = 60
	}
	return w
}

// bodyHeight is the height available for the active tab's body.
func (m Model) bodyHeight() int {
	// Header, tab bar, two dividers, help bar and the box borders.
	h := m.height - 8
	if h < 5 {
		h = 5
	}
	return h
}

// renderLive renders the tabbed live view.
func (m Model) renderLive() string {
	contentWidth := m.contentWidth()

	var b strings.Builder
	b.WriteString(renderAppHeader(m.options.Version, m.source, m.sampledAt, contentWidth))
	b.WriteString("\n")
	b.WriteString(renderTabBar(m.tab))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")

	switch m.tab {
	case TabOverview:
		b.WriteString(renderOverview(m.sample, m.history, contentWidth, m.bodyHeight()))
	case TabProcesses:
		b.WriteString(m.procs.render(contentWidth, m.bodyHeight()))
	case TabLogs:
		b.WriteString(m.logs.render(contentWidth, m.bodyHeight()))
	}

	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	// Pad to fill the screen inside the box borders.
	content := b.String()
	contentLines := strings.Count(content, "\n") + 1
	availableLines := m.height - 2
	if availableLines > contentLines {
		content += strings.Repeat("\n", availableLines-contentLines)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHelp renders the per-tab key hints.
func (m Model) renderHelp() string {
	switch m.tab {
	case TabProcesses:
		return renderKeyHints([][2]string{
			{"Space", "Select"}, {"t", "Stop+purge"}, {"p", "Purge"},
			{"n", "None"}, {"Tab", "Next tab"}, {"q", "Quit"},
		})
	case TabLogs:
		return renderKeyHints([][2]string{
			{"1-4", "Filter"}, {"j/k", "Scroll"}, {"G", "Follow"},
			{"Tab", "Next tab"}, {"q", "Quit"},
		})
	default:
		return renderKeyHints([][2]string{
			{"p", "Purge"}, {"r", "Refresh"}, {"Tab", "Next tab"}, {"q", "Quit"},
		})
	}
}

// renderConfirmDialog renders the purge confirmation dialog.
func (m Model) renderConfirmDialog() string {
	var content strings.Builder
	content.WriteString(dialogTitleStyle.Render("Confirm Purge"))
	content.WriteString("\n\n")

	if n := len(m.stopPIDs); n > 0 {
		noun := "processes"
		if n == 1 {
			noun = "process"
		}
		content.WriteString(dialogTextStyle.Render(
			fmt.Sprintf("Stop %d %s, then purge inactive memory?", n, noun)))
	} else {
		content.WriteString(dialogTextStyle.Render("Purge inactive memory?"))
	}
	content.WriteString("\n")
	content.WriteString(warningTextStyle.Render("(May prompt for administrator rights)"))
	content.WriteString("\n\n")

	cancelBtn := inactiveButtonStyle.Render("Cancel")
	purgeBtn := inactiveButtonStyle.Render("Purge")
	if m.confirmFocused == 0 {
		cancelBtn = activeButtonStyle.Render("Cancel")
	} else {
		purgeBtn = activeButtonStyle.Background(dangerColor).Render("Purge")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, cancelBtn, "  ", purgeBtn)
	content.WriteString(center(buttons, 46))

	return dialogBoxStyle.Render(content.String())
}

// renderPurging renders the purge progress view.
func (m Model) renderPurging() string {
	contentWidth := m.contentWidth()

	var b strings.Builder
	b.WriteString(titleStyle.Render("  Purging memory..."))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	line := fmt.Sprintf("  %s Freeing inactive memory", m.purgeSpinner.View())
	if n := len(m.stopPIDs); n > 0 {
		line += fmt.Sprintf(" after stopping %d processes", n)
	}
	b.WriteString(line)
	b.WriteString("\n\n")

	b.WriteString(mutedTextStyle.Render("  Authorization may prompt for administrator rights."))
	b.WriteString("\n")
	b.WriteString(mutedTextStyle.Render("  Figures settle for a few seconds after the purge."))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderReport renders the purge outcome.
func (m Model) renderReport() string {
	contentWidth := m.contentWidth()

	var b strings.Builder

	if m.purgeErr != nil {
		b.WriteString(errorTextStyle.Render("  Purge Failed"))
		b.WriteString("\n")
		b.WriteString(renderDivider(contentWidth))
		b.WriteString("\n\n")
		b.WriteString(errorTextStyle.Render("  " + truncatePath(m.purgeErr.Error(), contentWidth-4)))
		b.WriteString("\n")
	} else if r := m.report; r != nil {
		b.WriteString(successTextStyle.Render("  Purge Complete"))
		b.WriteString("\n")
		b.WriteString(renderDivider(contentWidth))
		b.WriteString("\n\n")

		rows := [][2]string{
			{"Freed immediately", types.FormatBytes(r.ImmediateFreeGain)},
			{"Freed after settling", types.FormatBytes(r.StabilizedFreeGain)},
			{"Used memory drop", types.FormatBytes(r.StabilizedUsedDrop)},
			{"Authorization", r.Authorization.Method},
			{"Elapsed", formatDuration(r.Elapsed)},
		}
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				statsLabelStyle.Render(padRight(row[0], 22)),
				statsValueStyle.Render(row[1])))
		}

		if len(r.Stops) > 0 {
			b.WriteString("\n")
			b.WriteString(mutedTextStyle.Render("  Stop candidates:"))
			b.WriteString("\n")
			for _, s := range r.Stops {
				label := fmt.Sprintf("PID %d", s.PID)
				if s.Name != "" {
					label = fmt.Sprintf("%s (%d)", s.Name, s.PID)
				}
				if s.Signaled {
					b.WriteString(successTextStyle.Render(fmt.Sprintf("    ✓ %s stopped", label)))
				} else {
					b.WriteString(warningTextStyle.Render(fmt.Sprintf("    - %s skipped: %s", label, s.SkipReason)))
				}
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(center(keyStyle.Render("[Enter]")+" "+keyDescStyle.Render("Dismiss"), contentWidth))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// overlayDialog centers a dialog over a background view.
func (m Model) overlayDialog(bg, dialog string) string {
	dialogLines := strings.Split(dialog, "\n")
	bgLines := strings.Split(bg, "\n")

	dialogHeight := len(dialogLines)
	startRow := (m.height - dialogHeight) / 2
	if startRow < 0 {
		startRow = 0
	}

	dialogWidth := lipgloss.Width(dialog)
	startCol := (m.width - dialogWidth) / 2
	if startCol < 0 {
		startCol = 0
	}

	var result []string
	for i := range max(len(bgLines), startRow+dialogHeight) {
		if i < startRow || i >= startRow+dialogHeight {
			if i < len(bgLines) {
				result = append(result, bgLines[i])
			} else {
				result = append(result, "")
			}
			continue
		}

		dialogLine := dialogLines[i-startRow]
		if i < len(bgLines) {
			bgLine := bgLines[i]
			if startCol > len(bgLine) {
				result = append(result, strings.Repeat(" ", startCol)+dialogLine)
			} else {
				result = append(result, bgLine[:min(startCol, len(bgLine))]+dialogLine)
			}
		} else {
			result = append(result, strings.Repeat(" ", startCol)+dialogLine)
		}
	}

	return strings.Join(result, "\n")
}

// Run starts the dashboard.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := p.Run()
	return err
}
