// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/stats"
	"github.com/verte-zerg/stroopread/internal/store"
)

const (
	tabOverview = iota
	tabSessions
	tabPhases
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	overview  viewport.Model
	tables    map[int]*table.Model

	filterMode  bool
	filterInput textinput.Model

	width  int
	height int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store:    st,
		cfg:      cfg,
		tabs:     []string{"Overview", "Sessions", "Phases"},
		overview: viewport.New(0, 0),
	}
	sessions := newTable(sessionColumns())
	phases := newTable(phaseColumns())
	m.tables = map[int]*table.Model{tabSessions: &sessions, tabPhases: &phases}
	m.filterInput = textinput.New()
	m.filterInput.Prompt = "Participant: "
	m.filterInput.Placeholder = "all"
	m.filterInput.Cursor.SetMode(cursor.CursorBlink)
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			return m, nil
		case "/":
			m.filterMode = true
			m.filterInput.SetValue(m.cfg.Participant)
			return m, m.filterInput.Focus()
		}
		if t, ok := m.tables[m.activeTab]; ok {
			var cmd tea.Cmd
			*t, cmd = t.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.overview, cmd = m.overview.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.filterMode = false
		m.filterInput.Blur()
		m.cfg.Participant = strings.TrimSpace(m.filterInput.Value())
		m.refreshReport()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X"))) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	for _, t := range m.tables {
		t.SetWidth(m.width)
		t.SetHeight(max(1, bodyHeight-1))
	}
	m.filterInput.Width = max(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	for tab, t := range m.tables {
		if tab == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.overview.SetContent("Failed to load stats.")
		return
	}
	m.errMsg = ""
	m.report = report
	m.tables[tabSessions].SetRows(sessionRows(report))
	m.tables[tabPhases].SetRows(phaseRows(report.PhasesAll))
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.errMsg != "" {
		return
	}
	m.overview.SetContent(renderOverview(m.report, m.cfg.CurveWindow, m.width))
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	return tabs + "\n" + headerStyle.Render(truncateLine(m.filterSummary(), m.width))
}

func (m *Model) filterSummary() string {
	participant := m.cfg.Participant
	if participant == "" {
		participant = "all"
	}
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = fmt.Sprintf("%d", m.cfg.Last)
	}
	return fmt.Sprintf("Settings: participant=%s  since=%s  last=%s  window=%d", participant, since, last, m.cfg.CurveWindow)
}

func (m *Model) renderBody() string {
	if m.filterMode {
		return m.filterInput.View()
	}
	if t, ok := m.tables[m.activeTab]; ok {
		if len(m.report.Sessions) == 0 {
			return "No sessions found."
		}
		return tableMutedStyle.Render(t.View())
	}
	return m.overview.View()
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Scroll: up/down  Window: -/=  Participant: /  Quit: q"
	if m.filterMode {
		help = "enter: apply  esc: cancel"
	}
	out := headerStyle.Render(help)
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg)
	}
	return out
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Sessions) == 0 {
		return "No sessions found."
	}
	var correct, incorrect, timedOut int
	var rtSum, rtCount int64
	for _, s := range report.Sessions {
		correct += s.Correct
		incorrect += s.Incorrect
		timedOut += s.TimedOut
		rtSum += s.RTSumMs
		rtCount += s.RTCount
	}
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(report.Sessions))),
		metricCard("Accuracy", fmt.Sprintf("%.1f%%", stats.Accuracy(correct, incorrect)*100)),
		metricCard("Mean RT", fmt.Sprintf("%.0f ms", stats.MeanRT(rtSum, rtCount))),
		metricCard("Timeouts", fmt.Sprintf("%d", timedOut)),
	}
	summary := strings.Join(cards, "\n")
	if width >= 80 {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	var buf bytes.Buffer
	if err := stats.RenderCurves(&buf, report.Sessions, window); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(summary+"\n\n"+buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func newTable(columns []table.Column) table.Model {
	t := table.New(table.WithColumns(columns), table.WithHeight(1))
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Participant", Width: 12},
		{Title: "Ended", Width: 16},
		{Title: "Trials", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Mean RT", Width: 9},
		{Title: "Scores", Width: 20},
	}
}

func sessionRows(report stats.Report) []table.Row {
	rows := make([]table.Row, 0, len(report.Sessions))
	// Newest first.
	for i := len(report.Sessions) - 1; i >= 0; i-- {
		s := report.Sessions[i]
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", s.SessionID),
			s.ParticipantID,
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", s.Trials),
			fmt.Sprintf("%.1f%%", stats.Accuracy(s.Correct, s.Incorrect)*100),
			fmt.Sprintf("%.0f ms", stats.MeanRT(s.RTSumMs, s.RTCount)),
			formatScores(report.Scores[s.SessionID]),
		})
	}
	return rows
}

func phaseColumns() []table.Column {
	return []table.Column{
		{Title: "Phase", Width: 20},
		{Title: "Trials", Width: 6},
		{Title: "Accuracy", Width: 9},
		{Title: "Mean RT", Width: 9},
		{Title: "Timeouts", Width: 8},
		{Title: "Skipped", Width: 7},
	}
}

func phaseRows(phases []model.PhaseAggregate) []table.Row {
	rows := make([]table.Row, 0, len(phases))
	for _, p := range phases {
		rows = append(rows, table.Row{
			p.Phase,
			fmt.Sprintf("%d", p.Trials),
			fmt.Sprintf("%.1f%%", stats.Accuracy(p.Correct, p.Incorrect)*100),
			fmt.Sprintf("%.0f ms", stats.MeanRT(p.RTSumMs, p.RTCount)),
			fmt.Sprintf("%d", p.TimedOut),
			fmt.Sprintf("%d", p.Skipped),
		})
	}
	return rows
}

func formatScores(scores map[string]int) string {
	if len(scores) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(scores))
	for _, name := range []string{"color", "stroop"} {
		if v, ok := scores[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", name, v))
		}
	}
	extra := make([]string, 0, len(scores))
	for name := range scores {
		if name != "color" && name != "stroop" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		parts = append(parts, fmt.Sprintf("%s=%d", name, scores[name]))
	}
	return strings.Join(parts, " ")
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
