// Package tui provides the Bubble Tea experiment presenter.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/stroopread/internal/model"
	"github.com/verte-zerg/stroopread/internal/present"
)

type showMsg struct{ step model.Step }

type dismissMsg struct{ id string }

type awaitMsg struct{ step model.Step }

// event is a participant action forwarded to the presenter.
type event struct {
	key   string
	text  string
	input bool
	abort bool
	at    time.Time
}

// Model implements the Bubble Tea experiment screen. Steps are stacked as
// layers and the most recent one is drawn.
type Model struct {
	layers   []model.Step
	awaiting *model.Step
	input    textinput.Model
	events   chan<- event

	width  int
	height int
}

var (
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	sentenceStyle = textStyle
	maskStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	fixationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// inkColors maps FontColourCode names to terminal colours. Codes starting
// with '#' are used as is.
var inkColors = map[string]string{
	"red":    "#E53935",
	"green":  "#43A047",
	"blue":   "#1E88E5",
	"yellow": "#FDD835",
	"orange": "#FB8C00",
	"purple": "#8E24AA",
	"pink":   "#EC407A",
	"brown":  "#8D6E63",
	"grey":   "#9E9E9E",
	"gray":   "#9E9E9E",
	"white":  "#F0F0F0",
	"black":  "#000000",
}

// NewModel constructs an experiment screen that forwards responses to events.
func NewModel(events chan<- event) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 64
	return &Model{events: events, input: input}
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
		return m, nil
	case showMsg:
		return m, m.show(msg.step)
	case dismissMsg:
		m.dismiss(msg.id)
		return m, nil
	case awaitMsg:
		step := msg.step
		m.awaiting = &step
		if step.Kind == model.StepInput {
			return m, m.input.Focus()
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.emit(event{abort: true, at: time.Now()})
			return m, tea.Quit
		}
		return m, m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.layers) == 0 {
		return ""
	}
	top := m.layers[len(m.layers)-1]
	contentWidth := int(float64(m.width) * 0.70)
	content := m.renderStep(top, contentWidth)
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := renderFooter(top.Progress)
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) show(step model.Step) tea.Cmd {
	for i := range m.layers {
		if m.layers[i].ID == step.ID {
			m.layers[i] = step
			return nil
		}
	}
	m.layers = append(m.layers, step)
	if step.Kind == model.StepInput {
		m.input.Reset()
		return m.input.Focus()
	}
	return nil
}

func (m *Model) dismiss(id string) {
	for i := range m.layers {
		if m.layers[i].ID == id {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			break
		}
	}
	if m.awaiting != nil && m.awaiting.ID == id {
		m.awaiting = nil
	}
	if !m.hasInputLayer() {
		m.input.Blur()
	}
}

func (m *Model) hasInputLayer() bool {
	for _, l := range m.layers {
		if l.Kind == model.StepInput {
			return true
		}
	}
	return false
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.awaiting == nil {
		return nil
	}
	now := time.Now()
	if m.awaiting.Kind == model.StepInput {
		if msg.Type == tea.KeyEnter {
			m.emit(event{text: m.input.Value(), input: true, at: now})
			m.input.Reset()
			m.awaiting = nil
			return nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return cmd
	}
	key := keyName(msg)
	if !present.Accepts(m.awaiting.Keys, key) {
		return nil
	}
	m.emit(event{key: key, at: now})
	m.awaiting = nil
	return nil
}

func (m *Model) emit(ev event) {
	select {
	case m.events <- ev:
	default:
	}
}

func keyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return " "
	case tea.KeyRunes:
		return string(msg.Runes)
	default:
		return msg.String()
	}
}

func (m *Model) renderStep(step model.Step, width int) string {
	switch step.Kind {
	case model.StepFixation:
		return fixationStyle.Render(step.Text)
	case model.StepWord:
		return inkStyle(step.Color).Render(step.Text)
	case model.StepSentence:
		return wrapStyledRunes(buildSentenceRunes(step.Text, step.Reveal), width)
	case model.StepFeedback:
		if step.Correct {
			return correctStyle.Render(step.Text)
		}
		return wrongStyle.Render(step.Text)
	case model.StepConsent:
		return m.paragraph(step, width, "[Y] yes   [N] no", "Please confirm to continue.")
	case model.StepQuestion:
		return m.paragraph(step, width, "[Y] yes   [N] no", "")
	case model.StepInput:
		return m.paragraph(step, width, m.input.View(), "An ID is required to continue.")
	default:
		return m.paragraph(step, width, continueHint(step.Keys), "")
	}
}

func (m *Model) paragraph(step model.Step, width int, hint, warning string) string {
	style := textStyle
	if width > 0 {
		style = style.Width(width)
	}
	parts := []string{style.Render(step.Text)}
	if hint != "" {
		parts = append(parts, "", hintStyle.Render(hint))
	}
	if step.Warn && warning != "" {
		parts = append(parts, "", warnStyle.Render(warning))
	}
	return strings.Join(parts, "\n")
}

func continueHint(keys string) string {
	switch {
	case keys == "":
		return "Press any key to continue"
	case keys == " ":
		return "Press space to continue"
	default:
		return fmt.Sprintf("Press %s to continue", strings.Join(strings.Split(keys, ""), "/"))
	}
}

func inkStyle(code string) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	code = strings.ToLower(strings.TrimSpace(code))
	if strings.HasPrefix(code, "#") {
		return style.Foreground(lipgloss.Color(code))
	}
	if hex, ok := inkColors[code]; ok {
		return style.Foreground(lipgloss.Color(hex))
	}
	return style.Inherit(textStyle)
}

func renderFooter(p model.Progress) string {
	if p.Total <= 0 {
		return ""
	}
	current := min(p.Current, p.Total)
	pct := int(float64(current) / float64(p.Total) * 100)
	return footerStyle.Render(fmt.Sprintf("Trial %d of %d  ·  %d%%", current, p.Total, pct))
}
