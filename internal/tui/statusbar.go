package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	sbBaseStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("235")).Padding(0, 1)
	sbSourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	sbModelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sbStateIdleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sbStateBusyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	sbStateOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sbHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

const unsetLabel = "(unset)"

type StatusBarModel struct {
	Source    string
	ModelName string
	State     string
	Hint      string
	width     int
}

func NewStatusBarModel() *StatusBarModel {
	return &StatusBarModel{
		Source:    unsetLabel,
		ModelName: unsetLabel,
		State:     "not configured",
	}
}

func (m *StatusBarModel) Init() tea.Cmd { return nil }

func (m *StatusBarModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

func (m *StatusBarModel) SetSource(source string) {
	m.Source = orUnset(source)
}

func (m *StatusBarModel) SetModel(provider, model string) {
	model = strings.TrimSpace(model)
	if p := strings.TrimSpace(provider); p != "" && model != "" {
		model = p + "/" + model
	}
	m.ModelName = orUnset(model)
}

func (m *StatusBarModel) SetState(state string) {
	m.State = orUnset(state)
}

func (m *StatusBarModel) SetHint(hint string) {
	m.Hint = strings.TrimSpace(hint)
}

func (m *StatusBarModel) View() string {
	stateStyle := sbStateIdleStyle
	switch m.State {
	case "answering", "cancelling", "connecting":
		stateStyle = sbStateBusyStyle
	case "not configured", unsetLabel:
		stateStyle = sbStateOffStyle
	}

	modelStr := sbModelStyle.Render(fmt.Sprintf("[MODEL: %s]", m.ModelName))
	stateStr := stateStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(m.State)))
	right := modelStr + " | " + stateStr
	if m.Hint != "" {
		right += " " + sbHintStyle.Render(m.Hint)
	}

	source := m.Source
	if m.width > 0 {
		// Keep the tail of long paths: the file name matters most.
		budget := m.width - lipgloss.Width(right) - len("[SOURCE: ] | ") - 2
		source = truncateLeft(source, budget)
	}
	s := sbSourceStyle.Render(fmt.Sprintf("[SOURCE: %s]", source)) + " | " + right
	return sbBaseStyle.Width(m.width).Render(s)
}

func orUnset(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unsetLabel
	}
	return s
}
