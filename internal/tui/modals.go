package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	modalBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Background(lipgloss.Color("235")).
			Padding(1, 2)
	modalTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	modalHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	modalSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	modalItemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	modalOffStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	modalErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// RetryPicker lists past questions, newest first, for /retry without an
// argument. The cursor index is the question's distance back from the latest.
type RetryPicker struct {
	Visible   bool
	Questions []string
	Cursor    int
	MaxWidth  int
}

const retryPickerHint = "up/down: navigate  enter: ask  esc: close"

// Open shows asked, given oldest first as a session records them.
func (p *RetryPicker) Open(asked []string) {
	p.Questions = make([]string, len(asked))
	for i, q := range asked {
		p.Questions[len(asked)-1-i] = q
	}
	p.Cursor = 0
	p.Visible = true
}

func (p *RetryPicker) Close() { p.Visible = false }

func (p *RetryPicker) SetWidth(width int) { p.MaxWidth = width }

func (p *RetryPicker) Move(delta int) {
	if len(p.Questions) == 0 {
		return
	}
	p.Cursor = max(0, min(len(p.Questions)-1, p.Cursor+delta))
}

// Choice reports how many questions back the highlighted entry is.
func (p *RetryPicker) Choice() (int, bool) {
	if p.Cursor < 0 || p.Cursor >= len(p.Questions) {
		return 0, false
	}
	return p.Cursor, true
}

func (p *RetryPicker) View() string {
	if !p.Visible {
		return ""
	}
	width := modalContentWidth(p.MaxWidth)
	fit := func(text string) string {
		if width <= 0 {
			return text
		}
		return wrapToWidth(text, width)
	}

	rows := make([]string, 0, len(p.Questions))
	for i, q := range p.Questions {
		marker, style := "  ", modalItemStyle
		if i == p.Cursor {
			marker, style = "> ", modalSelStyle
		}
		label := fmt.Sprintf("%d. %s", i, q)
		if width > 0 {
			rows = append(rows, style.Render(wrapWithPrefix(marker, label, width)))
		} else {
			rows = append(rows, style.Render(marker+label))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, modalOffStyle.Render("  (nothing asked yet)"))
	}

	return boxStyleFor(p.MaxWidth).Render(strings.Join([]string{
		modalTitleStyle.Render(fit("Ask again")),
		"",
		strings.Join(rows, "\n"),
		"",
		modalHintStyle.Render(fit(retryPickerHint)),
	}, "\n"))
}

// APIKeyModal collects a replacement provider key. The key is masked except
// for its last four characters.
type APIKeyModal struct {
	Visible      bool
	Provider     string
	Value        string
	Connecting   bool
	Status       string
	ErrorMessage string
	MaxWidth     int
}

func (m *APIKeyModal) Open(providerName string) {
	m.Visible = true
	m.Provider = providerName
	m.Value = ""
	m.Connecting = false
	m.Status = ""
	m.ErrorMessage = ""
}

func (m *APIKeyModal) Close() {
	m.Visible = false
	m.Value = ""
	m.Connecting = false
	m.Status = ""
	m.ErrorMessage = ""
}

func (m *APIKeyModal) BeginConnecting(status string) {
	m.Connecting = true
	m.Status = strings.TrimSpace(status)
	m.ErrorMessage = ""
}

func (m *APIKeyModal) SetError(errMsg string) {
	m.Connecting = false
	m.Status = ""
	m.ErrorMessage = strings.TrimSpace(errMsg)
}

func (m *APIKeyModal) SetWidth(width int) {
	m.MaxWidth = width
}

func maskSecret(v string) string {
	runes := []rune(v)
	if len(runes) <= 4 {
		return strings.Repeat("•", len(runes))
	}
	return strings.Repeat("•", len(runes)-4) + string(runes[len(runes)-4:])
}

func (m *APIKeyModal) View() string {
	if !m.Visible {
		return ""
	}
	contentWidth := modalContentWidth(m.MaxWidth)
	wrap := func(text string) string {
		if contentWidth <= 0 {
			return text
		}
		return wrapToWidth(text, contentWidth)
	}

	cursor := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render("█")
	parts := []string{
		modalTitleStyle.Render(wrap(m.Provider + " API Key")),
		modalHintStyle.Render(wrap(fmt.Sprintf("Please add the %s API key. It is stored in the system keyring.", m.Provider))),
		"",
		wrap(maskSecret(m.Value) + cursor),
	}
	switch {
	case m.Connecting:
		parts = append(parts, "", modalHintStyle.Render(wrap("Connecting... "+m.Status)))
	case m.ErrorMessage != "":
		parts = append(parts, "", modalErrStyle.Render(wrap(m.ErrorMessage)))
	}
	footer := "enter: submit  esc: cancel"
	if m.Connecting {
		footer = "esc: cancel"
	}
	parts = append(parts, "", modalHintStyle.Render(wrap(footer)))

	return boxStyleFor(m.MaxWidth).Render(strings.Join(parts, "\n"))
}

func boxStyleFor(maxWidth int) lipgloss.Style {
	if maxWidth > 0 {
		return modalBoxStyle.MaxWidth(maxWidth)
	}
	return modalBoxStyle
}

// modalContentWidth leaves room for the border and padding. Zero means
// unbounded.
func modalContentWidth(maxWidth int) int {
	if maxWidth <= 0 {
		return 0
	}
	return max(20, maxWidth-8)
}
