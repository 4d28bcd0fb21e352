package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/sqlchat/internal/datasource"
)

const (
	fieldHost = iota
	fieldUser
	fieldPassword
	fieldDatabase
	fieldCount
)

var remoteFieldLabels = [fieldCount]string{"Host", "User", "Password", "Database"}

// SourceModal chooses between the bundled sqlite file and a remote server.
// Focus 0 is the choice row; 1..4 are the remote fields, reachable only when
// the remote option is selected.
type SourceModal struct {
	Visible      bool
	Remote       bool
	LocalPath    string
	Driver       datasource.Dialect
	Connecting   bool
	Status       string
	ErrorMessage string
	MaxWidth     int

	focus  int
	fields [fieldCount]textinput.Model
}

func NewSourceModal(localPath string, driver datasource.Dialect) *SourceModal {
	m := &SourceModal{LocalPath: localPath, Driver: driver}
	if m.Driver == "" {
		m.Driver = datasource.DialectMySQL
	}
	for i := range m.fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Placeholder = strings.ToLower(remoteFieldLabels[i])
		if i == fieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.fields[i] = ti
	}
	return m
}

// Open shows the modal prefilled from the active configuration. The password
// is never prefilled.
func (m *SourceModal) Open(current datasource.Config) {
	m.Visible = true
	m.Connecting = false
	m.Status = ""
	m.ErrorMessage = ""
	m.Remote = current.Kind == datasource.KindRemote
	if current.Kind == datasource.KindLocal && current.Local.Path != "" {
		m.LocalPath = current.Local.Path
	}
	if current.Remote.Driver != "" {
		m.Driver = current.Remote.Driver
	}
	m.fields[fieldHost].SetValue(current.Remote.Host)
	m.fields[fieldUser].SetValue(current.Remote.User)
	m.fields[fieldPassword].SetValue("")
	m.fields[fieldDatabase].SetValue(current.Remote.Database)
	m.setFocus(0)
}

func (m *SourceModal) Close() {
	m.Visible = false
	m.Connecting = false
	m.fields[fieldPassword].SetValue("")
	m.setFocus(0)
}

func (m *SourceModal) SetWidth(width int) {
	m.MaxWidth = width
}

func (m *SourceModal) Focus() int {
	return m.focus
}

func (m *SourceModal) setFocus(i int) {
	m.focus = i
	for idx := range m.fields {
		if idx == i-1 {
			m.fields[idx].Focus()
		} else {
			m.fields[idx].Blur()
		}
	}
}

func (m *SourceModal) MoveFocus(delta int) {
	if !m.Remote {
		m.setFocus(0)
		return
	}
	next := m.focus + delta
	if next < 0 {
		next = 0
	}
	if next > fieldCount {
		next = fieldCount
	}
	m.setFocus(next)
}

func (m *SourceModal) Toggle() {
	m.Remote = !m.Remote
	m.ErrorMessage = ""
	m.setFocus(0)
}

// Update routes a key to the focused row. Enter and esc are handled by the
// caller.
func (m *SourceModal) Update(msg tea.KeyMsg) tea.Cmd {
	if m.Connecting {
		return nil
	}
	if m.focus == 0 {
		switch msg.String() {
		case "left", "right", " ", "tab", "shift+tab":
			m.Toggle()
		}
		return nil
	}
	switch msg.String() {
	case "tab":
		m.MoveFocus(1)
		return nil
	case "shift+tab":
		m.MoveFocus(-1)
		return nil
	}
	var cmd tea.Cmd
	m.fields[m.focus-1], cmd = m.fields[m.focus-1].Update(msg)
	return cmd
}

func (m *SourceModal) SetField(i int, v string) {
	if i >= 0 && i < fieldCount {
		m.fields[i].SetValue(v)
	}
}

// Config builds the selected configuration. It does not validate.
func (m *SourceModal) Config() datasource.Config {
	if !m.Remote {
		return datasource.Local(m.LocalPath)
	}
	return datasource.Remote(m.Driver,
		m.fields[fieldHost].Value(),
		m.fields[fieldUser].Value(),
		m.fields[fieldPassword].Value(),
		m.fields[fieldDatabase].Value(),
	)
}

func (m *SourceModal) BeginConnecting(status string) {
	m.Connecting = true
	m.Status = strings.TrimSpace(status)
	m.ErrorMessage = ""
}

func (m *SourceModal) SetError(errMsg string) {
	m.Connecting = false
	m.Status = ""
	m.ErrorMessage = strings.TrimSpace(errMsg)
}

func (m *SourceModal) localLabel() string {
	name := filepath.Base(m.LocalPath)
	if name == "." || name == "" {
		name = "reviews.db"
	}
	return "Use SQLite3 Database - " + name
}

func (m *SourceModal) View() string {
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

	radio := func(selected bool, label string) string {
		mark := "( )"
		if selected {
			mark = "(•)"
		}
		return mark + " " + label
	}
	choiceStyle := modalItemStyle
	if m.focus == 0 {
		choiceStyle = modalSelStyle
	}
	parts := []string{
		modalTitleStyle.Render(wrap("Choose a data source")),
		"",
		choiceStyle.Render(wrap(radio(!m.Remote, m.localLabel()))),
		choiceStyle.Render(wrap(radio(m.Remote, fmt.Sprintf("Connect to %s Database", m.Driver.DisplayName())))),
	}

	if m.Remote {
		parts = append(parts, "")
		for i := range m.fields {
			style := modalItemStyle
			prefix := "  "
			if m.focus == i+1 {
				style = modalSelStyle
				prefix = "> "
			}
			parts = append(parts, style.Render(prefix+fmt.Sprintf("%-9s", remoteFieldLabels[i]+":"))+" "+m.fields[i].View())
		}
	}

	switch {
	case m.Connecting:
		parts = append(parts, "", modalHintStyle.Render(wrap("Connecting... "+m.Status)))
	case m.ErrorMessage != "":
		parts = append(parts, "", modalErrStyle.Render(wrap(m.ErrorMessage)))
	}

	footer := "left/right: choose  up/down: move  enter: connect  esc: cancel"
	if m.Connecting {
		footer = "esc: cancel"
	}
	parts = append(parts, "", modalHintStyle.Render(wrap(footer)))
	return boxStyleFor(m.MaxWidth).Render(strings.Join(parts, "\n"))
}
