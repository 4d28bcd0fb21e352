package config

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	itemStyle  = lipgloss.NewStyle().PaddingLeft(2)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

type FormModel struct {
	cfg  *Config
	path string
}

func NewFormModel(cfg *Config, path string) *FormModel {
	return &FormModel{cfg: cfg, path: path}
}

func (m *FormModel) Init() tea.Cmd {
	return nil
}

func (m *FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

// Lines returns the effective configuration as label/value rows.
func (m *FormModel) Lines() [][2]string {
	c := m.cfg
	rows := [][2]string{
		{"Config file", m.path},
		{"Data source", c.DataSource.Kind},
	}
	if strings.EqualFold(c.DataSource.Kind, "remote") {
		password := ""
		if c.DataSource.Remote.Password != "" {
			password = "********"
		}
		rows = append(rows,
			[2]string{"Driver", c.DataSource.Remote.Driver},
			[2]string{"Host", c.DataSource.Remote.Host},
			[2]string{"User", c.DataSource.Remote.User},
			[2]string{"Password", password},
			[2]string{"Database", c.DataSource.Remote.Database},
		)
	} else {
		rows = append(rows, [2]string{"Database file", c.DataSource.Local.Path})
	}
	baseURL := c.Provider.BaseURL
	if baseURL == "" {
		baseURL = "(provider default)"
	}
	rows = append(rows,
		[2]string{"Primary table", c.DataSource.PrimaryTable},
		[2]string{"Reopen after", c.DataSource.Validity.String()},
		[2]string{"Provider", c.Provider.Name},
		[2]string{"Model", c.Provider.Model},
		[2]string{"Base URL", baseURL},
		[2]string{"Max iterations", fmt.Sprintf("%d", c.Provider.MaxIterations)},
		[2]string{"Log file", c.Log.File},
		[2]string{"State file", c.State.Path},
	)
	return rows
}

func (m *FormModel) View() string {
	s := titleStyle.Render("sqlchat configuration") + "\n\n"
	for _, row := range m.Lines() {
		s += itemStyle.Render(keyStyle.Render(row[0]+": ")+row[1]) + "\n"
	}
	s += "\nEdit the config file to change values. Press 'q' or 'esc' to quit.\n"
	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}

func RunConfigForm(cfg *Config) error {
	p := tea.NewProgram(NewFormModel(cfg, GetConfigPath()))
	_, err := p.Run()
	return err
}
