package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yubzen/sqlchat/internal/agent"
)

// maxRenderedRows bounds what the transcript draws; the full result stays in
// the session and in exports.
const maxRenderedRows = 20

var (
	tableBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	tableHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	tableOddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Padding(0, 1)
	tableNoteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

func renderAnswerTable(t *agent.Table, width int) string {
	if t == nil || len(t.Columns) == 0 {
		return tableNoteStyle.Render("(no columns)")
	}
	rows := t.Rows
	hidden := 0
	if len(rows) > maxRenderedRows {
		hidden = len(rows) - maxRenderedRows
		rows = rows[:maxRenderedRows]
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case row%2 == 1:
				return tableOddStyle
			default:
				return tableCellStyle
			}
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}

	out := tbl.String()
	var notes []string
	if len(t.Rows) == 0 {
		notes = append(notes, "(no rows)")
	}
	if hidden > 0 {
		notes = append(notes, fmt.Sprintf("… %d more row(s), /export for the full result", hidden))
	}
	if t.Truncated {
		notes = append(notes, "result was truncated by the row limit")
	}
	if len(notes) > 0 {
		out += "\n" + tableNoteStyle.Render(strings.Join(notes, "; "))
	}
	return out
}
