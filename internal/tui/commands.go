package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/sqlchat/internal/session"
)

type CommandResultMsg struct {
	Msg string
}

type ClearHistoryMsg struct{}
type OpenSourceModalMsg struct{}
type OpenAPIKeyModalMsg struct{}

// RetryMsg re-asks the n-th most recent question. Pick opens the question
// picker instead.
type RetryMsg struct {
	N    int
	Pick bool
}

type slashCommand struct {
	Name        string
	Description string
}

var slashCommands = []slashCommand{
	{Name: "/clear", Description: "Clear message history"},
	{Name: "/retry", Description: "Ask a past question again"},
	{Name: "/schema", Description: "List columns of the primary table"},
	{Name: "/source", Description: "Switch data source"},
	{Name: "/key", Description: "Replace the provider API key"},
	{Name: "/export", Description: "Save the transcript as YAML"},
	{Name: "/help", Description: "Show commands and keys"},
}

const schemaTimeout = 10 * time.Second

func normalizeSlashCommand(input string) string {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[0])
}

func slashArgs(input string) []string {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

func handleSlashCommand(cmdStr string, app *AppModel) tea.Cmd {
	return func() tea.Msg {
		switch normalizeSlashCommand(cmdStr) {
		case "/clear":
			return ClearHistoryMsg{}
		case "/retry":
			args := slashArgs(cmdStr)
			if len(args) == 0 {
				return RetryMsg{Pick: true}
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return CommandResultMsg{Msg: fmt.Sprintf("Usage: /retry [n], where n counts back from the last question (0 is the last). Got %q.", args[0])}
			}
			return RetryMsg{N: n}
		case "/schema":
			return schemaResult(app)
		case "/source":
			return OpenSourceModalMsg{}
		case "/key", "/connect":
			return OpenAPIKeyModalMsg{}
		case "/export":
			return exportResult(app)
		case "/help":
			return CommandResultMsg{Msg: helpText()}
		default:
			if suggestions := filterSlashCommands(cmdStr, 1); len(suggestions) == 1 {
				return CommandResultMsg{Msg: fmt.Sprintf("Unknown command: %s. Did you mean %s?", cmdStr, suggestions[0].Name)}
			}
			return CommandResultMsg{Msg: fmt.Sprintf("Unknown command: %s", cmdStr)}
		}
	}
}

func schemaResult(app *AppModel) tea.Msg {
	if app == nil || app.session == nil {
		return CommandResultMsg{Msg: "No data source is configured. Run /source first."}
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	table, cols, err := app.session.PrimaryColumns(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotReady) {
			return CommandResultMsg{Msg: "No data source is configured. Run /source first."}
		}
		return CommandResultMsg{Msg: fmt.Sprintf("Could not read the schema: %v", err)}
	}
	return CommandResultMsg{Msg: fmt.Sprintf("Columns of %s: %s", table, strings.Join(cols, ", "))}
}

func exportResult(app *AppModel) tea.Msg {
	if app == nil || app.session == nil {
		return CommandResultMsg{Msg: "Nothing to export."}
	}
	path, err := app.session.ExportFile(app.opts.ExportDir)
	if err != nil {
		return CommandResultMsg{Msg: fmt.Sprintf("Export failed: %v", err)}
	}
	return CommandResultMsg{Msg: "Transcript exported to " + path}
}

func helpText() string {
	lines := []string{"Commands:"}
	for _, c := range slashCommands {
		lines = append(lines, fmt.Sprintf("  %-8s %s", c.Name, c.Description))
	}
	lines = append(lines,
		"Keys:",
		"  enter    ask the question",
		"  up/down  browse input history",
		"  esc      stop the current answer",
		"  ctrl+c   clear input, stop, or quit",
	)
	return strings.Join(lines, "\n")
}
