package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const maxSlashSuggestions = 7

// slashMenu is the completion list shown while the input is a bare slash
// command. cursor is -1 when nothing is listed.
type slashMenu struct {
	items  []slashCommand
	cursor int
	input  string
}

// filterSlashCommands lists the commands matching the first word of input,
// prefix matches ahead of substring matches, at most limit of them. A bare
// "/" lists everything.
func filterSlashCommands(input string, limit int) []slashCommand {
	raw := strings.TrimSpace(input)
	if !strings.HasPrefix(raw, "/") {
		return nil
	}
	if limit <= 0 || limit > len(slashCommands) {
		limit = len(slashCommands)
	}
	query := strings.ToLower(strings.TrimPrefix(strings.Fields(raw)[0], "/"))
	if query == "" {
		return slashCommands[:limit]
	}

	var prefix, inner []slashCommand
	for _, c := range slashCommands {
		name := strings.ToLower(strings.TrimPrefix(c.Name, "/"))
		switch {
		case strings.HasPrefix(name, query):
			prefix = append(prefix, c)
		case strings.Contains(name, query):
			inner = append(inner, c)
		}
	}
	matches := append(prefix, inner...)
	return matches[:min(limit, len(matches))]
}

func newSlashMenu() slashMenu {
	return slashMenu{cursor: -1}
}

func (s *slashMenu) visible() bool { return len(s.items) > 0 }

// sync rebuilds the list for input. A manual selection survives redraws that
// leave the input unchanged; any edit moves the cursor back to the top.
func (s *slashMenu) sync(input string) {
	edited := input != s.input
	s.input = input

	s.items = nil
	if !strings.Contains(strings.TrimSpace(input), " ") {
		s.items = filterSlashCommands(input, maxSlashSuggestions)
	}

	switch {
	case len(s.items) == 0:
		s.cursor = -1
	case edited, s.cursor < 0:
		s.cursor = 0
	default:
		s.cursor = min(s.cursor, len(s.items)-1)
	}
}

func (s *slashMenu) selected() (slashCommand, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return slashCommand{}, false
	}
	return s.items[s.cursor], true
}

// move shifts the cursor by delta, clamped to the list.
func (s *slashMenu) move(delta int) bool {
	if !s.visible() {
		return false
	}
	if s.cursor < 0 || s.cursor >= len(s.items) {
		s.cursor = 0
		return true
	}
	s.cursor = max(0, min(len(s.items)-1, s.cursor+delta))
	return true
}

func (s *slashMenu) lines(width int) []string {
	if width <= 0 {
		width = 16
	}
	out := make([]string, len(s.items))
	for i, c := range s.items {
		entry := c.Name + "  " + c.Description
		if i == s.cursor {
			out[i] = suggestSelStyle.Render(wrapWithPrefix("> ", entry, width))
		} else {
			out[i] = suggestDescStyle.Render(wrapWithPrefix("  ", entry, width))
		}
	}
	return out
}

func (s *slashMenu) height(width int) int {
	if !s.visible() {
		return 0
	}
	return lipgloss.Height(strings.Join(s.lines(width), "\n"))
}
