package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// wrapToWidth soft-wraps each line of text to width cells. Long words are
// broken; trailing padding is trimmed.
func wrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	wrapper := lipgloss.NewStyle().Width(width)

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		for _, wrapped := range strings.Split(wrapper.Render(line), "\n") {
			out = append(out, strings.TrimRight(wrapped, " "))
		}
	}
	return strings.Join(out, "\n")
}

// wrapWithPrefix wraps content after prefix and indents continuation lines
// under the first content column, as in "SQLCHAT: first line\n         more".
func wrapWithPrefix(prefix, content string, width int) string {
	if width <= 0 {
		return prefix + content
	}
	prefixWidth := lipgloss.Width(prefix)
	if prefixWidth >= width {
		return wrapToWidth(prefix+content, width)
	}

	lines := strings.Split(wrapToWidth(content, width-prefixWidth), "\n")
	indent := strings.Repeat(" ", prefixWidth)
	for i := range lines {
		if i == 0 {
			lines[i] = prefix + lines[i]
		} else {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// renderLabelled is wrapWithPrefix with separate styles for the label and
// the wrapped content.
func renderLabelled(label, content string, width int, labelStyle, contentStyle lipgloss.Style) string {
	lines := strings.Split(wrapWithPrefix(label, content, width), "\n")
	if rest, ok := strings.CutPrefix(lines[0], label); ok {
		lines[0] = labelStyle.Render(label) + contentStyle.Render(rest)
	}
	for i := 1; i < len(lines); i++ {
		lines[i] = contentStyle.Render(lines[i])
	}
	return strings.Join(lines, "\n")
}

// truncateLeft keeps the last width runes of s, marking the cut with "…".
func truncateLeft(s string, width int) string {
	runes := []rune(s)
	if width <= 1 || len(runes) <= width {
		return s
	}
	return "…" + string(runes[len(runes)-width+1:])
}

// tail keeps the last n runes of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n:])
}

// firstLines keeps n lines of an observation, indented to sit under the
// "⎿" marker, and counts what was dropped.
func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n    ")
	}
	return strings.Join(lines[:n], "\n    ") + fmt.Sprintf("\n    … %d more line(s)", len(lines)-n)
}
