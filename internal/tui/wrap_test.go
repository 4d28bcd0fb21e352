package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestWrapToWidthBreaksLongWords(t *testing.T) {
	t.Parallel()

	wrapped := wrapToWidth(strings.Repeat("x", 25), 10)
	lines := strings.Split(wrapped, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 wrapped lines, got %d: %q", len(lines), wrapped)
	}
	if lines[2] != strings.Repeat("x", 5) {
		t.Fatalf("unexpected last line: %q", lines[2])
	}
}

func TestWrapWithPrefixIndentsUnderAnswerLabel(t *testing.T) {
	t.Parallel()

	wrapped := wrapWithPrefix("SQLCHAT: ", "there are twelve reviews", 20)
	lines := strings.Split(wrapped, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %q", wrapped)
	}
	if !strings.HasPrefix(lines[0], "SQLCHAT: ") {
		t.Fatalf("expected first line to carry the label, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], strings.Repeat(" ", len("SQLCHAT: "))) {
		t.Fatalf("expected continuation indented under the content, got %q", lines[1])
	}
}

func TestRenderLabelledKeepsPlainText(t *testing.T) {
	t.Parallel()

	out := renderLabelled("SQLCHAT: ", "two rows", 40, lipgloss.NewStyle(), lipgloss.NewStyle())
	if out != "SQLCHAT: two rows" {
		t.Fatalf("unexpected render %q", out)
	}
}

func TestTruncateLeftKeepsDatabaseName(t *testing.T) {
	t.Parallel()

	got := truncateLeft("mysql://analyst@db.internal/reviews", 12)
	if got != "…nal/reviews" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if truncateLeft("short", 12) != "short" {
		t.Fatal("short strings must be unchanged")
	}
}

func TestFirstLinesCountsDropped(t *testing.T) {
	t.Parallel()

	got := firstLines("a\nb\nc\nd\ne", 3)
	if got != "a\n    b\n    c\n    … 2 more line(s)" {
		t.Fatalf("unexpected preview %q", got)
	}
	if tail("abcdef", 3) != "…def" {
		t.Fatalf("unexpected tail %q", tail("abcdef", 3))
	}
}
