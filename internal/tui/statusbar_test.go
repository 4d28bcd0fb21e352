package tui

import (
	"strings"
	"testing"
)

func TestStatusBarShowsSourceModelAndState(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel()
	sb.SetWidth(200)
	sb.SetSource("sqlite:reviews.db")
	sb.SetModel("groq", "llama3-8b-8192")
	sb.SetState("ready")

	view := sb.View()
	for _, want := range []string{"[SOURCE: sqlite:reviews.db]", "[MODEL: groq/llama3-8b-8192]", "[READY]"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in status bar, got %q", want, view)
		}
	}
}

func TestStatusBarTruncatesSourceFromLeft(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel()
	sb.SetWidth(70)
	sb.SetSource("mysql://analyst@very-long-hostname.internal.example.com/reviews_archive")

	view := sb.View()
	if !strings.Contains(view, "reviews_archive") {
		t.Fatalf("expected source tail preserved, got %q", view)
	}
	if !strings.Contains(view, "…") {
		t.Fatalf("expected left-side truncation ellipsis, got %q", view)
	}
}

func TestStatusBarUsesUnsetLabels(t *testing.T) {
	t.Parallel()

	sb := NewStatusBarModel()
	sb.SetWidth(220)
	sb.SetSource("  ")

	view := strings.ToLower(sb.View())
	if !strings.Contains(view, "[source: (unset)]") {
		t.Fatalf("status bar should show unset source, got %q", view)
	}
	if !strings.Contains(view, "[not configured]") {
		t.Fatalf("status bar should show the not configured state, got %q", view)
	}
}
