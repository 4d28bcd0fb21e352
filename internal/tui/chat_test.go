package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/datasource"
)

func TestApplyTopSlashSuggestionMovesCursorToEnd(t *testing.T) {
	m := NewChatModel()
	m.textInput.SetValue("/sou")
	m.textInput.SetCursor(1)
	m.syncSlash()

	if !m.ApplyTopSlashSuggestion() {
		t.Fatal("expected tab autocomplete to apply suggestion")
	}
	if got := m.textInput.Value(); got != "/source" {
		t.Fatalf("expected /source after autocomplete, got %q", got)
	}
	if got, want := m.textInput.Position(), len([]rune("/source")); got != want {
		t.Fatalf("expected cursor at end (%d), got %d", want, got)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m = updated.(*ChatModel)
	if got := m.textInput.Value(); got != "/sourcex" {
		t.Fatalf("expected typing after tab to append at end, got %q", got)
	}
}

func TestEmptyStateShowsGreetingLogoAndTip(t *testing.T) {
	m := NewChatModel()
	m.Reset("How can I help you?")
	m.SetSize(120, 30)

	view := m.View()
	if !strings.Contains(strings.ToLower(view), "s q l c h a t") {
		t.Fatalf("expected empty state logo, got %q", view)
	}
	if !strings.Contains(view, "How can I help you?") {
		t.Fatalf("expected seed greeting in empty state, got %q", view)
	}
	if !strings.Contains(view, inputPlaceholder) {
		t.Fatalf("expected input placeholder, got %q", view)
	}
	if !strings.Contains(strings.ToLower(view), "run /source") {
		t.Fatalf("expected empty state tip to mention /source, got %q", view)
	}
}

func TestChatRendersAssistantLabelAndUserPrompt(t *testing.T) {
	m := NewChatModel()
	m.SetSize(100, 30)
	m.Reset("How can I help you?")
	m.AddMessage(SenderUser, "How many reviews?")
	m.AddAnswer(agent.TextAnswer("There are 2 reviews."))

	view := m.View()
	if !strings.Contains(view, "> How many reviews?") {
		t.Fatalf("expected user prompt line, got %q", view)
	}
	if !strings.Contains(view, "SQLCHAT: There are 2 reviews.") {
		t.Fatalf("expected labelled assistant answer, got %q", view)
	}
}

func TestChatRemoveMessageByKeyShiftsOtherKeys(t *testing.T) {
	m := NewChatModel()
	m.SetSystemMessageByKey("a", "first")
	m.SetSystemMessageByKey("b", "second")
	m.RemoveMessageByKey("a")
	m.SetSystemMessageByKey("b", "second updated")

	if len(m.messages) != 1 {
		t.Fatalf("expected one message left, got %d", len(m.messages))
	}
	if m.messages[0].Content != "second updated" {
		t.Fatalf("expected key b to still point at its message, got %q", m.messages[0].Content)
	}
}

func TestChatViewportStopsAutoScrollWhenUserScrollsUp(t *testing.T) {
	m := NewChatModel()
	m.SetSize(100, 20)
	for i := 0; i < 60; i++ {
		m.AddMessage(SenderSystem, fmt.Sprintf("message %d", i))
	}
	if !m.viewport.AtBottom() {
		t.Fatal("expected viewport to start at bottom")
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = updated.(*ChatModel)
	if m.viewport.AtBottom() {
		t.Fatal("expected viewport to scroll up after pgup")
	}
	if m.stickToBottom {
		t.Fatal("expected auto-scroll to be disabled after manual scroll")
	}

	m.AddMessage(SenderSystem, "new message while scrolled up")
	if m.viewport.AtBottom() {
		t.Fatal("expected viewport to stay off-bottom when auto-scroll disabled")
	}
}

func TestChatViewportResumesAutoScrollAtBottom(t *testing.T) {
	m := NewChatModel()
	m.SetSize(100, 20)
	for i := 0; i < 60; i++ {
		m.AddMessage(SenderSystem, fmt.Sprintf("message %d", i))
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = updated.(*ChatModel)

	for i := 0; i < 20 && !m.viewport.AtBottom(); i++ {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
		m = updated.(*ChatModel)
	}
	if !m.stickToBottom {
		t.Fatal("expected auto-scroll to re-enable at bottom")
	}

	m.AddMessage(SenderSystem, "new message at bottom")
	if !m.viewport.AtBottom() {
		t.Fatal("expected viewport to remain pinned at bottom")
	}
}

func TestChatActivityLineVisibleAndClearable(t *testing.T) {
	m := NewChatModel()
	m.SetSize(100, 20)
	m.AddMessage(SenderSystem, "hello")
	m.SetLoading(true, "SQLCHAT")

	m.SetActivity("Querying", "run_query")
	view := m.View()
	if !strings.Contains(view, "Querying run_query") {
		t.Fatalf("expected activity in view, got %q", view)
	}
	if !strings.Contains(view, "esc/ctrl+c to interrupt") {
		t.Fatalf("expected interrupt hint in activity line, got %q", view)
	}

	m.ClearActivity()
	view = m.View()
	if strings.Contains(view, "Querying run_query") {
		t.Fatalf("expected cleared activity line, got %q", view)
	}
	if !strings.Contains(view, "SQLCHAT is thinking...") {
		t.Fatalf("expected plain loading line, got %q", view)
	}
}

func TestRenderAnswerTableCapsRows(t *testing.T) {
	res := datasource.QueryResult{Columns: []string{"id"}}
	for i := 0; i < maxRenderedRows+5; i++ {
		res.Rows = append(res.Rows, []string{fmt.Sprintf("row-%d", i)})
	}
	out := renderAnswerTable(agent.TableAnswer("", res).Table, 40)

	if !strings.Contains(out, "row-0") {
		t.Fatalf("expected first row, got %q", out)
	}
	if strings.Contains(out, fmt.Sprintf("row-%d", maxRenderedRows)) {
		t.Fatalf("expected rows beyond the cap to be hidden, got %q", out)
	}
	if !strings.Contains(out, "5 more row(s)") {
		t.Fatalf("expected hidden row note, got %q", out)
	}
}

func TestRenderAnswerTableEmpty(t *testing.T) {
	out := renderAnswerTable(&agent.Table{Columns: []string{"id"}}, 0)
	if !strings.Contains(out, "(no rows)") {
		t.Fatalf("expected empty note, got %q", out)
	}
}
