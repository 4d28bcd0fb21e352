package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/sqlchat/internal/agent"
)

const (
	SenderUser      = "User"
	SenderAssistant = "Assistant"
	SenderSystem    = "System"

	inputPlaceholder = "Ask anything from the database"
)

var (
	chatViewportStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, true, false).BorderForeground(lipgloss.Color("238"))
	assistantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	systemStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	suggestBoxStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	suggestDescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	suggestSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	splashLogoDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true)
	splashLogoBright  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	splashCardStyle   = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(lipgloss.Color("39")).
				Padding(1, 2).
				Background(lipgloss.Color("236"))
	splashPromptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	splashCursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	splashTipStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	loadingStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	loadingTimerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activityStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	activityHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	placeholderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	promptIndicator     = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// LoadingTickMsg is sent periodically to update the loading timer display.
type LoadingTickMsg struct{}

type ChatMessage struct {
	Sender  string
	Content string
	Table   *agent.Table
	// Seed marks the greeting every transcript starts with.
	Seed bool
}

type ChatModel struct {
	viewport         viewport.Model
	textInput        textinput.Model
	messages         []ChatMessage
	keyedMessages    map[string]int
	slash            slashMenu
	width            int
	height           int
	isLoading        bool
	loadingStarted   time.Time
	loadingLabel     string
	activityPhase    string
	activityDetail   string
	stickToBottom    bool
}

func NewChatModel() *ChatModel {
	ti := textinput.New()
	ti.Placeholder = ""
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 50

	vp := viewport.New(0, 0)
	vp.SetContent("")

	return &ChatModel{
		viewport:         vp,
		textInput:        ti,
		keyedMessages:    make(map[string]int),
		slash:            newSlashMenu(),
		stickToBottom:    true,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if _, ok := msg.(LoadingTickMsg); ok {
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	cmds = append(cmds, cmd)
	m.syncSlash()

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if _, ok := msg.(tea.KeyMsg); ok {
		m.stickToBottom = m.viewport.AtBottom()
	}

	return m, tea.Batch(cmds...)
}

func (m *ChatModel) SetSize(w, h int) {
	if w == 0 || h == 0 {
		return
	}
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.textInput.Width = m.inputWrapWidth()
	m.reflow()

	m.renderMessages()
}

// SetLoading shows or hides the spinner line with the given label.
func (m *ChatModel) SetLoading(loading bool, label string) {
	m.isLoading = loading
	if loading {
		m.loadingStarted = time.Now()
		m.loadingLabel = strings.TrimSpace(label)
		if m.loadingLabel == "" {
			m.loadingLabel = "SQLCHAT"
		}
	} else {
		m.loadingLabel = ""
	}
	m.reflow()
}

func (m *ChatModel) IsLoading() bool {
	return m.isLoading
}

// loadingTickCmd returns a command that ticks every second while loading.
func loadingTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return LoadingTickMsg{}
	})
}

// SetActivity replaces the one-line status above the input, e.g.
// "Querying run_query".
func (m *ChatModel) SetActivity(phase, detail string) {
	m.activityPhase = strings.TrimSpace(phase)
	m.activityDetail = strings.TrimSpace(detail)
}

func (m *ChatModel) ClearActivity() {
	m.activityPhase = ""
	m.activityDetail = ""
}

func (m *ChatModel) AddMessage(sender, content string) {
	m.messages = append(m.messages, ChatMessage{Sender: sender, Content: content})
	m.refresh()
}

// AddAnswer appends an assistant answer, drawing tables when present.
func (m *ChatModel) AddAnswer(answer agent.Answer) {
	msg := ChatMessage{Sender: SenderAssistant, Content: answer.Text}
	if answer.Kind == agent.AnswerTable {
		msg.Table = answer.Table
	}
	m.messages = append(m.messages, msg)
	m.refresh()
}

// Reset drops every message and shows just the seed greeting.
func (m *ChatModel) Reset(greeting string) {
	m.messages = []ChatMessage{{Sender: SenderAssistant, Content: greeting, Seed: true}}
	m.keyedMessages = make(map[string]int)
	m.stickToBottom = true
	m.refresh()
}

func (m *ChatModel) SetSystemMessageByKey(key, content string) {
	key = strings.TrimSpace(key)
	if key == "" {
		m.AddMessage(SenderSystem, content)
		return
	}
	if m.keyedMessages == nil {
		m.keyedMessages = make(map[string]int)
	}
	if idx, ok := m.keyedMessages[key]; ok && idx >= 0 && idx < len(m.messages) {
		m.messages[idx] = ChatMessage{Sender: SenderSystem, Content: content}
	} else {
		m.messages = append(m.messages, ChatMessage{Sender: SenderSystem, Content: content})
		m.keyedMessages[key] = len(m.messages) - 1
	}
	m.refresh()
}

func (m *ChatModel) ReleaseMessageKey(key string) {
	key = strings.TrimSpace(key)
	if key == "" || m.keyedMessages == nil {
		return
	}
	delete(m.keyedMessages, key)
}

// RemoveMessageByKey deletes a keyed message entirely.
func (m *ChatModel) RemoveMessageByKey(key string) {
	key = strings.TrimSpace(key)
	idx, ok := m.keyedMessages[key]
	if !ok {
		return
	}
	delete(m.keyedMessages, key)
	if idx < 0 || idx >= len(m.messages) {
		return
	}
	m.messages = append(m.messages[:idx], m.messages[idx+1:]...)
	for k, i := range m.keyedMessages {
		if i > idx {
			m.keyedMessages[k] = i - 1
		}
	}
	m.refresh()
}

func (m *ChatModel) refresh() {
	m.renderMessages()
	if m.stickToBottom {
		m.viewport.GotoBottom()
	}
}

func (m *ChatModel) renderMessages() {
	contentWidth := m.viewport.Width
	if contentWidth <= 0 {
		contentWidth = m.width
	}
	if contentWidth <= 0 {
		contentWidth = 80
	}

	var blocks []string
	for _, msg := range m.messages {
		content := strings.TrimSpace(msg.Content)
		var block string
		switch msg.Sender {
		case SenderUser:
			block = promptIndicator.Render("> ") + wrapToWidth(content, contentWidth-2)
		case SenderSystem:
			block = systemStyle.Render(wrapToWidth(content, contentWidth))
		default:
			label := "SQLCHAT: "
			if msg.Table != nil {
				block = assistantLabelStyle.Render(label)
				if content != "" {
					block = renderLabelled(label, content, contentWidth, assistantLabelStyle, assistantStyle)
				}
				block += "\n" + renderAnswerTable(msg.Table, min(contentWidth, 120))
			} else {
				block = renderLabelled(label, content, contentWidth, assistantLabelStyle, assistantStyle)
			}
		}
		blocks = append(blocks, block)
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
}

func (m *ChatModel) onlySeed() bool {
	for _, msg := range m.messages {
		if !msg.Seed {
			return false
		}
	}
	return true
}

func (m *ChatModel) View() string {
	if m.onlySeed() {
		return m.emptyStateView()
	}

	parts := []string{chatViewportStyle.Width(m.width).Render(m.viewport.View())}
	if m.isLoading {
		parts = append(parts, m.renderLoadingIndicator())
	}
	if m.slash.visible() {
		menu := strings.Join(m.slash.lines(m.menuWidth()), "\n")
		parts = append(parts, suggestBoxStyle.Width(m.width).Render(menu))
	}
	parts = append(parts, lipgloss.NewStyle().Padding(0, 1).Render(m.promptView()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m *ChatModel) renderLoadingIndicator() string {
	elapsed := time.Since(m.loadingStarted).Round(time.Second)
	frame := spinnerFrames[int(elapsed.Seconds())%len(spinnerFrames)]
	timer := loadingTimerStyle.Render(formatElapsed(elapsed))

	status := loadingStyle.Render(frame + " " + m.loadingLabel + " is thinking...")
	if m.activityPhase != "" {
		status = loadingStyle.Render(frame+" ") + activityStyle.Render(strings.TrimSpace(m.activityPhase+" "+m.activityDetail))
	}
	return status + " " + timer + activityHintStyle.Render("  esc/ctrl+c to interrupt")
}

// formatElapsed renders 42s or 3m5s.
func formatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%ds", secs/60, secs%60)
}

func (m *ChatModel) greeting() string {
	for _, msg := range m.messages {
		if msg.Seed {
			return msg.Content
		}
	}
	return ""
}

// splashCardWidth is the card width for the empty transcript: 24 narrower
// than the screen, between 24 and 96 cells.
func (m *ChatModel) splashCardWidth() int {
	w := min(m.width-24, 96)
	if limit := m.width - 4; limit > 0 {
		w = min(w, limit)
	}
	return max(w, 24)
}

func (m *ChatModel) emptyStateView() string {
	cardWidth := m.splashCardWidth()

	var card []string
	if g := m.greeting(); g != "" {
		card = append(card, assistantLabelStyle.Render("SQLCHAT: ")+assistantStyle.Render(g), "")
	}
	card = append(card,
		splashPromptStyle.Render(`Ask anything... "How many reviews mention 'service'?"`),
		"",
		m.promptLines(cardWidth-8, splashCursorStyle.Render("█"), ""),
	)
	if m.slash.visible() {
		card = append(card, "", strings.Join(m.slash.lines(max(16, cardWidth-6)), "\n"))
	}

	body := lipgloss.JoinVertical(
		lipgloss.Center,
		m.renderLogo(),
		"",
		splashCardStyle.Width(cardWidth).Render(strings.Join(card, "\n")),
		"",
		splashTipStyle.Render("Tip: Run /source to switch between reviews.db and a MySQL server"),
	)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

// renderLogo spells the product name with the "SQL" prefix highlighted.
func (m *ChatModel) renderLogo() string {
	var b strings.Builder
	for i, ch := range strings.ToUpper("sqlchat") {
		style := splashLogoDim
		if i < 3 {
			style = splashLogoBright
		}
		b.WriteString(style.Render(string(ch)))
		b.WriteByte(' ')
	}
	return b.String()
}

// promptLines draws the input wrapped to width behind the "> " indicator.
// gap separates the cursor from the placeholder of an empty input.
func (m *ChatModel) promptLines(width int, cursor, gap string) string {
	value := []rune(m.textInput.Value())
	if len(value) == 0 {
		return promptIndicator.Render("> ") + cursor + gap + placeholderStyle.Render(inputPlaceholder)
	}
	if width <= 0 {
		width = 32
	}
	pos := max(0, min(m.textInput.Position(), len(value)))
	text := string(value[:pos]) + cursor + string(value[pos:])

	lines := strings.Split(wrapToWidth(text, width), "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = promptIndicator.Render("> ") + lines[i]
		} else {
			lines[i] = "  " + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func (m *ChatModel) promptView() string {
	return m.promptLines(m.inputWrapWidth(), "█", " ")
}

func (m *ChatModel) GetInputValue() string {
	return m.textInput.Value()
}

func (m *ChatModel) SetInputValue(v string) {
	m.textInput.SetValue(v)
	m.textInput.CursorEnd()
	m.syncSlash()
}

func (m *ChatModel) ClearInput() {
	m.textInput.SetValue("")
	m.syncSlash()
}

func (m *ChatModel) HasVisibleSuggestions() bool {
	return m.slash.visible()
}

// ApplyTopSlashSuggestion replaces the input with the highlighted command.
func (m *ChatModel) ApplyTopSlashSuggestion() bool {
	c, ok := m.slash.selected()
	if !ok {
		return false
	}
	m.SetInputValue(c.Name)
	return true
}

func (m *ChatModel) SelectedSlashSuggestion() (slashCommand, bool) {
	return m.slash.selected()
}

func (m *ChatModel) MoveSlashSelection(delta int) bool {
	return m.slash.move(delta)
}

func (m *ChatModel) syncSlash() {
	m.slash.sync(m.textInput.Value())
	m.reflow()
}

// reflow gives the viewport whatever height the input, the menu and the
// loading line leave over.
func (m *ChatModel) reflow() {
	if m.height == 0 {
		return
	}
	used := max(1, lipgloss.Height(m.promptView())) + m.slash.height(m.menuWidth()) + 1
	if m.isLoading {
		used++
	}
	m.viewport.Height = max(0, m.height-used)
}

func (m *ChatModel) menuWidth() int {
	return max(16, m.width-4)
}

func (m *ChatModel) inputWrapWidth() int {
	if m.width-4 <= 0 {
		return 48
	}
	return max(8, m.width-4)
}
