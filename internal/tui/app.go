package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/providers"
	"github.com/yubzen/sqlchat/internal/session"
	"github.com/yubzen/sqlchat/internal/state"
)

var appStyle = lipgloss.NewStyle().Margin(0, 0)

const (
	thinkingKey    = "thinking"
	connectTimeout = 20 * time.Second
	stepBuffer     = 64
)

// InputHistory persists what the user typed. *state.DB satisfies it.
type InputHistory interface {
	RecentQuestions(ctx context.Context, limit int) ([]string, error)
	RecordQuestion(ctx context.Context, sessionID, content string) error
}

type Options struct {
	Session   *session.Session
	History   InputHistory
	SessionID string

	// Provider is the display name used in prompts, e.g. "Groq".
	Provider  string
	Model     string
	ExportDir string

	LocalPath    string
	RemoteDriver datasource.Dialect

	// ConnectProvider checks and activates a replacement API key.
	ConnectProvider func(ctx context.Context, apiKey string) error
	// SourceChanged runs after a new data source becomes active.
	SourceChanged func(ctx context.Context, cfg datasource.Config)

	Logger *slog.Logger
}

type stepMsg struct {
	Event agent.StepEvent
}

type submitResultMsg struct {
	Question string
	Answer   agent.Answer
	Err      error
}

type sourceResultMsg struct {
	RequestID int
	Config    datasource.Config
	Err       error
}

type keyResultMsg struct {
	RequestID int
	Err       error
}

type pendingQuestion struct {
	Text  string
	Retry int // -1 for a new question
}

type AppModel struct {
	opts        Options
	session     *session.Session
	log         *slog.Logger
	chat        *ChatModel
	statusbar   *StatusBarModel
	sourceModal *SourceModal
	apiKeyModal *APIKeyModal
	retryModal  *RetryPicker

	inputHistory      []string
	inputHistoryIndex int
	inputDraft        string
	historyBrowsing   bool

	width  int
	height int

	nextRequestID int
	activeRequest int

	pending         []pendingQuestion
	updates         chan tea.Msg
	runActive       bool
	runCancel       context.CancelFunc
	cancelRequested bool
	thinking        strings.Builder
	thinkingStarted time.Time
}

func NewAppModel(opts Options) *AppModel {
	log := opts.Logger
	if log == nil {
		log = observability.Discard()
	}
	if opts.Provider == "" {
		opts.Provider = providers.KindGroq.DisplayName()
	}
	m := &AppModel{
		opts:        opts,
		session:     opts.Session,
		log:         log,
		chat:        NewChatModel(),
		statusbar:   NewStatusBarModel(),
		sourceModal: NewSourceModal(opts.LocalPath, opts.RemoteDriver),
		apiKeyModal: &APIKeyModal{},
		retryModal:  &RetryPicker{},
	}
	m.chat.Reset(session.SeedGreeting)
	m.statusbar.SetModel(strings.ToLower(opts.Provider), opts.Model)
	m.syncSessionStatus()
	m.loadPersistedInputHistory()
	m.resetInputHistoryNavigation()
	return m
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.chat.Init(), m.statusbar.Init(), textinput.Blink)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.apiKeyModal.Visible {
			return m.updateAPIKeyModal(msg)
		}

		if handled, cmd := m.dispatchUpDownKey(msg); handled {
			return m, cmd
		}

		if m.sourceModal.Visible {
			return m.updateSourceModal(msg)
		}
		if m.retryModal.Visible {
			return m.updateRetryModal(msg)
		}

		switch msg.String() {
		case "ctrl+c":
			return m.handleCtrlC()
		case "esc":
			if strings.TrimSpace(m.chat.GetInputValue()) == "" && m.runActive {
				m.requestCancel()
				return m, nil
			}
		case "tab":
			if m.chat.ApplyTopSlashSuggestion() {
				return m, nil
			}
		}
		if shouldResetHistoryNavigation(msg) {
			m.resetInputHistoryNavigation()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusbar.SetWidth(msg.Width)
		m.chat.SetSize(msg.Width, msg.Height-1)
		modalWidth := msg.Width - 4
		if modalWidth < 32 {
			modalWidth = 32
		}
		m.sourceModal.SetWidth(modalWidth)
		m.apiKeyModal.SetWidth(modalWidth)
		m.retryModal.SetWidth(modalWidth)

	case stepMsg:
		m.handleStep(msg.Event)
		cmds = append(cmds, waitForUpdate(m.updates))

	case submitResultMsg:
		m.handleSubmitResult(msg)
		if next, ok := m.nextPending(); ok {
			cmds = append(cmds, m.startQuestion(next))
		}

	case CommandResultMsg:
		m.chat.AddMessage(SenderSystem, msg.Msg)

	case ClearHistoryMsg:
		m.clearHistory()

	case RetryMsg:
		if cmd := m.handleRetry(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case OpenSourceModalMsg:
		if m.runActive {
			m.chat.AddMessage(SenderSystem, "Wait for the current answer, or press esc to stop it, before switching the data source.")
			break
		}
		m.sourceModal.Open(m.currentSourceConfig())

	case OpenAPIKeyModalMsg:
		m.apiKeyModal.Open(m.opts.Provider)

	case sourceResultMsg:
		m.handleSourceResult(msg)

	case keyResultMsg:
		m.handleKeyResult(msg)

	case LoadingTickMsg:
		if m.chat.IsLoading() {
			cmds = append(cmds, loadingTickCmd())
		}
	}

	if msgKey, ok := msg.(tea.KeyMsg); ok && msgKey.String() == "enter" {
		if selected, ok := m.chat.SelectedSlashSuggestion(); ok {
			m.appendInputHistory(selected.Name)
			cmds = append(cmds, handleSlashCommand(selected.Name, m))
			m.chat.ClearInput()
			return m, tea.Batch(cmds...)
		}

		trimmed, isCommand := classifyUserInput(m.chat.GetInputValue())
		if trimmed != "" {
			m.appendInputHistory(trimmed)
			m.chat.ClearInput()
			if isCommand {
				cmds = append(cmds, handleSlashCommand(trimmed, m))
			} else if cmd := m.ask(pendingQuestion{Text: trimmed, Retry: -1}); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	} else {
		chatModel, cmd := m.chat.Update(msg)
		m.chat = chatModel.(*ChatModel)
		cmds = append(cmds, cmd)
	}

	sbModel, cmd := m.statusbar.Update(msg)
	m.statusbar = sbModel.(*StatusBarModel)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *AppModel) updateAPIKeyModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.handleCtrlC()
	case "esc":
		m.activeRequest = 0
		m.apiKeyModal.Close()
		return m, nil
	case "backspace":
		if !m.apiKeyModal.Connecting {
			if r := []rune(m.apiKeyModal.Value); len(r) > 0 {
				m.apiKeyModal.Value = string(r[:len(r)-1])
			}
		}
		return m, nil
	case "enter":
		if m.apiKeyModal.Connecting {
			return m, nil
		}
		key := strings.TrimSpace(m.apiKeyModal.Value)
		if err := providers.ValidateCredential(key); err != nil {
			m.apiKeyModal.SetError(err.Error())
			return m, nil
		}
		if m.opts.ConnectProvider == nil {
			m.apiKeyModal.SetError("Changing the API key is not available in this session.")
			return m, nil
		}
		m.nextRequestID++
		m.activeRequest = m.nextRequestID
		m.apiKeyModal.BeginConnecting("checking the key with " + m.opts.Provider)
		m.statusbar.SetState("connecting")
		return m, m.connectProviderCmd(m.activeRequest, key)
	default:
		if !m.apiKeyModal.Connecting && len(msg.Runes) > 0 {
			m.apiKeyModal.Value += string(msg.Runes)
		}
		return m, nil
	}
}

func (m *AppModel) updateSourceModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.handleCtrlC()
	case "esc":
		m.activeRequest = 0
		m.sourceModal.Close()
		m.syncSessionStatus()
		return m, nil
	case "enter":
		if m.sourceModal.Connecting {
			return m, nil
		}
		cfg := m.sourceModal.Config()
		if err := cfg.Validate(); err != nil {
			m.sourceModal.SetError(err.Error())
			return m, nil
		}
		m.nextRequestID++
		m.activeRequest = m.nextRequestID
		m.sourceModal.BeginConnecting("opening " + cfg.Describe())
		m.statusbar.SetState("connecting")
		return m, m.configureSourceCmd(m.activeRequest, cfg)
	default:
		return m, m.sourceModal.Update(msg)
	}
}

func (m *AppModel) updateRetryModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.handleCtrlC()
	case "esc":
		m.retryModal.Close()
		return m, nil
	case "enter":
		n, ok := m.retryModal.Choice()
		m.retryModal.Close()
		if !ok {
			return m, nil
		}
		return m, m.handleRetry(RetryMsg{N: n})
	default:
		return m, nil
	}
}

func (m *AppModel) handleCtrlC() (tea.Model, tea.Cmd) {
	if strings.TrimSpace(m.chat.GetInputValue()) != "" {
		m.chat.ClearInput()
		return m, nil
	}
	if m.runActive && m.runCancel != nil {
		m.requestCancel()
		return m, nil
	}
	return m, tea.Quit
}

func (m *AppModel) requestCancel() {
	if m.cancelRequested || m.runCancel == nil {
		return
	}
	m.cancelRequested = true
	m.pending = nil
	m.chat.AddMessage(SenderSystem, "● Cancellation requested. Stopping the current answer...")
	m.statusbar.SetState("cancelling")
	m.runCancel()
}

// ask runs q now, or queues it behind the answer in progress.
func (m *AppModel) ask(q pendingQuestion) tea.Cmd {
	if m.session == nil {
		m.chat.AddMessage(SenderSystem, "No data source is configured. Run /source first.")
		return nil
	}
	if m.runActive {
		m.pending = append(m.pending, q)
		m.chat.AddMessage(SenderUser, q.Text)
		m.chat.AddMessage(SenderSystem, "⏳ Queued. It will be asked after the current answer.")
		return nil
	}
	m.chat.AddMessage(SenderUser, q.Text)
	return m.startQuestion(q)
}

func (m *AppModel) nextPending() (pendingQuestion, bool) {
	if len(m.pending) == 0 {
		return pendingQuestion{}, false
	}
	next := m.pending[0]
	m.pending = m.pending[1:]
	return next, true
}

func (m *AppModel) startQuestion(q pendingQuestion) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.runActive = true
	m.runCancel = cancel
	m.cancelRequested = false
	m.updates = make(chan tea.Msg, stepBuffer)
	m.thinking.Reset()
	m.thinkingStarted = time.Time{}
	m.chat.SetLoading(true, "SQLCHAT")
	m.statusbar.SetState(session.Answering.String())
	return tea.Batch(m.runSubmitCmd(ctx, m.updates, q), waitForUpdate(m.updates), loadingTickCmd())
}

// runSubmitCmd answers q on its own goroutine. Step events and the final
// result go through one channel so the result is never seen before the
// steps that preceded it.
func (m *AppModel) runSubmitCmd(ctx context.Context, updates chan tea.Msg, q pendingQuestion) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		observer := func(ev agent.StepEvent) {
			select {
			case updates <- stepMsg{Event: ev}:
			case <-ctx.Done():
			}
		}
		var (
			answer agent.Answer
			err    error
		)
		if q.Retry >= 0 {
			answer, err = sess.Retry(ctx, q.Retry, observer)
		} else {
			answer, err = sess.Submit(ctx, q.Text, observer)
		}
		updates <- submitResultMsg{Question: q.Text, Answer: answer, Err: err}
		close(updates)
		return nil
	}
}

func waitForUpdate(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *AppModel) handleStep(ev agent.StepEvent) {
	if ev.Type == agent.StepThinking {
		if m.thinkingStarted.IsZero() {
			m.thinkingStarted = time.Now()
		}
		m.thinking.WriteString(ev.Detail)
		text := strings.TrimSpace(m.thinking.String())
		if text == "" {
			return
		}
		m.chat.SetSystemMessageByKey(thinkingKey, "◌ thinking...\n"+tail(text, 600))
		m.chat.SetActivity("Thinking", "")
		return
	}

	m.collapseThinking()
	switch ev.Type {
	case agent.StepToolCall:
		target := ev.SQL
		if target == "" {
			target = ev.Detail
		}
		m.chat.AddMessage(SenderSystem, strings.TrimSpace(fmt.Sprintf("● %s  %s", ev.Tool, target)))
		m.chat.SetActivity(activityPhase(ev.Tool), ev.Tool)
	case agent.StepObservation:
		m.chat.AddMessage(SenderSystem, "  ⎿ "+firstLines(ev.Detail, 3))
	case agent.StepToolError:
		m.chat.AddMessage(SenderSystem, fmt.Sprintf("✗ %s  %s", ev.Tool, firstLines(ev.Detail, 3)))
	case agent.StepWarning:
		m.chat.AddMessage(SenderSystem, "! "+ev.Detail)
	}
}

func (m *AppModel) collapseThinking() {
	text := strings.TrimSpace(m.thinking.String())
	if text == "" {
		return
	}
	dur := time.Since(m.thinkingStarted)
	m.chat.SetSystemMessageByKey(thinkingKey, fmt.Sprintf("✓ thought for %s  › %s", formatThinkingDuration(dur), summarizeThinkingText(text)))
	m.chat.ReleaseMessageKey(thinkingKey)
	m.thinking.Reset()
	m.thinkingStarted = time.Time{}
}

func (m *AppModel) handleSubmitResult(msg submitResultMsg) {
	// Text streamed in the final turn is the answer itself.
	m.chat.RemoveMessageByKey(thinkingKey)
	m.thinking.Reset()
	m.thinkingStarted = time.Time{}

	m.chat.SetLoading(false, "")
	m.chat.ClearActivity()
	if m.runCancel != nil {
		m.runCancel()
	}
	m.runActive = false
	m.runCancel = nil
	m.cancelRequested = false
	m.updates = nil

	if msg.Err != nil {
		m.chat.AddMessage(SenderSystem, describeSubmitError(msg.Err))
		m.log.Info("question not answered", "error", msg.Err)
	} else {
		m.chat.AddAnswer(msg.Answer)
	}
	m.syncSessionStatus()
}

func describeSubmitError(err error) string {
	var aerr *session.AnsweringError
	switch {
	case errors.Is(err, session.ErrNotReady):
		return "No data source is configured. Run /source first."
	case errors.As(err, &aerr) && aerr.Cancelled():
		return "✓ Question cancelled. Input is ready."
	case agent.IsTimedOut(err):
		return "✗ The question took too long and was stopped.\nTry a narrower question, or run /retry to ask again."
	case errors.Is(err, providers.ErrUnauthorized):
		return "✗ " + err.Error()
	default:
		return "✗ " + err.Error() + "\nYou can rephrase it, or run /retry to ask again."
	}
}

func (m *AppModel) clearHistory() {
	if m.session != nil {
		m.session.Clear()
	}
	m.pending = nil
	m.chat.Reset(session.SeedGreeting)
	if m.runActive {
		m.chat.AddMessage(SenderSystem, "History cleared. The answer in progress will not be recorded.")
	}
}

func (m *AppModel) handleRetry(msg RetryMsg) tea.Cmd {
	if m.session == nil {
		m.chat.AddMessage(SenderSystem, "No data source is configured. Run /source first.")
		return nil
	}
	questions := m.session.Questions()
	if len(questions) == 0 {
		m.chat.AddMessage(SenderSystem, "There is no previous question to retry.")
		return nil
	}
	if msg.Pick {
		m.retryModal.Open(questions)
		return nil
	}
	idx := len(questions) - 1 - msg.N
	if msg.N < 0 || idx < 0 {
		m.chat.AddMessage(SenderSystem, fmt.Sprintf("There is no question %d back to retry (only %d asked).", msg.N, len(questions)))
		return nil
	}
	q := pendingQuestion{Text: questions[idx], Retry: msg.N}
	if m.runActive {
		// The index would shift once the running question lands.
		q.Retry = -1
	}
	return m.ask(q)
}

func (m *AppModel) currentSourceConfig() datasource.Config {
	if m.session != nil {
		if h := m.session.Handle(); h != nil {
			return h.Config()
		}
	}
	cfg := datasource.Local(m.opts.LocalPath)
	cfg.Remote.Driver = m.opts.RemoteDriver
	return cfg
}

func (m *AppModel) configureSourceCmd(reqID int, cfg datasource.Config) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		if sess == nil {
			return sourceResultMsg{RequestID: reqID, Config: cfg, Err: session.ErrNotReady}
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return sourceResultMsg{RequestID: reqID, Config: cfg, Err: sess.ConfigureDataSource(ctx, cfg)}
	}
}

func (m *AppModel) handleSourceResult(msg sourceResultMsg) {
	stale := msg.RequestID != m.activeRequest
	if !stale {
		m.activeRequest = 0
	}
	m.syncSessionStatus()
	if msg.Err != nil {
		if !stale && m.sourceModal.Visible {
			m.sourceModal.SetError(msg.Err.Error())
		}
		return
	}
	if m.opts.SourceChanged != nil {
		m.opts.SourceChanged(context.Background(), msg.Config)
	}
	if !stale {
		m.sourceModal.Close()
	}
	m.chat.AddMessage(SenderSystem, "Connected to "+msg.Config.Describe()+".")
}

func (m *AppModel) connectProviderCmd(reqID int, key string) tea.Cmd {
	connect := m.opts.ConnectProvider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return keyResultMsg{RequestID: reqID, Err: connect(ctx, key)}
	}
}

func (m *AppModel) handleKeyResult(msg keyResultMsg) {
	if msg.RequestID != m.activeRequest {
		return
	}
	m.activeRequest = 0
	m.syncSessionStatus()
	if msg.Err != nil {
		m.apiKeyModal.SetError(msg.Err.Error())
		return
	}
	m.apiKeyModal.Close()
	m.statusbar.SetHint("")
	m.chat.AddMessage(SenderSystem, m.opts.Provider+" API key updated.")
}

func (m *AppModel) syncSessionStatus() {
	if m.session == nil {
		m.statusbar.SetSource("")
		m.statusbar.SetState(session.Uninitialized.String())
		return
	}
	m.statusbar.SetSource(m.session.Source())
	if m.runActive {
		m.statusbar.SetState(session.Answering.String())
		return
	}
	m.statusbar.SetState(m.session.State().String())
}

func (m *AppModel) View() string {
	base := appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.chat.View(),
		m.statusbar.View(),
	))

	var overlay string
	switch {
	case m.apiKeyModal.Visible:
		overlay = m.apiKeyModal.View()
	case m.sourceModal.Visible:
		overlay = m.sourceModal.View()
	case m.retryModal.Visible:
		overlay = m.retryModal.View()
	default:
		return base
	}
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
	}
	return overlay
}

func (m *AppModel) loadPersistedInputHistory() {
	if m.opts.History == nil {
		return
	}
	history, err := m.opts.History.RecentQuestions(context.Background(), state.QuestionLimit)
	if err != nil {
		m.log.Warn("load input history failed", "error", err)
		return
	}
	m.inputHistory = append([]string(nil), history...)
}

func (m *AppModel) appendInputHistory(entry string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return
	}
	m.inputHistory = append(m.inputHistory, entry)
	if len(m.inputHistory) > state.QuestionLimit {
		m.inputHistory = m.inputHistory[len(m.inputHistory)-state.QuestionLimit:]
	}
	m.resetInputHistoryNavigation()

	if m.opts.History != nil && m.opts.SessionID != "" {
		if err := m.opts.History.RecordQuestion(context.Background(), m.opts.SessionID, entry); err != nil {
			m.chat.AddMessage(SenderSystem, fmt.Sprintf("warning: failed to persist input history: %v", err))
		}
	}
}

func (m *AppModel) resetInputHistoryNavigation() {
	m.inputHistoryIndex = len(m.inputHistory)
	m.inputDraft = ""
	m.historyBrowsing = false
}

func (m *AppModel) navigateInputHistory(delta int) bool {
	if len(m.inputHistory) == 0 || delta == 0 {
		return false
	}

	if !m.historyBrowsing {
		m.inputDraft = m.chat.GetInputValue()
		m.inputHistoryIndex = len(m.inputHistory)
		m.historyBrowsing = true
	}

	switch {
	case delta < 0:
		if m.inputHistoryIndex > 0 {
			m.inputHistoryIndex--
		}
		m.chat.SetInputValue(m.inputHistory[m.inputHistoryIndex])
		return true
	default:
		if m.inputHistoryIndex < len(m.inputHistory)-1 {
			m.inputHistoryIndex++
			m.chat.SetInputValue(m.inputHistory[m.inputHistoryIndex])
			return true
		}
		m.inputHistoryIndex = len(m.inputHistory)
		m.chat.SetInputValue(m.inputDraft)
		m.historyBrowsing = false
		return true
	}
}

func (m *AppModel) dispatchUpDownKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	delta, ok := upDownDelta(msg)
	if !ok {
		return false, nil
	}

	// Modal navigation always has highest priority.
	if m.sourceModal.Visible {
		m.sourceModal.MoveFocus(delta)
		return true, nil
	}
	if m.retryModal.Visible {
		m.retryModal.Move(delta)
		return true, nil
	}

	// Command suggestions win over input history.
	if m.chat.HasVisibleSuggestions() {
		m.chat.MoveSlashSelection(delta)
		return true, nil
	}

	// Lowest priority: input history owns up/down in normal chat mode.
	m.navigateInputHistory(delta)
	return true, nil
}

func upDownDelta(msg tea.KeyMsg) (int, bool) {
	switch msg.String() {
	case "up":
		return -1, true
	case "down":
		return 1, true
	default:
		return 0, false
	}
}

func activityPhase(tool string) string {
	switch tool {
	case "list_tables":
		return "Listing tables"
	case "describe_tables":
		return "Reading schema"
	case "check_query":
		return "Checking query"
	case "run_query":
		return "Querying"
	case "show_table":
		return "Preparing table"
	default:
		return "Running"
	}
}

func formatThinkingDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
}

func summarizeThinkingText(text string) string {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(text), "\n", 2)[0])
	if r := []rune(line); len(r) > 80 {
		line = string(r[:79]) + "…"
	}
	return line
}

func classifyUserInput(raw string) (trimmed string, isCommand bool) {
	trimmed = strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return trimmed, strings.HasPrefix(trimmed, "/")
}

func shouldResetHistoryNavigation(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "down", "enter":
		return false
	}
	switch msg.Type {
	case tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete:
		return true
	default:
		return false
	}
}
