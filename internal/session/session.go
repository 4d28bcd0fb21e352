// Package session is the conversational query loop: it owns one transcript,
// the active data source handle and the capability that answers questions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yubzen/sqlchat/internal/agent"
	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/redact"
)

// Recorder persists submitted questions. state.DB satisfies it via an adapter
// in the caller.
type Recorder interface {
	RecordQuestion(ctx context.Context, question string) error
}

type Options struct {
	// Credential is the provider API key. An empty value fails New.
	Credential string
	Provider   string
	Model      string

	// NewCapability builds the answering capability for a freshly opened handle.
	NewCapability func(h *datasource.Handle) agent.Capability
	HandleOptions datasource.HandleOptions
	// Watch enables file watching for local data sources.
	Watch bool

	PrimaryTable string
	Columns      []string

	Recorder Recorder
	Logger   *slog.Logger
}

type Session struct {
	opts Options
	log  *slog.Logger
	sem  *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	messages   []Message
	generation int
	state      State
	handle     *datasource.Handle
	ownsHandle bool
	capability agent.Capability
	stopWatch  context.CancelFunc
	closed     bool
}

func New(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.Credential) == "" {
		return nil, ErrMissingCredential
	}
	if opts.NewCapability == nil {
		return nil, errors.New("session needs a capability constructor")
	}
	log := opts.Logger
	if log == nil {
		log = observability.Discard()
	}
	if opts.HandleOptions.Logger == nil {
		opts.HandleOptions.Logger = log
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		opts:     opts,
		log:      log,
		sem:      semaphore.NewWeighted(1),
		ctx:      ctx,
		cancel:   cancel,
		messages: seedMessages(),
		state:    Uninitialized,
	}, nil
}

// ConfigureDataSource validates cfg, opens it and makes it the active source.
// The previous handle is closed only after the new one is open. It waits for
// an in-flight submission to finish.
func (s *Session) ConfigureDataSource(ctx context.Context, cfg datasource.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Kind == datasource.KindRemote {
		redact.Register(cfg.Remote.Password)
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	h, err := datasource.Open(ctx, cfg, s.opts.HandleOptions)
	if err != nil {
		return err
	}
	s.install(h, true)
	return nil
}

// UseHandle activates a handle owned by the caller, for sessions that share
// one pool. The session never closes it.
func (s *Session) UseHandle(ctx context.Context, h *datasource.Handle) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	s.install(h, false)
	return nil
}

func (s *Session) install(h *datasource.Handle, owned bool) {
	var stop context.CancelFunc
	if s.opts.Watch && h.Config().Kind == datasource.KindLocal {
		watchCtx, cancel := context.WithCancel(s.ctx)
		if _, err := datasource.Watch(watchCtx, h, s.log); err != nil {
			s.log.Warn("data source watch disabled", "source", h.Config().Describe(), "error", err)
			cancel()
		} else {
			stop = cancel
		}
	}

	s.mu.Lock()
	oldHandle, oldOwned, oldStop := s.handle, s.ownsHandle, s.stopWatch
	s.handle = h
	s.ownsHandle = owned
	s.stopWatch = stop
	s.capability = s.opts.NewCapability(h)
	if s.state == Uninitialized {
		s.state = AwaitingQuestion
	}
	s.mu.Unlock()

	if oldStop != nil {
		oldStop()
	}
	if oldHandle != nil && oldOwned && oldHandle != h {
		_ = oldHandle.Close()
	}
	s.log.Info("data source configured", "source", h.Config().Describe())
}

// Submit answers one question. The user message is appended before the
// capability runs; an assistant message is appended only on success.
// Submissions are serialized: a second caller waits for the first.
func (s *Session) Submit(ctx context.Context, question string, observer func(agent.StepEvent)) (agent.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return agent.Answer{}, ErrEmptyQuestion
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return agent.Answer{}, &AnsweringError{Question: question, Err: err}
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return agent.Answer{}, ErrClosed
	}
	if s.state == Uninitialized || s.capability == nil {
		s.mu.Unlock()
		return agent.Answer{}, ErrNotReady
	}
	history := turnsOf(s.messages)
	s.messages = append(s.messages, Message{Role: RoleUser, Content: agent.TextAnswer(question)})
	s.state = Answering
	generation := s.generation
	handle, capability := s.handle, s.capability
	s.mu.Unlock()

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.RecordQuestion(ctx, question); err != nil {
			s.log.Warn("record question failed", "error", err)
		}
	}

	start := time.Now()
	answer, err := s.answer(ctx, handle, capability, question, history, observer)
	elapsed := time.Since(start)
	observability.AnswerDuration.Observe(elapsed.Seconds())

	s.mu.Lock()
	s.state = AwaitingQuestion
	if err == nil {
		if s.generation == generation {
			s.messages = append(s.messages, Message{Role: RoleAssistant, Content: answer})
		} else {
			s.log.Debug("transcript cleared while answering; answer not recorded")
		}
	}
	s.mu.Unlock()

	if err != nil {
		aerr := &AnsweringError{Question: question, Err: err}
		outcome := "failed"
		if aerr.Cancelled() {
			outcome = "cancelled"
		}
		observability.QuestionsTotal.WithLabelValues(outcome).Inc()
		s.log.Info("question failed", "outcome", outcome, "elapsed", elapsed, "error", err)
		return agent.Answer{}, aerr
	}
	observability.QuestionsTotal.WithLabelValues("answered").Inc()
	s.log.Info("question answered", "kind", answer.Kind.String(), "elapsed", elapsed)
	return answer, nil
}

func (s *Session) answer(ctx context.Context, h *datasource.Handle, capability agent.Capability, question string, history []agent.Turn, observer func(agent.StepEvent)) (agent.Answer, error) {
	schema, err := s.schemaContext(ctx, h)
	if err != nil {
		return agent.Answer{}, fmt.Errorf("read schema: %w", err)
	}
	return capability.Answer(ctx, agent.Request{
		Question: question,
		Schema:   schema,
		History:  history,
	}, observer)
}

func (s *Session) schemaContext(ctx context.Context, h *datasource.Handle) (string, error) {
	tables, err := datasource.NewSchema(h).FetchSchema(ctx)
	if err != nil {
		return "", err
	}
	return datasource.FormatSchema(tables), nil
}

// Retry re-submits the text of the n-th most recent question (0 is the last).
func (s *Session) Retry(ctx context.Context, n int, observer func(agent.StepEvent)) (agent.Answer, error) {
	questions := s.Questions()
	idx := len(questions) - 1 - n
	if n < 0 || idx < 0 {
		return agent.Answer{}, ErrNoSuchQuestion
	}
	return s.Submit(ctx, questions[idx], observer)
}

// Clear resets the transcript to the seed greeting.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = seedMessages()
	s.generation++
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Questions returns the user messages in order.
func (s *Session) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		if m.Role == RoleUser {
			out = append(out, m.Content.Text)
		}
	}
	return out
}

// Source describes the active data source, or "" before one is configured.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.Config().Describe()
}

func (s *Session) Handle() *datasource.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// PrimaryColumns lists the columns of the primary table: the configured
// static list when present, otherwise the live schema.
func (s *Session) PrimaryColumns(ctx context.Context) (string, []string, error) {
	h := s.Handle()
	if h == nil {
		return "", nil, ErrNotReady
	}
	table := s.opts.PrimaryTable
	if table == "" {
		table = "reviews"
	}
	cols, err := datasource.NewSchema(h).PrimaryColumns(ctx, table, s.opts.Columns)
	return table, cols, err
}

// Close stops the watcher and closes an owned handle.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	h, owned := s.handle, s.ownsHandle
	s.mu.Unlock()

	s.cancel()
	if h != nil && owned {
		return h.Close()
	}
	return nil
}

func turnsOf(messages []Message) []agent.Turn {
	turns := make([]agent.Turn, 0, len(messages))
	for i, m := range messages {
		// The seed greeting carries no information for the model.
		if i == 0 && m.Role == RoleAssistant && m.Content.Text == SeedGreeting {
			continue
		}
		turns = append(turns, agent.Turn{Role: string(m.Role), Text: m.Content.PlainText()})
	}
	return turns
}
