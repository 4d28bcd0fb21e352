package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yubzen/sqlchat/internal/datasource"
	"github.com/yubzen/sqlchat/internal/observability"
	"github.com/yubzen/sqlchat/internal/providers"
	"github.com/yubzen/sqlchat/internal/redact"
)

const (
	DefaultMaxIterations = 10
	DefaultTopK          = 10
	defaultHistoryTurns  = 10
	observationPreview   = 400
)

var ErrAgentNotReady = errors.New("agent is not initialized")

// SQLAgent answers questions by letting the model call SQL tools against one
// data source until it replies without a tool call.
type SQLAgent struct {
	Provider      providers.Provider
	Model         string
	Handle        *datasource.Handle
	MaxIterations int
	TopK          int
	MaxTokens     int
	HistoryTurns  int
	Logger        *slog.Logger
}

func NewSQLAgent(provider providers.Provider, model string, handle *datasource.Handle, log *slog.Logger) *SQLAgent {
	return &SQLAgent{
		Provider:      provider,
		Model:         model,
		Handle:        handle,
		MaxIterations: DefaultMaxIterations,
		TopK:          DefaultTopK,
		HistoryTurns:  defaultHistoryTurns,
		Logger:        log,
	}
}

func (a *SQLAgent) Validate() error {
	if a == nil {
		return ErrAgentNotReady
	}
	if a.Provider == nil {
		return errors.New("agent provider is not configured")
	}
	if strings.TrimSpace(a.Model) == "" {
		return errors.New("agent model is empty")
	}
	if a.Handle == nil {
		return errors.New("agent data source is not configured")
	}
	return nil
}

func (a *SQLAgent) Answer(ctx context.Context, req Request, emit func(StepEvent)) (Answer, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Validate(); err != nil {
		return Answer{}, err
	}
	if emit == nil {
		emit = func(StepEvent) {}
	}
	log := a.Logger
	if log == nil {
		log = observability.Discard()
	}
	maxIterations := a.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	topK := a.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	run := &runState{}
	tools := newSQLToolSet(sqlToolEnv{
		querier: datasource.NewQuerier(a.Handle),
		schema:  datasource.NewSchema(a.Handle),
		run:     run,
	})
	system := buildSystemPrompt(a.Handle.Dialect().DisplayName(), topK, req.Schema, tools)
	messages := a.buildMessages(req)

	var lastText string
	complete := false
	for iteration := 0; iteration < maxIterations; iteration++ {
		if err := classifyContextErr(ctx.Err()); err != nil {
			return Answer{}, err
		}

		step := iteration + 1
		resp, err := a.Provider.Complete(ctx, providers.CompletionRequest{
			Model:     a.Model,
			System:    system,
			Messages:  messages,
			Tools:     tools.ProviderTools(),
			MaxTokens: a.MaxTokens,
		}, func(token string) {
			emit(StepEvent{Type: StepThinking, Detail: token, Iteration: step, At: time.Now()})
		})
		if err != nil {
			if stop := stopErr(ctx, err); stop != nil {
				return Answer{}, stop
			}
			return Answer{}, fmt.Errorf("model call failed: %w", err)
		}
		log.Debug("agent: model response", "iteration", step, "stop_reason", resp.StopReason, "tool_calls", len(resp.ToolCalls))

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		if strings.TrimSpace(resp.Text) != "" {
			lastText = resp.Text
		}
		if len(resp.ToolCalls) == 0 {
			complete = true
			break
		}
		if iteration == maxIterations-1 {
			// No round is left to read tool results.
			log.Debug("agent: skipping tool calls on the last round", "tool_calls", len(resp.ToolCalls))
			break
		}

		for _, call := range resp.ToolCalls {
			output, err := a.executeTool(ctx, tools, call, step, emit, log)
			if stop := stopErr(ctx, err); stop != nil {
				return Answer{}, stop
			}
			msg := providers.Message{Role: "tool", ToolCallID: call.ID, Content: output}
			if err != nil {
				msg.Content = "Error: " + redact.Clean(err.Error())
				msg.IsError = true
			}
			messages = append(messages, msg)
		}

		if iteration == maxIterations-2 {
			last := &messages[len(messages)-1]
			last.Content += "\n\n" + wrapUpWarning
			emit(StepEvent{Type: StepWarning, Detail: "last round: asking the model to answer now", Iteration: step, At: time.Now()})
		}
	}

	if !complete {
		log.Info("agent: hit max iterations", "iterations", maxIterations)
		return TextAnswer(fallbackAnswer), nil
	}

	text := redact.Clean(cleanFinalText(lastText))
	if run.showTable && run.lastResult != nil {
		return TableAnswer(text, *run.lastResult), nil
	}
	if text == "" {
		return TextAnswer(fallbackAnswer), nil
	}
	return TextAnswer(text), nil
}

func (a *SQLAgent) buildMessages(req Request) []providers.Message {
	limit := a.HistoryTurns
	if limit <= 0 {
		limit = defaultHistoryTurns
	}
	history := req.History
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	messages := make([]providers.Message, 0, len(history)+1)
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, providers.Message{Role: role, Content: redact.Clean(turn.Text)})
	}
	return append(messages, providers.Message{Role: "user", Content: redact.Clean(req.Question)})
}

func (a *SQLAgent) executeTool(ctx context.Context, tools ToolSet, call providers.ToolCall, step int, emit func(StepEvent), log *slog.Logger) (string, error) {
	tool, ok := tools.Get(call.Name)
	if !ok {
		err := fmt.Errorf("%w %q; available tools: %s", errUnknownTool, call.Name, strings.Join(tools.Names(), ", "))
		emit(StepEvent{Type: StepToolError, Tool: call.Name, Detail: err.Error(), Iteration: step, At: time.Now()})
		observability.ToolCallsTotal.WithLabelValues("unknown", "error").Inc()
		return "", err
	}

	params := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &params); err != nil {
			err = fmt.Errorf("tool arguments are not a JSON object: %w", err)
			emit(StepEvent{Type: StepToolError, Tool: tool.Name, Detail: err.Error(), Iteration: step, At: time.Now()})
			observability.ToolCallsTotal.WithLabelValues(tool.Name, "error").Inc()
			return "", err
		}
	}

	sql, _ := params["query"].(string)
	emit(StepEvent{Type: StepToolCall, Tool: tool.Name, SQL: strings.TrimSpace(sql), Detail: describeParams(params), Iteration: step, At: time.Now()})

	result, err := tool.Execute(ctx, params)
	if err != nil {
		if stop := stopErr(ctx, err); stop != nil {
			return "", stop
		}
		log.Debug("agent: tool failed", "tool", tool.Name, "error", redact.Clean(err.Error()))
		emit(StepEvent{Type: StepToolError, Tool: tool.Name, SQL: result.SQL, Detail: redact.Clean(err.Error()), Iteration: step, At: time.Now()})
		observability.ToolCallsTotal.WithLabelValues(tool.Name, "error").Inc()
		return "", err
	}

	output := redact.Clean(result.Output)
	emit(StepEvent{Type: StepObservation, Tool: tool.Name, SQL: result.SQL, Detail: preview(output), Iteration: step, At: time.Now()})
	observability.ToolCallsTotal.WithLabelValues(tool.Name, "ok").Inc()
	return output, nil
}

func describeParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return string(raw)
}

// preview keeps the first observationPreview runes of s.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= observationPreview {
		return s
	}
	return string(r[:observationPreview]) + "..."
}
