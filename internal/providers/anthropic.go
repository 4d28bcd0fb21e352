package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yubzen/sqlchat/internal/observability"
)

type Anthropic struct {
	client anthropic.Client
}

func NewAnthropic(baseURL, apiKey string, opts ...option.RequestOption) *Anthropic {
	base := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		base = append(base, option.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &Anthropic{client: anthropic.NewClient(append(base, opts...)...)}
}

func (p *Anthropic) Name() string {
	return "anthropic"
}

func (p *Anthropic) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	return p.mapError(err)
}

func (p *Anthropic) Complete(ctx context.Context, req CompletionRequest, onToken TokenCallback) (CompletionResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultMaxTokens(req.MaxTokens),
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: strings.TrimSpace(req.System)}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildAnthropicTools(req.Tools)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	msg := anthropic.Message{}
	streamed := observability.LLMTokensStreamed.WithLabelValues(p.Name())
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return CompletionResponse{}, fmt.Errorf("anthropic stream: %w", err)
		}
		variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
			streamed.Inc()
			if onToken != nil {
				onToken(delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return CompletionResponse{}, p.mapError(err)
	}

	resp := CompletionResponse{StopReason: string(msg.StopReason)}
	var textParts []string
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			if text := strings.TrimSpace(variant.Text); text != "" {
				textParts = append(textParts, text)
			}
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: argumentsOrEmpty(variant.Input),
			})
		}
	}
	resp.Text = strings.Join(textParts, "\n")
	if resp.Text == "" && len(resp.ToolCalls) == 0 {
		return CompletionResponse{}, errors.New("empty response from anthropic")
	}
	return resp, nil
}

func (p *Anthropic) mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return authError(p.Name())
		}
		return fmt.Errorf("anthropic error (status %d): %w", apiErr.StatusCode, err)
	}
	return fmt.Errorf("anthropic: %w", err)
}

// buildAnthropicMessages converts neutral turns. Consecutive tool results are
// folded into one user message, which the Messages API requires.
func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var pendingResults []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		if m.Role == "tool" {
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
			continue
		}
		flush()
		switch m.Role {
		case "assistant":
			var blocks []anthropic.ContentBlockParamUnion
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, argumentsOrEmpty(tc.Arguments), tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	flush()
	return out
}

func buildAnthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var required []string
		switch r := t.Parameters["required"].(type) {
		case []string:
			required = r
		case []any:
			for _, v := range r {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
		param := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{Type: "object", Properties: t.Parameters["properties"], Required: required},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}
