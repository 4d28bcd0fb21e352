package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/yubzen/sqlchat/internal/observability"
)

// OpenAICompatible talks to any Chat Completions endpoint: Groq, OpenAI or
// OpenRouter, selected by base URL.
type OpenAICompatible struct {
	name   string
	client openai.Client
}

func NewOpenAICompatible(name, baseURL, apiKey string, opts ...option.RequestOption) *OpenAICompatible {
	base := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		base = append(base, option.WithBaseURL(strings.TrimRight(strings.TrimSpace(baseURL), "/")+"/"))
	}
	return &OpenAICompatible{
		name:   name,
		client: openai.NewClient(append(base, opts...)...),
	}
}

func (p *OpenAICompatible) Name() string {
	return p.name
}

// Ping lists models, which checks both reachability and the key.
func (p *OpenAICompatible) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	return p.mapError(err)
}

func (p *OpenAICompatible) Complete(ctx context.Context, req CompletionRequest, onToken TokenCallback) (CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(req.Model),
		Messages:  buildOpenAIMessages(req.System, req.Messages),
		MaxTokens: openai.Int(defaultMaxTokens(req.MaxTokens)),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildOpenAITools(req.Tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	streamed := observability.LLMTokensStreamed.WithLabelValues(p.name)
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		if token := chunk.Choices[0].Delta.Content; token != "" {
			streamed.Inc()
			if onToken != nil {
				onToken(token)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return CompletionResponse{}, p.mapError(err)
	}
	if len(acc.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from %s", p.name)
	}

	choice := acc.Choices[0]
	resp := CompletionResponse{
		Text:       strings.TrimSpace(choice.Message.Content),
		StopReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: argumentsOrEmpty(json.RawMessage(tc.Function.Arguments)),
		})
	}
	if resp.Text == "" && len(resp.ToolCalls) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from %s", p.name)
	}
	return resp, nil
}

func (p *OpenAICompatible) mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return authError(p.name)
		}
		return fmt.Errorf("%s error (status %d): %w", p.name, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s: %w", p.name, err)
}

func buildOpenAIMessages(system string, messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(argumentsOrEmpty(tc.Arguments)),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func buildOpenAITools(tools []Tool) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return out
}
