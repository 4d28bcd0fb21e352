package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	aoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseServer(t *testing.T, path string, frames []string, captured *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			*captured = string(body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprint(w, f)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func chatChunk(delta string) string {
	return `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"llama3-8b-8192","choices":[{"index":0,"delta":` + delta + `,"finish_reason":null}]}` + "\n\n"
}

func TestOpenAICompatibleStreamsTextAndToolCalls(t *testing.T) {
	t.Parallel()

	var body string
	srv := sseServer(t, "/chat/completions", []string{
		chatChunk(`{"role":"assistant","content":"Let me "}`),
		chatChunk(`{"content":"check."}`),
		chatChunk(`{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"run_query","arguments":"{\"query\":"}}]}`),
		chatChunk(`{"tool_calls":[{"index":0,"function":{"arguments":"\"SELECT 1\"}"}}]}`),
		"data: [DONE]\n\n",
	}, &body)

	p := NewOpenAICompatible("groq", srv.URL, "gsk_test_key_123", option.WithMaxRetries(0))
	var tokens []string
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Model:    "llama3-8b-8192",
		System:   "be brief",
		Messages: []Message{{Role: "user", Content: "how many?"}},
		Tools: []Tool{{Name: "run_query", Description: "run", Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		}}},
	}, func(tok string) { tokens = append(tokens, tok) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Let me ", "check."}, tokens)
	assert.Equal(t, "Let me check.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "run_query", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"SELECT 1"}`, string(resp.ToolCalls[0].Arguments))

	assert.Contains(t, body, `"model":"llama3-8b-8192"`)
	assert.Contains(t, body, `"stream":true`)
	assert.Contains(t, body, `"name":"run_query"`)
}

func TestOpenAICompatibleMapsUnauthorized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatible("groq", srv.URL, "gsk_wrong_key_123", option.WithMaxRetries(0))
	_, err := p.Complete(context.Background(), CompletionRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}}, nil)
	require.Error(t, err)

	var authErr *ProviderAuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "groq", authErr.ProviderName)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	assert.True(t, errors.Is(p.Ping(context.Background()), ErrUnauthorized))
}

func anthropicEvent(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

func TestAnthropicStreamsTextAndToolUse(t *testing.T) {
	t.Parallel()

	var body string
	srv := sseServer(t, "/v1/messages", []string{
		anthropicEvent("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":5,"output_tokens":1}}}`),
		anthropicEvent("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		anthropicEvent("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Listing tables."}}`),
		anthropicEvent("content_block_stop", `{"type":"content_block_stop","index":0}`),
		anthropicEvent("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"list_tables","input":{}}}`),
		anthropicEvent("content_block_stop", `{"type":"content_block_stop","index":1}`),
		anthropicEvent("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use","stop_sequence":null},"usage":{"output_tokens":12}}`),
		anthropicEvent("message_stop", `{"type":"message_stop"}`),
	}, &body)

	p := NewAnthropic(srv.URL, "sk-ant-test-key", aoption.WithMaxRetries(0))
	var streamed strings.Builder
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Model:  "claude-3-5-haiku-latest",
		System: "be brief",
		Messages: []Message{
			{Role: "user", Content: "what tables?"},
			{Role: "assistant", ToolCalls: []ToolCall{{ID: "toolu_0", Name: "list_tables"}}},
			{Role: "tool", ToolCallID: "toolu_0", Content: "reviews"},
		},
		Tools: []Tool{{Name: "list_tables", Description: "list", Parameters: map[string]any{"type": "object", "properties": map[string]any{}}}},
	}, func(tok string) { streamed.WriteString(tok) })
	require.NoError(t, err)

	assert.Equal(t, "Listing tables.", streamed.String())
	assert.Equal(t, "Listing tables.", resp.Text)
	assert.Equal(t, "tool_use", resp.StopReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "list_tables", resp.ToolCalls[0].Name)

	assert.Contains(t, body, `"tool_use_id":"toolu_0"`)
	assert.Contains(t, body, `"system":[{`)
}

func TestNewRejectsMissingKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Kind: KindGroq})
	require.Error(t, err)
	assert.Equal(t, "Groq API Key is required to proceed.", err.Error())

	p, err := New(Config{Kind: KindOpenRouter, APIKey: "sk-or-test-key"})
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())

	_, err = ParseKind("gemini")
	assert.Error(t, err)
	k, err := ParseKind(" Groq ")
	require.NoError(t, err)
	assert.Equal(t, KindGroq, k)
	assert.Equal(t, "GROQ_API_KEY", EnvKey(k))
}
