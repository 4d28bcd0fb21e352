package providers

import (
	"context"
	"encoding/json"
	"errors"
)

// Message is one turn in a provider-neutral conversation.
type Message struct {
	Role       string // "user" | "assistant" | "tool"
	Content    string
	ToolCalls  []ToolCall // assistant turns that requested tools
	ToolCallID string     // tool turns: the call being answered
	IsError    bool       // tool turns: the call failed
}

// Tool describes a function the model may call. Parameters is a JSON schema
// object with "properties" and "required".
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

type CompletionRequest struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int
}

type CompletionResponse struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// TokenCallback receives streamed text as it arrives.
type TokenCallback func(token string)

type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest, onToken TokenCallback) (CompletionResponse, error)
	Ping(ctx context.Context) error
}

var ErrUnauthorized = errors.New("provider rejected the API key")

type ProviderAuthError struct {
	ProviderName string
	Msg          string
}

func (e *ProviderAuthError) Error() string {
	return e.Msg
}

func (e *ProviderAuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

func authError(name string) *ProviderAuthError {
	return &ProviderAuthError{ProviderName: name, Msg: "Unauthorized: invalid API key for " + name + ". Run `sqlchat auth set` or press /key to replace it."}
}

func defaultMaxTokens(n int) int64 {
	if n <= 0 {
		return 2048
	}
	return int64(n)
}

func argumentsOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
