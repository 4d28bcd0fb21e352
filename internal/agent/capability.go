package agent

import "context"

// Turn is a previous exchange passed to the model as conversation context.
type Turn struct {
	Role string // "user" | "assistant"
	Text string
}

type Request struct {
	Question string
	// Schema describes the tables the question may be answered from.
	Schema  string
	History []Turn
}

// Capability answers one question. Progress is reported through emit while it
// works; emit is called from the goroutine running Answer.
type Capability interface {
	Answer(ctx context.Context, req Request, emit func(StepEvent)) (Answer, error)
}
