package session

import "github.com/yubzen/sqlchat/internal/agent"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const SeedGreeting = "How can I help you?"

type Message struct {
	Role    Role
	Content agent.Answer
}

func seedMessages() []Message {
	return []Message{{Role: RoleAssistant, Content: agent.TextAnswer(SeedGreeting)}}
}

type State int

const (
	Uninitialized State = iota
	AwaitingQuestion
	Answering
)

func (s State) String() string {
	switch s {
	case AwaitingQuestion:
		return "ready"
	case Answering:
		return "answering"
	default:
		return "not configured"
	}
}
