package session

import (
	"errors"

	"github.com/yubzen/sqlchat/internal/agent"
)

var (
	// ErrMissingCredential halts startup before any data source or model work.
	ErrMissingCredential = errors.New("API key is required to proceed")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrNotReady          = errors.New("session has no data source configured")
	ErrNoSuchQuestion    = errors.New("no such question to retry")
	ErrClosed            = errors.New("session is closed")
)

// AnsweringError is any failure of the answering capability for one question.
// The session stays usable afterwards.
type AnsweringError struct {
	Question string
	Err      error
}

func (e *AnsweringError) Error() string {
	if e.Cancelled() {
		return "Question cancelled."
	}
	return "Could not answer the question: " + e.Err.Error()
}

func (e *AnsweringError) Unwrap() error {
	return e.Err
}

func (e *AnsweringError) Cancelled() bool {
	return agent.IsUserCancelled(e.Err)
}
