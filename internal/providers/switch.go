package providers

import (
	"context"
	"errors"
	"sync"
)

var ErrNoProvider = errors.New("no provider configured")

// Switch is a Provider whose backing client can be replaced while in use, so
// a new API key takes effect on the next question without rebuilding the
// agent. Calls already running keep the client they started with.
type Switch struct {
	mu      sync.RWMutex
	current Provider
}

func NewSwitch(p Provider) *Switch {
	return &Switch{current: p}
}

func (s *Switch) Set(p Provider) {
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
}

func (s *Switch) get() Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Switch) Name() string {
	if p := s.get(); p != nil {
		return p.Name()
	}
	return "none"
}

func (s *Switch) Complete(ctx context.Context, req CompletionRequest, onToken TokenCallback) (CompletionResponse, error) {
	p := s.get()
	if p == nil {
		return CompletionResponse{}, ErrNoProvider
	}
	return p.Complete(ctx, req, onToken)
}

func (s *Switch) Ping(ctx context.Context) error {
	p := s.get()
	if p == nil {
		return ErrNoProvider
	}
	return p.Ping(ctx)
}
