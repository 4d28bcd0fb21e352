package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	name   string
	errOut error
	delay  time.Duration
}

func (m MockProvider) Name() string { return m.name }

func (m MockProvider) Ping(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.errOut
}

func (m MockProvider) Complete(context.Context, CompletionRequest, TokenCallback) (CompletionResponse, error) {
	return CompletionResponse{}, nil
}

func TestCheckAllKeepsOrderAndFlagsRejectedKeys(t *testing.T) {
	provs := []Provider{
		MockProvider{name: "groq", delay: 20 * time.Millisecond},
		MockProvider{name: "anthropic", errOut: &ProviderAuthError{ProviderName: "anthropic", Msg: "no key"}},
		MockProvider{name: "openai", errOut: errors.New("dial tcp: connection refused")},
	}

	results := CheckAll(context.Background(), provs)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, provs[i].Name(), r.Name)
	}

	assert.True(t, results[0].IsOnline)
	assert.GreaterOrEqual(t, results[0].Latency, 20*time.Millisecond)

	assert.False(t, results[1].IsOnline)
	assert.True(t, results[1].Unauthorized)
	assert.Equal(t, "no key", results[1].ErrorMsg)

	assert.False(t, results[2].IsOnline)
	assert.False(t, results[2].Unauthorized)
}

func TestCheckAllBoundsSlowProviders(t *testing.T) {
	old := PingTimeout
	PingTimeout = 10 * time.Millisecond
	t.Cleanup(func() { PingTimeout = old })

	results := CheckAll(context.Background(), []Provider{MockProvider{name: "slow", delay: time.Second}})
	require.Len(t, results, 1)
	assert.False(t, results[0].IsOnline)
	assert.Less(t, results[0].Latency, time.Second)
}
