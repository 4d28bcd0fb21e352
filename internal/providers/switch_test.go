package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchDelegatesToCurrentProvider(t *testing.T) {
	sw := NewSwitch(nil)
	assert.Equal(t, "none", sw.Name())
	require.ErrorIs(t, sw.Ping(context.Background()), ErrNoProvider)
	_, err := sw.Complete(context.Background(), CompletionRequest{}, nil)
	require.ErrorIs(t, err, ErrNoProvider)

	sw.Set(MockProvider{name: "groq"})
	assert.Equal(t, "groq", sw.Name())
	require.NoError(t, sw.Ping(context.Background()))

	rejected := &ProviderAuthError{ProviderName: "anthropic", Msg: "bad key"}
	sw.Set(MockProvider{name: "anthropic", errOut: rejected})
	err = sw.Ping(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
