package providers

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindGroq       Kind = "groq"
	KindOpenAI     Kind = "openai"
	KindOpenRouter Kind = "openrouter"
	KindAnthropic  Kind = "anthropic"
)

var kinds = []Kind{KindGroq, KindOpenAI, KindOpenRouter, KindAnthropic}

// Kinds lists the supported provider kinds in display order.
func Kinds() []Kind {
	return append([]Kind(nil), kinds...)
}

func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (expected one of groq, openai, openrouter, anthropic)", raw)
}

// DisplayName is how prompts refer to the provider, as in "Groq API Key".
func (k Kind) DisplayName() string {
	switch k {
	case KindGroq:
		return "Groq"
	case KindOpenAI:
		return "OpenAI"
	case KindOpenRouter:
		return "OpenRouter"
	case KindAnthropic:
		return "Anthropic"
	default:
		return string(k)
	}
}

func EnvKey(k Kind) string {
	return strings.ToUpper(string(k)) + "_API_KEY"
}

func DefaultBaseURL(k Kind) string {
	switch k {
	case KindGroq:
		return "https://api.groq.com/openai/v1"
	case KindOpenRouter:
		return "https://openrouter.ai/api/v1"
	default:
		// The SDK defaults apply.
		return ""
	}
}

type Config struct {
	Kind    Kind
	APIKey  string
	BaseURL string
}

// New builds the provider for cfg. An empty BaseURL selects the kind's default.
func New(cfg Config) (Provider, error) {
	if err := ValidateCredential(cfg.APIKey); err != nil {
		return nil, &ProviderAuthError{ProviderName: string(cfg.Kind), Msg: fmt.Sprintf("%s API Key is required to proceed.", cfg.Kind.DisplayName())}
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL(cfg.Kind)
	}
	switch cfg.Kind {
	case KindGroq, KindOpenAI, KindOpenRouter:
		return NewOpenAICompatible(string(cfg.Kind), baseURL, cfg.APIKey), nil
	case KindAnthropic:
		return NewAnthropic(baseURL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Kind)
	}
}
