package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration

	FallbackProvider string
	FallbackModel    string
}

// New builds the configured provider, wrapped with the fallback provider
// when one is configured. Unrecognized providers resolve to the mock.
func New(opts Options) Client {
	primary := build(opts.Provider, opts.Model, opts)
	if opts.FallbackProvider == "" {
		return primary
	}
	secondary := build(opts.FallbackProvider, opts.FallbackModel, opts)
	return &fallbackClient{primary: primary, secondary: secondary}
}

func build(provider, model string, opts Options) Client {
	switch provider {
	case "openai":
		return NewOpenAIClient(opts.APIKey, model)
	case "anthropic":
		return NewAnthropicClient(opts.APIKey, model, opts.Timeout)
	case "llama":
		return NewLlamaClient(opts.BaseURL, model)
	case "mock", "":
		return NewMockClient()
	default:
		log.Warn().Str("provider", provider).Msg("Unknown LLM provider, using mock")
		return NewMockClient()
	}
}

// fallbackClient tries the primary provider and switches to the secondary on
// any failure.
type fallbackClient struct {
	primary   Client
	secondary Client
}

func (f *fallbackClient) Name() string { return f.primary.Name() }

func (f *fallbackClient) Complete(ctx context.Context, req Request) (*Result, error) {
	res, err := f.primary.Complete(ctx, req)
	if err == nil {
		return res, nil
	}
	log.Warn().Err(err).
		Str("primary", f.primary.Name()).
		Str("fallback", f.secondary.Name()).
		Msg("Primary LLM provider failed, using fallback")
	return f.secondary.Complete(ctx, req)
}
