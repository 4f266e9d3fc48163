package unifiedllm

import (
	"fmt"
	"net/http"
)

// Backend names select the client library behind a provider.
const (
	BackendNative    = ""
	BackendOpenAI    = "openai"
	BackendGollm     = "gollm"
	BackendLangChain = "langchain"
)

// ProviderConfig describes how to reach one model provider.
type ProviderConfig struct {
	Provider    string // ollama, openai or anthropic
	Backend     string // client library; empty picks the provider's native one
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature *float64
	HTTPClient  *http.Client
}

// NewAdapter builds the ProviderAdapter described by cfg.
//
// Native backends are langchaingo for ollama, openai-go for openai and the
// Anthropic SDK for anthropic. Backend "openai" routes ollama through its
// OpenAI-compatible endpoint and backend "gollm" uses gollm for any provider
// it supports.
func NewAdapter(cfg ProviderConfig) (ProviderAdapter, error) {
	switch cfg.Backend {
	case BackendGollm:
		return NewGollmAdapter(cfg)
	case BackendLangChain:
		if cfg.Provider != "ollama" {
			return nil, unsupportedBackend(cfg)
		}
		return NewOllamaAdapter(cfg)
	case BackendOpenAI:
		if cfg.Provider == "anthropic" {
			return nil, unsupportedBackend(cfg)
		}
		return NewOpenAIAdapter(cfg)
	case BackendNative:
	default:
		return nil, unsupportedBackend(cfg)
	}

	switch cfg.Provider {
	case "ollama":
		return NewOllamaAdapter(cfg)
	case "openai":
		return NewOpenAIAdapter(cfg)
	case "anthropic":
		return NewAnthropicAdapter(cfg)
	default:
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("unknown provider %q", cfg.Provider),
		}}
	}
}

func unsupportedBackend(cfg ProviderConfig) error {
	return &ConfigurationError{SDKError: SDKError{
		Message: fmt.Sprintf("backend %q does not support provider %q", cfg.Backend, cfg.Provider),
	}}
}

// NewGenerator builds a Client around a single adapter with the given
// middleware. The Client is ready to hand to an agent.
func NewGenerator(cfg ProviderConfig, mw ...Middleware) (*Client, error) {
	adapter, err := NewAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(
		WithProvider(adapter.Name(), adapter),
		WithDefaultProvider(adapter.Name()),
		WithDefaultModel(ResolveModel(cfg.Model)),
		WithMiddleware(mw...),
	), nil
}
