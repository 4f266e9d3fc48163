package unifiedllm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// LangChainAdapter drives any langchaingo llms.Model. Roles the chat
// template does not know (developer) collapse into system.
type LangChainAdapter struct {
	provider    string
	model       string
	llm         llms.Model
	maxTokens   int
	temperature *float64
}

// NewLangChainAdapter wraps an existing langchaingo model.
func NewLangChainAdapter(provider, model string, llm llms.Model) *LangChainAdapter {
	return &LangChainAdapter{provider: provider, model: model, llm: llm}
}

// NewOllamaAdapter talks to Ollama's native chat API through langchaingo.
func NewOllamaAdapter(cfg ProviderConfig) (*LangChainAdapter, error) {
	model := ResolveModel(cfg.Model)
	if model == "" {
		model = DefaultModel("ollama")
	}
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}

	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, ollama.WithHTTPClient(cfg.HTTPClient))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "ollama: create client", Cause: err}}
	}

	a := NewLangChainAdapter("ollama", model, llm)
	a.maxTokens = cfg.MaxTokens
	a.temperature = cfg.Temperature
	return a, nil
}

func (a *LangChainAdapter) Name() string { return a.provider }

func (a *LangChainAdapter) Complete(ctx context.Context, req Request) (*GenerationResult, error) {
	model := a.model
	var opts []llms.CallOption
	if req.Model != "" {
		model = ResolveModel(req.Model)
		opts = append(opts, llms.WithModel(model))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	} else if a.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.maxTokens))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	} else if a.temperature != nil {
		opts = append(opts, llms.WithTemperature(*a.temperature))
	}

	resp, err := a.llm.GenerateContent(ctx, toLangChainMessages(req.Messages), opts...)
	if err != nil {
		return nil, classifyError(a.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, newInvalidResponse(a.provider, "response has no choices", nil)
	}

	choice := resp.Choices[0]
	return newGenerationResult(a.provider, model, choice.Content, usageFromGenerationInfo(choice.GenerationInfo)), nil
}

func toLangChainMessages(msgs []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llms.TextParts(langChainRole(m.Role), m.Content))
	}
	return out
}

func langChainRole(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem, RoleDeveloper:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

// usageFromGenerationInfo normalises the provider-specific token keys that
// langchaingo backends put in GenerationInfo.
func usageFromGenerationInfo(info map[string]any) Usage {
	prompt := firstInt(info, "PromptTokens", "InputTokens", "input_tokens")
	completion := firstInt(info, "CompletionTokens", "OutputTokens", "output_tokens")
	u := newUsage(prompt, completion)
	if total := firstInt(info, "TotalTokens", "total_tokens"); total > 0 {
		u.TotalTokens = total
	}
	return u
}

func firstInt(info map[string]any, keys ...string) int {
	for _, k := range keys {
		if v := getIntFromMap(info, k); v > 0 {
			return v
		}
	}
	return 0
}

func getIntFromMap(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
