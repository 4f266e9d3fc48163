package unifiedllm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/teilomillet/gollm"
)

const (
	defaultGollmMaxTokens   = 4096
	defaultGollmTemperature = 0.7
)

// GollmAdapter drives any provider gollm supports. gollm takes one prompt
// and one system prompt per call, so the conversation is flattened into a
// labelled transcript. Usage is not reported.
type GollmAdapter struct {
	provider string
	model    string

	// SetOption mutates llm, so calls are serialised.
	mu  sync.Mutex
	llm gollm.LLM
}

// NewGollmAdapter builds a gollm client for cfg.Provider. An empty APIKey
// leaves gollm to read the provider's environment variable.
func NewGollmAdapter(cfg ProviderConfig) (*GollmAdapter, error) {
	model := ResolveModel(cfg.Model)
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	if model == "" {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: fmt.Sprintf("gollm: provider %q has no default model", cfg.Provider),
		}}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGollmMaxTokens
	}
	temperature := defaultGollmTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(temperature),
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "gollm: create " + cfg.Provider + " client",
			Cause:   err,
		}}
	}
	return NewGollmAdapterFromLLM(cfg.Provider, model, llm), nil
}

// NewGollmAdapterFromLLM wraps an already configured gollm.LLM.
func NewGollmAdapterFromLLM(provider, model string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, model: model, llm: llm}
}

func (a *GollmAdapter) Name() string { return a.provider }

func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*GenerationResult, error) {
	system, transcript := flattenMessages(req.Messages)

	var popts []gollm.PromptOption
	if system != "" {
		popts = append(popts, gollm.WithSystemPrompt(system, gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		popts = append(popts, gollm.WithMaxLength(*req.MaxTokens))
	}
	prompt := gollm.NewPrompt(transcript, popts...)

	a.mu.Lock()
	defer a.mu.Unlock()

	model := a.model
	if req.Model != "" {
		model = ResolveModel(req.Model)
		a.llm.SetOption("model", model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}
	return newGenerationResult(a.provider, model, text, Usage{}), nil
}

func (a *GollmAdapter) translateError(err error) error {
	return classifyError(a.provider, err)
}

// flattenMessages folds system and developer turns into one system prompt
// and every other turn into a transcript, one line per turn.
func flattenMessages(msgs []Message) (system, transcript string) {
	var sys, lines []string
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem, RoleDeveloper:
			sys = append(sys, m.Content)
		case RoleUser:
			lines = append(lines, m.Content)
		case RoleAssistant:
			if m.Content == "" {
				continue
			}
			lines = append(lines, "[Assistant]: "+m.Content)
		case RoleTool:
			lines = append(lines, "[Tool Result]: "+m.Content)
		}
	}
	if len(lines) == 0 {
		// gollm rejects an empty prompt.
		lines = []string{"Hello"}
	}
	return strings.TrimSpace(strings.Join(sys, "\n")), strings.Join(lines, "\n")
}
