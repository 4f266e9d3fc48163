package unifiedllm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOllamaOpenAIURL is Ollama's OpenAI-compatible endpoint.
const DefaultOllamaOpenAIURL = "http://localhost:11434/v1"

// OpenAIAdapter talks to the Chat Completions API. It serves both OpenAI
// and OpenAI-compatible servers such as Ollama.
type OpenAIAdapter struct {
	provider    string
	client      openai.Client
	model       string
	maxTokens   int
	temperature *float64
	// compat servers lack the developer role but accept tool turns without
	// a native tool call id. OpenAI itself rejects those.
	compat bool
}

// NewOpenAIAdapter creates an adapter for api.openai.com, or for any
// compatible server when cfg.BaseURL is set.
func NewOpenAIAdapter(cfg ProviderConfig) (*OpenAIAdapter, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	compat := provider != "openai"

	baseURL := cfg.BaseURL
	apiKey := cfg.APIKey
	if provider == "ollama" {
		if baseURL == "" {
			baseURL = DefaultOllamaOpenAIURL
		}
		if apiKey == "" {
			// Ollama ignores the key but the client insists on one.
			apiKey = "ollama"
		}
	}
	if apiKey == "" && baseURL == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "openai: API key is required"}}
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := ResolveModel(cfg.Model)
	if model == "" {
		model = DefaultModel(provider)
	}

	return &OpenAIAdapter{
		provider:    provider,
		client:      openai.NewClient(opts...),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		compat:      compat,
	}, nil
}

func (a *OpenAIAdapter) Name() string { return a.provider }

func (a *OpenAIAdapter) Complete(ctx context.Context, req Request) (*GenerationResult, error) {
	model := a.model
	if req.Model != "" {
		model = ResolveModel(req.Model)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: a.translateMessages(req.Messages),
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	} else if a.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(a.maxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	} else if a.temperature != nil {
		params.Temperature = openai.Float(*a.temperature)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, newInvalidResponse(a.provider, "response has no choices", nil)
	}

	usage := newUsage(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	if resp.Usage.TotalTokens > 0 {
		usage.TotalTokens = int(resp.Usage.TotalTokens)
	}
	if resp.Model != "" {
		model = resp.Model
	}
	return newGenerationResult(a.provider, model, resp.Choices[0].Message.Content, usage), nil
}

// translateMessages maps roles onto Chat Completions roles. Tool results
// carry no native tool call id, so they are replayed as user turns on
// OpenAI and as tool turns on compatible servers.
func (a *OpenAIAdapter) translateMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleDeveloper:
			if a.compat {
				out = append(out, openai.SystemMessage(m.Content))
			} else {
				out = append(out, openai.DeveloperMessage(m.Content))
			}
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case RoleTool:
			if a.compat {
				out = append(out, openai.ToolMessage(m.Content, m.Name))
			} else {
				out = append(out, openai.UserMessage(m.Content))
			}
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (a *OpenAIAdapter) translateError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return fromHTTPStatus(a.provider, apiErr.StatusCode, header, err)
	}
	return classifyError(a.provider, err)
}
