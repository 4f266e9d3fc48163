package unifiedllm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature *float64
}

func NewAnthropicAdapter(cfg ProviderConfig) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{SDKError: SDKError{Message: "anthropic: API key is required"}}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := ResolveModel(cfg.Model)
	if model == "" {
		model = DefaultModel("anthropic")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicAdapter{
		client:      anthropic.NewClient(opts...),
		model:       model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

func (a *AnthropicAdapter) Complete(ctx context.Context, req Request) (*GenerationResult, error) {
	model := a.model
	if req.Model != "" {
		model = ResolveModel(req.Model)
	}
	maxTokens := a.maxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	system, messages := translateAnthropicMessages(req.Messages)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	} else if a.temperature != nil {
		params.Temperature = anthropic.Float(*a.temperature)
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, a.translateError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if resp.Model != "" {
		model = string(resp.Model)
	}
	usage := newUsage(int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))
	return newGenerationResult(a.Name(), model, text.String(), usage), nil
}

// translateAnthropicMessages lifts system and developer turns into the
// system prompt and folds the rest into alternating user/assistant turns.
// Tool results are replayed as user text. Consecutive turns with the same
// role are merged because the API requires strict alternation.
func translateAnthropicMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var out []anthropic.MessageParam

	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		switch m.Role {
		case RoleSystem, RoleDeveloper:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
			continue
		case RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
		}
		if m.Content == "" {
			continue
		}

		block := anthropic.NewTextBlock(m.Content)
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, block)
			continue
		}
		if role == anthropic.MessageParamRoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}

	// The conversation must open with a user turn.
	if len(out) == 0 || out[0].Role != anthropic.MessageParamRoleUser {
		out = append([]anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("Hello"))}, out...)
	}
	return system, out
}

func (a *AnthropicAdapter) translateError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return fromHTTPStatus(a.Name(), apiErr.StatusCode, header, err)
	}
	return classifyError(a.Name(), err)
}
