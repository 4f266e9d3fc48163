package unifiedllm

import "slices"

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog. The first entry for each provider is
// its default.
var Models = []ModelInfo{
	// Ollama
	{
		ID: "llama3.2", Provider: "ollama", DisplayName: "Llama 3.2",
		ContextWindow: 131072,
		Aliases:       []string{"llama3.2:latest"},
	},
	{
		ID: "llama3.1", Provider: "ollama", DisplayName: "Llama 3.1",
		ContextWindow: 131072,
		Aliases:       []string{"llama3.1:latest", "llama3"},
	},
	{
		ID: "qwen2.5", Provider: "ollama", DisplayName: "Qwen 2.5",
		ContextWindow: 32768,
		Aliases:       []string{"qwen2.5:latest"},
	},

	// OpenAI
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000,
		Aliases:       []string{"4o-mini"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000,
		Aliases:       []string{"4o"},
	},

	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000,
		Aliases:       []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000,
		Aliases:       []string{"haiku", "claude-haiku"},
	},
}

// GetModelInfo looks a model up by ID or alias. It returns nil for models
// the catalog does not know.
func GetModelInfo(modelID string) *ModelInfo {
	i := slices.IndexFunc(Models, func(m ModelInfo) bool {
		return m.ID == modelID || slices.Contains(m.Aliases, modelID)
	})
	if i < 0 {
		return nil
	}
	return &Models[i]
}

// ListModels returns a copy of the catalog, narrowed to one provider when
// provider is non-empty.
func ListModels(provider string) []ModelInfo {
	out := slices.Clone(Models)
	if provider == "" {
		return out
	}
	return slices.DeleteFunc(out, func(m ModelInfo) bool { return m.Provider != provider })
}

// DefaultModel is the first catalog entry for provider, or "".
func DefaultModel(provider string) string {
	if models := ListModels(provider); len(models) > 0 {
		return models[0].ID
	}
	return ""
}

// ResolveModel maps an alias to its canonical ID. Unknown IDs pass through
// unchanged.
func ResolveModel(modelID string) string {
	if info := GetModelInfo(modelID); info != nil {
		return info.ID
	}
	return modelID
}
