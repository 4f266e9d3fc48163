package unifiedllm

import "context"

// Generator produces the model's next turn for a conversation. The returned
// result already carries extracted tool calls.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (*GenerationResult, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, messages []Message) (*GenerationResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, messages []Message) (*GenerationResult, error) {
	return f(ctx, messages)
}

// ProviderAdapter is the interface every provider backend must implement.
// Adapters map roles onto what the backend supports, report usage when the
// backend does and extract tool calls from the raw output.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "ollama").
	Name() string

	// Complete sends a blocking request and returns the generation.
	Complete(ctx context.Context, req Request) (*GenerationResult, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}
