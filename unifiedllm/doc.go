// Package unifiedllm is the generation port used by agents: a
// provider-agnostic way to send a conversation to a model and get back its
// next turn with any tool calls already extracted.
//
// # Architecture
//
//   - Generator: the single operation an agent depends on.
//   - ProviderAdapter: one per backend (langchaingo for Ollama, openai-go for
//     OpenAI and compatible servers, the Anthropic SDK, gollm). Each adapter
//     maps roles onto what its backend supports and reports token usage when
//     the backend does.
//   - Client: routes requests to adapters and applies Middleware such as
//     WithRetry. A Client is a Generator.
//
// # Tool calls
//
// Models are asked to answer with
//
//	{"tool_calls":[{"name":"get_weather","args":{"city":"Paris"}}]}
//
// and ExtractToolCalls recovers those requests from the raw text, tolerating
// prose around the JSON.
//
// # Quick Start
//
//	gen, err := unifiedllm.NewGenerator(unifiedllm.ProviderConfig{
//	    Provider: "ollama",
//	    Model:    "llama3.2",
//	}, unifiedllm.WithRetry(unifiedllm.DefaultRetryPolicy()))
//	if err != nil {
//	    return err
//	}
//	res, err := gen.Generate(ctx, []unifiedllm.Message{unifiedllm.UserMessage("Hello")})
//	fmt.Println(res.Text, res.Usage.TotalTokens)
package unifiedllm
