package unifiedllm

import "encoding/json"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// Message is a single conversational turn. Messages are values and are
// never mutated once appended to a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// DeveloperMessage builds an instructional turn authored by the host
// application rather than the user.
func DeveloperMessage(text string) Message {
	return Message{Role: RoleDeveloper, Content: text}
}

// ToolResultMessage builds the turn carrying a tool's output back to the
// model. name is the tool that produced it.
func ToolResultMessage(name, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: name}
}

// Usage tracks token consumption. Backends that do not report usage leave
// it zeroed.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

func newUsage(prompt, completion int) Usage {
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// ToolCallRequest is one tool invocation requested by the model.
type ToolCallRequest struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// GenerationResult is the outcome of one generation call.
type GenerationResult struct {
	Text      string            `json:"text"`
	Usage     Usage             `json:"usage"`
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// HasToolCalls reports whether the model asked for at least one tool.
func (r *GenerationResult) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// newGenerationResult runs tool-call extraction over the raw text.
func newGenerationResult(provider, model, text string, usage Usage) *GenerationResult {
	return &GenerationResult{
		Text:      text,
		Usage:     usage,
		ToolCalls: ExtractToolCalls(text),
		Provider:  provider,
		Model:     model,
	}
}

// Request is what the Client hands to a provider adapter.
type Request struct {
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}
